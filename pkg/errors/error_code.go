package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidInstrument    ErrorCode = 102
	ErrCodeInvalidBar           ErrorCode = 103
	ErrCodeInvalidOrder         ErrorCode = 104
	ErrCodeInvalidQuantity      ErrorCode = 105
	ErrCodeInvalidPrice         ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 107
	ErrCodeInvalidProfile       ErrorCode = 108

	// Data errors (200-299)
	ErrCodeDataNotFound ErrorCode = 200
	ErrCodeDataParse    ErrorCode = 201
	ErrCodeQueryFailed  ErrorCode = 202
	ErrCodeNoDataFound  ErrorCode = 203

	// Broker errors (300-399)
	ErrCodeConnectionFailed   ErrorCode = 300
	ErrCodeNotConnected       ErrorCode = 301
	ErrCodeOrderRejected      ErrorCode = 302
	ErrCodeOrderNotFound      ErrorCode = 303
	ErrCodeInsufficientMargin ErrorCode = 304
	ErrCodeBrokerOther        ErrorCode = 305

	// Risk errors (400-499)
	ErrCodeRiskRejected   ErrorCode = 400
	ErrCodeTradingHalted  ErrorCode = 401
	ErrCodeUnknownProfile ErrorCode = 402

	// Strategy errors (500-599)
	ErrCodeUnknownStrategy     ErrorCode = 500
	ErrCodeStrategyConfigError ErrorCode = 501

	// Backtest errors (600-699)
	ErrCodeBacktestNoBars      ErrorCode = 600
	ErrCodeBacktestConfigError ErrorCode = 601
	ErrCodeBacktestNotFound    ErrorCode = 602
)
