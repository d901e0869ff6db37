package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is one sample of the per-bar equity series.
type EquityPoint struct {
	Timestamp time.Time       `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Equity    decimal.Decimal `yaml:"equity" json:"equity" csv:"equity"`
	Balance   decimal.Decimal `yaml:"balance" json:"balance" csv:"balance"`
	Drawdown  decimal.Decimal `yaml:"drawdown" json:"drawdown" csv:"drawdown"`
}

// BacktestResult is the terminal output of a run. It is constructed
// once, by the metrics engine, and read-only thereafter.
type BacktestResult struct {
	ID         string    `yaml:"id" json:"id"`
	StrategyID string    `yaml:"strategy_id" json:"strategy_id"`
	Instrument string    `yaml:"instrument" json:"instrument"`
	StartTime  time.Time `yaml:"start_time" json:"start_time"`
	EndTime    time.Time `yaml:"end_time" json:"end_time"`

	InitialBalance decimal.Decimal `yaml:"initial_balance" json:"initial_balance"`
	FinalBalance   decimal.Decimal `yaml:"final_balance" json:"final_balance"`
	FinalEquity    decimal.Decimal `yaml:"final_equity" json:"final_equity"`
	NetProfit      decimal.Decimal `yaml:"net_profit" json:"net_profit"`

	TotalTrades   int             `yaml:"total_trades" json:"total_trades"`
	WinningTrades int             `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int             `yaml:"losing_trades" json:"losing_trades"`
	WinRate       decimal.Decimal `yaml:"win_rate" json:"win_rate"`

	GrossProfit  decimal.Decimal `yaml:"gross_profit" json:"gross_profit"`
	GrossLoss    decimal.Decimal `yaml:"gross_loss" json:"gross_loss"`
	ProfitFactor decimal.Decimal `yaml:"profit_factor" json:"profit_factor"`

	MaxDrawdown    decimal.Decimal `yaml:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownPct decimal.Decimal `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`

	AverageTrade  decimal.Decimal `yaml:"average_trade" json:"average_trade"`
	AverageWinner decimal.Decimal `yaml:"average_winner" json:"average_winner"`
	AverageLoser  decimal.Decimal `yaml:"average_loser" json:"average_loser"`

	SharpeRatio  decimal.Decimal `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio decimal.Decimal `yaml:"sortino_ratio" json:"sortino_ratio"`

	TotalCommission decimal.Decimal `yaml:"total_commission" json:"total_commission"`

	Trades      []Trade        `yaml:"trades" json:"trades"`
	EquityCurve []EquityPoint  `yaml:"equity_curve" json:"equity_curve"`
	Violations  []RiskViolation `yaml:"violations,omitempty" json:"violations,omitempty"`
}
