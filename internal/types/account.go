package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountState is a snapshot of the trading account at a point in time.
type AccountState struct {
	Balance         decimal.Decimal `yaml:"balance" json:"balance"`
	Equity          decimal.Decimal `yaml:"equity" json:"equity"`
	UnrealizedPnL   decimal.Decimal `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	RealizedPnL     decimal.Decimal `yaml:"realized_pnl" json:"realized_pnl"`
	DailyPnL        decimal.Decimal `yaml:"daily_pnl" json:"daily_pnl"`
	MarginUsed      decimal.Decimal `yaml:"margin_used" json:"margin_used"`
	MarginAvailable decimal.Decimal `yaml:"margin_available" json:"margin_available"`
	OpenPositions   int             `yaml:"open_positions" json:"open_positions"`
	HighWaterMark   decimal.Decimal `yaml:"high_water_mark" json:"high_water_mark"`
	Timestamp       time.Time       `yaml:"timestamp" json:"timestamp"`
}

// CurrentDrawdown returns the distance from the high-water mark to the
// current equity, never negative.
func (a *AccountState) CurrentDrawdown() decimal.Decimal {
	drawdown := a.HighWaterMark.Sub(a.Equity)
	if drawdown.IsNegative() {
		return decimal.Zero
	}
	return drawdown
}

// DrawdownPercent returns the current drawdown as a fraction of the
// high-water mark.
func (a *AccountState) DrawdownPercent() decimal.Decimal {
	if a.HighWaterMark.IsZero() {
		return decimal.Zero
	}
	return a.CurrentDrawdown().Div(a.HighWaterMark)
}

// NewAccountState returns a flat account snapshot with the given balance.
func NewAccountState(balance decimal.Decimal, at time.Time) AccountState {
	return AccountState{
		Balance:         balance,
		Equity:          balance,
		MarginAvailable: balance,
		HighWaterMark:   balance,
		Timestamp:       at,
	}
}
