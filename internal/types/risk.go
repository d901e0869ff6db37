package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/pkg/errors"
)

// RiskSeverity orders violations from informational to account-ending.
type RiskSeverity int

const (
	RiskSeverityWarning RiskSeverity = iota
	RiskSeverityCritical
	RiskSeverityBreach
)

// String implements fmt.Stringer.
func (s RiskSeverity) String() string {
	switch s {
	case RiskSeverityWarning:
		return "warning"
	case RiskSeverityCritical:
		return "critical"
	case RiskSeverityBreach:
		return "breach"
	default:
		return "unknown"
	}
}

// RiskViolation describes one rule currently outside its threshold.
// Violations are recomputed on every account update and not persisted.
type RiskViolation struct {
	Rule      string          `yaml:"rule" json:"rule"`
	Message   string          `yaml:"message" json:"message"`
	Current   decimal.Decimal `yaml:"current" json:"current"`
	Threshold decimal.Decimal `yaml:"threshold" json:"threshold"`
	Severity  RiskSeverity    `yaml:"severity" json:"severity"`
}

// DrawdownMode selects how max drawdown is measured.
type DrawdownMode string

const (
	// DrawdownTrailing measures from the equity high-water mark.
	DrawdownTrailing DrawdownMode = "trailing"
	// DrawdownFixed measures from the initial balance.
	DrawdownFixed DrawdownMode = "fixed"
)

// TradingHours is an optional window outside which new orders are
// rejected. Hours are in the 24h clock of the bar timestamps.
type TradingHours struct {
	StartHour int `yaml:"start_hour" json:"start_hour"`
	EndHour   int `yaml:"end_hour" json:"end_hour"`
}

// Contains reports whether t falls inside the window. A window that
// wraps midnight (start > end) is supported.
func (h TradingHours) Contains(t time.Time) bool {
	hour := t.Hour()
	if h.StartHour <= h.EndHour {
		return hour >= h.StartHour && hour < h.EndHour
	}
	return hour >= h.StartHour || hour < h.EndHour
}

// PropFirmProfile is a named prop-firm rule configuration. It is
// immutable once loaded.
type PropFirmProfile struct {
	Name           string          `yaml:"name" json:"name"`
	InitialBalance decimal.Decimal `yaml:"initial_balance" json:"initial_balance"`
	DailyLossLimit decimal.Decimal `yaml:"daily_loss_limit" json:"daily_loss_limit"`
	MaxDrawdown    decimal.Decimal `yaml:"max_drawdown" json:"max_drawdown"`
	DrawdownMode   DrawdownMode    `yaml:"drawdown_mode" json:"drawdown_mode"`
	// MaxPositionSize caps aggregate open contracts across instruments.
	MaxPositionSize optional.Option[decimal.Decimal] `yaml:"max_position_size,omitempty" json:"max_position_size,omitempty"`
	TradingHours    optional.Option[TradingHours]    `yaml:"trading_hours,omitempty" json:"trading_hours,omitempty"`
	// ConsistencyMaxDayPct caps the share of total profit one day may
	// contribute, as a percentage. Informational only; firms apply it
	// at payout, not intraday.
	ConsistencyMaxDayPct optional.Option[decimal.Decimal] `yaml:"consistency_max_day_pct,omitempty" json:"consistency_max_day_pct,omitempty"`
	// AutoFlattenThreshold is the fraction of a limit at which a
	// warning-tier violation fires (e.g. 0.9 warns at 90% of the
	// daily loss limit).
	AutoFlattenThreshold decimal.Decimal `yaml:"auto_flatten_threshold" json:"auto_flatten_threshold"`
}

// Validate checks the profile invariants.
func (p *PropFirmProfile) Validate() error {
	if p.Name == "" {
		return errors.New(errors.ErrCodeInvalidProfile, "profile name is required")
	}

	if !p.InitialBalance.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidProfile, "initial balance must be positive, got %s", p.InitialBalance)
	}

	if !p.DailyLossLimit.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidProfile, "daily loss limit must be positive, got %s", p.DailyLossLimit)
	}

	if !p.MaxDrawdown.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidProfile, "max drawdown must be positive, got %s", p.MaxDrawdown)
	}

	if p.DrawdownMode != DrawdownTrailing && p.DrawdownMode != DrawdownFixed {
		return errors.Newf(errors.ErrCodeInvalidProfile, "unknown drawdown mode %q", p.DrawdownMode)
	}

	if p.AutoFlattenThreshold.LessThanOrEqual(decimal.Zero) || p.AutoFlattenThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Newf(errors.ErrCodeInvalidProfile, "auto flatten threshold must be in (0, 1], got %s", p.AutoFlattenThreshold)
	}

	return nil
}
