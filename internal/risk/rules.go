package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/types"
)

const (
	ruleDailyLoss   = "daily_loss"
	ruleMaxDrawdown = "max_drawdown"
)

// PropFirmRiskManager enforces a prop-firm rule profile: a two-tier
// daily loss limit, a two-tier trailing or fixed drawdown limit, an
// optional aggregate position size cap and an optional trading-hours
// window. Breaching either loss limit halts trading; drawdown halts
// are permanent for the run, daily-loss halts clear at the next
// session rollover.
type PropFirmRiskManager struct {
	profile types.PropFirmProfile
	logger  *logger.Logger

	dailyPnL      decimal.Decimal
	equity        decimal.Decimal
	highWaterMark decimal.Decimal
	positionSize  decimal.Decimal
	halted        bool
	violations    []types.RiskViolation
}

// NewPropFirmRiskManager creates a risk manager for the given profile.
func NewPropFirmRiskManager(profile types.PropFirmProfile, l *logger.Logger) (*PropFirmRiskManager, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	if l == nil {
		l = logger.NewNopLogger()
	}

	m := &PropFirmRiskManager{
		profile: profile,
		logger:  l,
	}
	m.Reset()
	return m, nil
}

// Profile returns the rule profile this manager enforces.
func (m *PropFirmRiskManager) Profile() types.PropFirmProfile {
	return m.profile
}

// Reset restores the manager to its initial state for a fresh run.
func (m *PropFirmRiskManager) Reset() {
	m.dailyPnL = decimal.Zero
	m.equity = m.profile.InitialBalance
	m.highWaterMark = m.profile.InitialBalance
	m.positionSize = decimal.Zero
	m.halted = false
	m.violations = nil
}

// EvaluateOrder decides whether an order may be submitted.
func (m *PropFirmRiskManager) EvaluateOrder(order *types.Order, account types.AccountState) Decision {
	if m.halted {
		return Rejected("trading halted by risk rules")
	}

	if hours, err := m.profile.TradingHours.Take(); err == nil {
		if !hours.Contains(account.Timestamp) {
			return Rejected(fmt.Sprintf("outside trading hours %02d:00-%02d:00", hours.StartHour, hours.EndHour))
		}
	}

	if v := m.checkDailyLoss(); v != nil && v.Severity == types.RiskSeverityBreach {
		return Rejected(v.Message)
	}

	if v := m.checkDrawdown(); v != nil && v.Severity == types.RiskSeverityBreach {
		return Rejected(v.Message)
	}

	if maxSize, err := m.profile.MaxPositionSize.Take(); err == nil {
		projected := m.positionSize.Add(order.Quantity)
		if projected.GreaterThan(maxSize) {
			return Rejected(fmt.Sprintf("position size %s would exceed maximum %s", projected, maxSize))
		}
	}

	return Approved()
}

// UpdateAccount refreshes the rule counters from the latest snapshot
// and recomputes violations.
func (m *PropFirmRiskManager) UpdateAccount(account types.AccountState) {
	m.dailyPnL = account.DailyPnL
	m.equity = account.Equity
	if account.HighWaterMark.GreaterThan(m.highWaterMark) {
		m.highWaterMark = account.HighWaterMark
	}
	m.positionSize = decimal.NewFromInt(int64(account.OpenPositions))

	m.violations = m.violations[:0]

	if v := m.checkDailyLoss(); v != nil {
		m.violations = append(m.violations, *v)
		if v.Severity == types.RiskSeverityBreach && !m.halted {
			m.halted = true
			m.logger.Warn("trading halted",
				zap.String("rule", v.Rule),
				zap.String("current", v.Current.String()),
				zap.String("threshold", v.Threshold.String()),
			)
		}
	}

	if v := m.checkDrawdown(); v != nil {
		m.violations = append(m.violations, *v)
		if v.Severity == types.RiskSeverityBreach && !m.halted {
			m.halted = true
			m.logger.Warn("trading halted",
				zap.String("rule", v.Rule),
				zap.String("current", v.Current.String()),
				zap.String("threshold", v.Threshold.String()),
			)
		}
	}
}

// checkDailyLoss returns the current daily-loss violation, if any.
// Breach when the daily loss reaches the limit, warning when it
// reaches the auto-flatten fraction of the limit.
func (m *PropFirmRiskManager) checkDailyLoss() *types.RiskViolation {
	loss := m.dailyPnL.Neg()
	limit := m.profile.DailyLossLimit

	switch {
	case loss.GreaterThanOrEqual(limit):
		return &types.RiskViolation{
			Rule:      ruleDailyLoss,
			Message:   fmt.Sprintf("daily loss %s breached limit %s", loss, limit),
			Current:   loss,
			Threshold: limit,
			Severity:  types.RiskSeverityBreach,
		}
	case loss.GreaterThanOrEqual(limit.Mul(m.profile.AutoFlattenThreshold)):
		return &types.RiskViolation{
			Rule:      ruleDailyLoss,
			Message:   fmt.Sprintf("daily loss %s approaching limit %s", loss, limit),
			Current:   loss,
			Threshold: limit,
			Severity:  types.RiskSeverityWarning,
		}
	default:
		return nil
	}
}

// checkDrawdown returns the current drawdown violation, if any.
// Trailing drawdown measures from the high-water mark, fixed from the
// initial balance.
func (m *PropFirmRiskManager) checkDrawdown() *types.RiskViolation {
	var drawdown decimal.Decimal
	if m.profile.DrawdownMode == types.DrawdownTrailing {
		drawdown = m.highWaterMark.Sub(m.equity)
	} else {
		drawdown = m.profile.InitialBalance.Sub(m.equity)
	}

	limit := m.profile.MaxDrawdown

	switch {
	case drawdown.GreaterThanOrEqual(limit):
		return &types.RiskViolation{
			Rule:      ruleMaxDrawdown,
			Message:   fmt.Sprintf("drawdown %s breached limit %s", drawdown, limit),
			Current:   drawdown,
			Threshold: limit,
			Severity:  types.RiskSeverityBreach,
		}
	case drawdown.GreaterThanOrEqual(limit.Mul(m.profile.AutoFlattenThreshold)):
		return &types.RiskViolation{
			Rule:      ruleMaxDrawdown,
			Message:   fmt.Sprintf("drawdown %s approaching limit %s", drawdown, limit),
			Current:   drawdown,
			Threshold: limit,
			Severity:  types.RiskSeverityWarning,
		}
	default:
		return nil
	}
}

// ResetDaily zeroes the daily PnL at session rollover. The halt flag
// clears unless the drawdown check is still in breach.
func (m *PropFirmRiskManager) ResetDaily() {
	m.dailyPnL = decimal.Zero

	if v := m.checkDrawdown(); v != nil && v.Severity == types.RiskSeverityBreach {
		return
	}
	m.halted = false
}

// ShouldHalt reports whether trading is halted.
func (m *PropFirmRiskManager) ShouldHalt() bool {
	return m.halted
}

// ActiveViolations returns a copy of the last computed violation set.
func (m *PropFirmRiskManager) ActiveViolations() []types.RiskViolation {
	violations := make([]types.RiskViolation, len(m.violations))
	copy(violations, m.violations)
	return violations
}

// HasWarning reports whether the last update produced a warning-tier
// violation, used by the orchestrator for auto-flatten behavior.
func (m *PropFirmRiskManager) HasWarning() bool {
	for _, v := range m.violations {
		if v.Severity == types.RiskSeverityWarning {
			return true
		}
	}
	return false
}

var _ RiskManager = (*PropFirmRiskManager)(nil)
