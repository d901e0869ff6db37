package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// SignalAction is the intent a strategy emits.
type SignalAction string

const (
	SignalBuyEntry  SignalAction = "buy_entry"
	SignalSellEntry SignalAction = "sell_entry"
	SignalExitLong  SignalAction = "exit_long"
	SignalExitShort SignalAction = "exit_short"
	SignalExitAll   SignalAction = "exit_all"
)

// IsExit reports whether the action closes existing exposure.
func (a SignalAction) IsExit() bool {
	switch a {
	case SignalExitLong, SignalExitShort, SignalExitAll:
		return true
	default:
		return false
	}
}

// Signal is a strategy-emitted trading intent. The orchestrator converts
// each signal into exactly one order; signals are never mutated.
type Signal struct {
	Action     SignalAction                     `yaml:"action" json:"action"`
	Instrument string                           `yaml:"instrument" json:"instrument"`
	Quantity   optional.Option[decimal.Decimal] `yaml:"quantity,omitempty" json:"quantity,omitempty"`
	Price      optional.Option[decimal.Decimal] `yaml:"price,omitempty" json:"price,omitempty"`
	StrategyID string                           `yaml:"strategy_id" json:"strategy_id"`
	Timestamp  time.Time                        `yaml:"timestamp" json:"timestamp"`
	Reason     string                           `yaml:"reason,omitempty" json:"reason,omitempty"`
}
