// Package risk evaluates orders against prop-firm rule sets and
// maintains the running counters (daily PnL, drawdown, halt flag)
// those rules depend on.
package risk

import (
	"github.com/evilc0des/prop-bots/internal/types"
)

// DecisionType discriminates risk decisions.
type DecisionType string

const (
	DecisionApproved DecisionType = "approved"
	DecisionRejected DecisionType = "rejected"
	DecisionModified DecisionType = "modified"
)

// Decision is the outcome of evaluating one order. Rejected decisions
// carry a reason; Modified decisions carry the replacement order to
// submit instead of the original.
type Decision struct {
	Type   DecisionType
	Reason string
	Order  *types.Order
}

// Approved returns an approval decision.
func Approved() Decision {
	return Decision{Type: DecisionApproved}
}

// Rejected returns a rejection with the given reason.
func Rejected(reason string) Decision {
	return Decision{Type: DecisionRejected, Reason: reason}
}

// Modified returns a decision replacing the original order.
func Modified(order *types.Order) Decision {
	return Decision{Type: DecisionModified, Order: order}
}

// RiskManager evaluates orders and tracks account-level rule state
// across a run.
type RiskManager interface {
	// EvaluateOrder decides whether an order may be submitted given
	// the latest account snapshot.
	EvaluateOrder(order *types.Order, account types.AccountState) Decision

	// UpdateAccount refreshes the rule counters from a new account
	// snapshot and recomputes violations. A breach-severity daily
	// loss or drawdown violation sets the persistent halt flag.
	UpdateAccount(account types.AccountState)

	// ResetDaily zeroes the daily counters at session rollover.
	// Daily-loss halts clear; drawdown halts persist.
	ResetDaily()

	// ShouldHalt reports whether trading is halted.
	ShouldHalt() bool

	// ActiveViolations returns the violations computed by the last
	// account update.
	ActiveViolations() []types.RiskViolation

	// Reset restores the manager to its initial state for a fresh run.
	Reset()
}
