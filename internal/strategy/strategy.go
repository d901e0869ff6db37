// Package strategy defines the trading strategy interface consumed by
// the backtest orchestrator and the built-in strategies.
package strategy

import (
	"github.com/evilc0des/prop-bots/internal/types"
)

// Strategy is a signal generator driven by the orchestrator. OnBar is
// called once per bar after mark-to-market; any signals returned are
// converted to orders, risk-checked and submitted before the next bar.
type Strategy interface {
	// ID returns the stable identifier used to tag orders and trades.
	ID() string

	// Name returns a human-readable name.
	Name() string

	// OnStart is called once before the first bar.
	OnStart() error

	// OnBar consumes one bar and returns zero or more signals.
	OnBar(bar types.Bar) []types.Signal

	// OnTick consumes one tick and returns zero or more signals.
	// Strategies that only trade bars return nil.
	OnTick(tick types.Tick) []types.Signal

	// OnFill notifies the strategy of an execution of one of its
	// orders.
	OnFill(fill types.Fill)

	// OnPositionUpdate notifies the strategy of a position change.
	OnPositionUpdate(position types.Position)

	// OnStop is called once after the last bar.
	OnStop()

	// Reset clears all internal state so the same instance can be
	// reused for another run.
	Reset()
}
