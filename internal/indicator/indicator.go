// Package indicator provides streaming technical indicators computed
// over decimal values. Each indicator consumes one input per bar and
// returns None until it has seen enough data to produce a value.
package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Indicator is a streaming technical indicator over a single value
// series (typically bar closes).
type Indicator interface {
	// Next feeds one value and returns the indicator output, or None
	// while the indicator is warming up.
	Next(value decimal.Decimal) optional.Option[decimal.Decimal]

	// Name returns the indicator name.
	Name() string

	// Period returns the configured lookback period.
	Period() int

	// IsReady reports whether the indicator has enough data to
	// produce values.
	IsReady() bool

	// Reset clears all accumulated state.
	Reset()
}
