package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// EMA implements an exponential moving average. The first output is
// the SMA of the first period values; subsequent values use the
// standard smoothing factor 2/(period+1).
type EMA struct {
	period     int
	multiplier decimal.Decimal
	seed       *SMA
	current    optional.Option[decimal.Decimal]
}

// NewEMA creates an EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		multiplier: decimal.NewFromInt(2).Div(
			decimal.NewFromInt(int64(period) + 1)),
		seed: NewSMA(period),
	}
}

// Name returns the indicator name.
func (e *EMA) Name() string {
	return "ema"
}

// Period returns the configured period.
func (e *EMA) Period() int {
	return e.period
}

// IsReady reports whether the EMA has been seeded.
func (e *EMA) IsReady() bool {
	return e.current.IsSome()
}

// Next feeds one value and returns the smoothed average.
func (e *EMA) Next(value decimal.Decimal) optional.Option[decimal.Decimal] {
	if e.current.IsNone() {
		seeded := e.seed.Next(value)
		if seeded.IsSome() {
			e.current = seeded
		}
		return e.current
	}

	prev := e.current.Unwrap()
	next := value.Sub(prev).Mul(e.multiplier).Add(prev)
	e.current = optional.Some(next)
	return e.current
}

// Reset clears all accumulated state.
func (e *EMA) Reset() {
	e.seed.Reset()
	e.current = optional.None[decimal.Decimal]()
}
