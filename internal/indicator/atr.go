package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/internal/types"
)

// ATR implements the average true range with Wilder smoothing. Unlike
// the value-series indicators it consumes whole bars, since true range
// needs high, low and the previous close.
type ATR struct {
	period    int
	prevClose optional.Option[decimal.Decimal]
	current   decimal.Decimal
	seen      int
	periodDe  decimal.Decimal
}

// NewATR creates an ATR with the given period.
func NewATR(period int) *ATR {
	return &ATR{
		period:   period,
		periodDe: decimal.NewFromInt(int64(period)),
	}
}

// Name returns the indicator name.
func (a *ATR) Name() string {
	return "atr"
}

// Period returns the configured period.
func (a *ATR) Period() int {
	return a.period
}

// IsReady reports whether enough bars have been observed.
func (a *ATR) IsReady() bool {
	return a.seen >= a.period
}

// NextBar feeds one bar and returns the smoothed true range.
func (a *ATR) NextBar(bar types.Bar) optional.Option[decimal.Decimal] {
	tr := bar.High.Sub(bar.Low)
	if prev, err := a.prevClose.Take(); err == nil {
		highDiff := bar.High.Sub(prev).Abs()
		lowDiff := bar.Low.Sub(prev).Abs()
		if highDiff.GreaterThan(tr) {
			tr = highDiff
		}
		if lowDiff.GreaterThan(tr) {
			tr = lowDiff
		}
	}
	a.prevClose = optional.Some(bar.Close)

	a.seen++
	switch {
	case a.seen < a.period:
		a.current = a.current.Add(tr)
		return optional.None[decimal.Decimal]()
	case a.seen == a.period:
		a.current = a.current.Add(tr).Div(a.periodDe)
	default:
		nMinusOne := a.periodDe.Sub(decimal.NewFromInt(1))
		a.current = a.current.Mul(nMinusOne).Add(tr).Div(a.periodDe)
	}

	return optional.Some(a.current)
}

// Reset clears all accumulated state.
func (a *ATR) Reset() {
	a.prevClose = optional.None[decimal.Decimal]()
	a.current = decimal.Zero
	a.seen = 0
}
