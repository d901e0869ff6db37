package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// RSI implements the relative strength index using Wilder's smoothing.
type RSI struct {
	period   int
	prev     optional.Option[decimal.Decimal]
	avgGain  decimal.Decimal
	avgLoss  decimal.Decimal
	seen     int
	hundred  decimal.Decimal
	periodDe decimal.Decimal
}

// NewRSI creates an RSI with the given period.
func NewRSI(period int) *RSI {
	return &RSI{
		period:   period,
		hundred:  decimal.NewFromInt(100),
		periodDe: decimal.NewFromInt(int64(period)),
	}
}

// Name returns the indicator name.
func (r *RSI) Name() string {
	return "rsi"
}

// Period returns the configured period.
func (r *RSI) Period() int {
	return r.period
}

// IsReady reports whether enough changes have been observed.
func (r *RSI) IsReady() bool {
	return r.seen >= r.period
}

// Next feeds one value and returns the RSI in [0, 100].
func (r *RSI) Next(value decimal.Decimal) optional.Option[decimal.Decimal] {
	if r.prev.IsNone() {
		r.prev = optional.Some(value)
		return optional.None[decimal.Decimal]()
	}

	change := value.Sub(r.prev.Unwrap())
	r.prev = optional.Some(value)

	gain := decimal.Zero
	loss := decimal.Zero
	if change.IsPositive() {
		gain = change
	} else {
		loss = change.Neg()
	}

	r.seen++
	if r.seen < r.period {
		r.avgGain = r.avgGain.Add(gain)
		r.avgLoss = r.avgLoss.Add(loss)
		return optional.None[decimal.Decimal]()
	}

	if r.seen == r.period {
		r.avgGain = r.avgGain.Add(gain).Div(r.periodDe)
		r.avgLoss = r.avgLoss.Add(loss).Div(r.periodDe)
	} else {
		// Wilder smoothing: avg = (avg*(n-1) + current) / n
		nMinusOne := r.periodDe.Sub(decimal.NewFromInt(1))
		r.avgGain = r.avgGain.Mul(nMinusOne).Add(gain).Div(r.periodDe)
		r.avgLoss = r.avgLoss.Mul(nMinusOne).Add(loss).Div(r.periodDe)
	}

	if r.avgLoss.IsZero() {
		return optional.Some(r.hundred)
	}

	rs := r.avgGain.Div(r.avgLoss)
	rsi := r.hundred.Sub(r.hundred.Div(decimal.NewFromInt(1).Add(rs)))
	return optional.Some(rsi)
}

// Reset clears all accumulated state.
func (r *RSI) Reset() {
	r.prev = optional.None[decimal.Decimal]()
	r.avgGain = decimal.Zero
	r.avgLoss = decimal.Zero
	r.seen = 0
}
