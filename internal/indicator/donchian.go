package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/internal/types"
)

// DonchianValue is one Donchian channel sample.
type DonchianValue struct {
	Upper  decimal.Decimal
	Middle decimal.Decimal
	Lower  decimal.Decimal
}

// Donchian implements Donchian channels: the highest high and lowest
// low over the lookback window, with the middle line halfway between.
type Donchian struct {
	period int
	highs  []decimal.Decimal
	lows   []decimal.Decimal
}

// NewDonchian creates a Donchian channel with the given period.
func NewDonchian(period int) *Donchian {
	return &Donchian{
		period: period,
		highs:  make([]decimal.Decimal, 0, period),
		lows:   make([]decimal.Decimal, 0, period),
	}
}

// Name returns the indicator name.
func (d *Donchian) Name() string {
	return "donchian"
}

// Period returns the configured period.
func (d *Donchian) Period() int {
	return d.period
}

// IsReady reports whether the window is full.
func (d *Donchian) IsReady() bool {
	return len(d.highs) >= d.period
}

// NextBar feeds one bar and returns the channel once the window is full.
func (d *Donchian) NextBar(bar types.Bar) optional.Option[DonchianValue] {
	d.highs = append(d.highs, bar.High)
	d.lows = append(d.lows, bar.Low)

	if len(d.highs) > d.period {
		d.highs = d.highs[1:]
		d.lows = d.lows[1:]
	}

	if len(d.highs) < d.period {
		return optional.None[DonchianValue]()
	}

	upper := d.highs[0]
	for _, h := range d.highs[1:] {
		if h.GreaterThan(upper) {
			upper = h
		}
	}

	lower := d.lows[0]
	for _, l := range d.lows[1:] {
		if l.LessThan(lower) {
			lower = l
		}
	}

	return optional.Some(DonchianValue{
		Upper:  upper,
		Middle: upper.Add(lower).Div(decimal.NewFromInt(2)),
		Lower:  lower,
	})
}

// Reset clears the window.
func (d *Donchian) Reset() {
	d.highs = d.highs[:0]
	d.lows = d.lows[:0]
}
