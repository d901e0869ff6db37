package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/internal/utils"
)

// BollingerValue is one Bollinger band sample.
type BollingerValue struct {
	Upper  decimal.Decimal
	Middle decimal.Decimal
	Lower  decimal.Decimal
}

// Bollinger implements Bollinger bands: an SMA middle line with upper
// and lower bands a configurable number of standard deviations away.
type Bollinger struct {
	period int
	stdDev decimal.Decimal
	window []decimal.Decimal
}

// NewBollinger creates Bollinger bands with the given period and
// standard deviation multiplier.
func NewBollinger(period int, stdDev decimal.Decimal) *Bollinger {
	return &Bollinger{
		period: period,
		stdDev: stdDev,
		window: make([]decimal.Decimal, 0, period),
	}
}

// Name returns the indicator name.
func (b *Bollinger) Name() string {
	return "bollinger"
}

// Period returns the configured period.
func (b *Bollinger) Period() int {
	return b.period
}

// IsReady reports whether the window is full.
func (b *Bollinger) IsReady() bool {
	return len(b.window) >= b.period
}

// Next feeds one value and returns the bands once the window is full.
func (b *Bollinger) Next(value decimal.Decimal) optional.Option[BollingerValue] {
	b.window = append(b.window, value)
	if len(b.window) > b.period {
		b.window = b.window[1:]
	}

	if len(b.window) < b.period {
		return optional.None[BollingerValue]()
	}

	middle := utils.Mean(b.window)

	variance := decimal.Zero
	for _, v := range b.window {
		diff := v.Sub(middle)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(decimal.NewFromInt(int64(b.period)))

	band := utils.DecimalSqrt(variance).Mul(b.stdDev)

	return optional.Some(BollingerValue{
		Upper:  middle.Add(band),
		Middle: middle,
		Lower:  middle.Sub(band),
	})
}

// Reset clears the window.
func (b *Bollinger) Reset() {
	b.window = b.window[:0]
}
