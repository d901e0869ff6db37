package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// SMA implements a simple moving average over a rolling window.
type SMA struct {
	period int
	window []decimal.Decimal
	sum    decimal.Decimal
}

// NewSMA creates an SMA with the given period.
func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		window: make([]decimal.Decimal, 0, period),
	}
}

// Name returns the indicator name.
func (s *SMA) Name() string {
	return "sma"
}

// Period returns the configured period.
func (s *SMA) Period() int {
	return s.period
}

// IsReady reports whether the window is full.
func (s *SMA) IsReady() bool {
	return len(s.window) >= s.period
}

// Next feeds one value and returns the average once the window is full.
func (s *SMA) Next(value decimal.Decimal) optional.Option[decimal.Decimal] {
	s.window = append(s.window, value)
	s.sum = s.sum.Add(value)

	if len(s.window) > s.period {
		s.sum = s.sum.Sub(s.window[0])
		s.window = s.window[1:]
	}

	if len(s.window) < s.period {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(s.sum.Div(decimal.NewFromInt(int64(s.period))))
}

// Reset clears the window.
func (s *SMA) Reset() {
	s.window = s.window[:0]
	s.sum = decimal.Zero
}
