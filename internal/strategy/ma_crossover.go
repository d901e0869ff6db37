package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/internal/indicator"
	"github.com/evilc0des/prop-bots/internal/types"
)

// MACrossoverConfig configures the moving average crossover strategy.
type MACrossoverConfig struct {
	FastPeriod int             `yaml:"fast_period" json:"fast_period" validate:"gt=0"`
	SlowPeriod int             `yaml:"slow_period" json:"slow_period" validate:"gt=0"`
	Quantity   decimal.Decimal `yaml:"quantity" json:"quantity"`
}

// DefaultMACrossoverConfig returns the standard 9/21 configuration.
func DefaultMACrossoverConfig() MACrossoverConfig {
	return MACrossoverConfig{
		FastPeriod: 9,
		SlowPeriod: 21,
		Quantity:   decimal.NewFromInt(1),
	}
}

// MACrossover goes long when the fast EMA crosses above the slow EMA
// and short when it crosses below, closing any opposite exposure
// first.
type MACrossover struct {
	config MACrossoverConfig
	fast   *indicator.EMA
	slow   *indicator.EMA

	// fastAbove is the fast-above-slow state of the previous bar,
	// None until both averages are ready.
	fastAbove optional.Option[bool]

	// direction is the net exposure the strategy believes it has:
	// 1 long, -1 short, 0 flat. Maintained from fills.
	direction int
}

// NewMACrossover creates the strategy with the given configuration.
func NewMACrossover(config MACrossoverConfig) *MACrossover {
	return &MACrossover{
		config: config,
		fast:   indicator.NewEMA(config.FastPeriod),
		slow:   indicator.NewEMA(config.SlowPeriod),
	}
}

// ID returns the strategy identifier.
func (s *MACrossover) ID() string {
	return "ma_crossover"
}

// Name returns a human-readable name.
func (s *MACrossover) Name() string {
	return "Moving Average Crossover"
}

// OnStart implements Strategy.
func (s *MACrossover) OnStart() error {
	return nil
}

// OnBar feeds both averages and emits entry signals on crossovers.
func (s *MACrossover) OnBar(bar types.Bar) []types.Signal {
	fastVal := s.fast.Next(bar.Close)
	slowVal := s.slow.Next(bar.Close)
	if fastVal.IsNone() || slowVal.IsNone() {
		return nil
	}

	above := fastVal.Unwrap().GreaterThan(slowVal.Unwrap())
	prev := s.fastAbove
	s.fastAbove = optional.Some(above)

	if prev.IsNone() || prev.Unwrap() == above {
		return nil
	}

	var signals []types.Signal
	if above {
		if s.direction < 0 {
			signals = append(signals, types.Signal{
				Action:     types.SignalExitShort,
				Instrument: bar.Instrument,
				StrategyID: s.ID(),
				Timestamp:  bar.Timestamp,
				Reason:     "fast crossed above slow",
			})
		}
		signals = append(signals, types.Signal{
			Action:     types.SignalBuyEntry,
			Instrument: bar.Instrument,
			Quantity:   optional.Some(s.config.Quantity),
			StrategyID: s.ID(),
			Timestamp:  bar.Timestamp,
			Reason:     "fast crossed above slow",
		})
	} else {
		if s.direction > 0 {
			signals = append(signals, types.Signal{
				Action:     types.SignalExitLong,
				Instrument: bar.Instrument,
				StrategyID: s.ID(),
				Timestamp:  bar.Timestamp,
				Reason:     "fast crossed below slow",
			})
		}
		signals = append(signals, types.Signal{
			Action:     types.SignalSellEntry,
			Instrument: bar.Instrument,
			Quantity:   optional.Some(s.config.Quantity),
			StrategyID: s.ID(),
			Timestamp:  bar.Timestamp,
			Reason:     "fast crossed below slow",
		})
	}

	return signals
}

// OnTick implements Strategy. The crossover trades bars only.
func (s *MACrossover) OnTick(tick types.Tick) []types.Signal {
	return nil
}

// OnFill tracks net exposure from executions.
func (s *MACrossover) OnFill(fill types.Fill) {
	if fill.Side == types.SideBuy {
		s.direction++
	} else {
		s.direction--
	}
	if s.direction > 1 {
		s.direction = 1
	}
	if s.direction < -1 {
		s.direction = -1
	}
}

// OnPositionUpdate implements Strategy.
func (s *MACrossover) OnPositionUpdate(position types.Position) {}

// OnStop implements Strategy.
func (s *MACrossover) OnStop() {}

// Reset clears the averages and exposure state.
func (s *MACrossover) Reset() {
	s.fast.Reset()
	s.slow.Reset()
	s.fastAbove = optional.None[bool]()
	s.direction = 0
}

var _ Strategy = (*MACrossover)(nil)
