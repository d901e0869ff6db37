package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/internal/indicator"
	"github.com/evilc0des/prop-bots/internal/types"
)

// DonchianBreakoutConfig configures the channel breakout strategy.
// An ATRPeriod of zero disables the trailing stop.
type DonchianBreakoutConfig struct {
	Period        int             `yaml:"period" json:"period" validate:"gt=0"`
	Quantity      decimal.Decimal `yaml:"quantity" json:"quantity"`
	ATRPeriod     int             `yaml:"atr_period" json:"atr_period"`
	ATRMultiplier decimal.Decimal `yaml:"atr_multiplier" json:"atr_multiplier"`
}

// DefaultDonchianBreakoutConfig returns the standard 20 bar
// configuration with a 14 bar, 2x ATR trailing stop.
func DefaultDonchianBreakoutConfig() DonchianBreakoutConfig {
	return DonchianBreakoutConfig{
		Period:        20,
		Quantity:      decimal.NewFromInt(1),
		ATRPeriod:     14,
		ATRMultiplier: decimal.NewFromInt(2),
	}
}

// DonchianBreakout buys when the close breaks above the previous
// bar's channel high and sells when it breaks below the channel low,
// closing any opposite exposure first. The channel of the current bar
// is never used for the current bar's decision, since the bar itself
// would widen it.
type DonchianBreakout struct {
	config  DonchianBreakoutConfig
	channel *indicator.Donchian
	atr     *indicator.ATR

	prevChannel optional.Option[indicator.DonchianValue]
	direction   int
	stop        optional.Option[decimal.Decimal]
}

// NewDonchianBreakout creates the strategy with the given
// configuration.
func NewDonchianBreakout(config DonchianBreakoutConfig) *DonchianBreakout {
	s := &DonchianBreakout{
		config:  config,
		channel: indicator.NewDonchian(config.Period),
	}
	if config.ATRPeriod > 0 {
		s.atr = indicator.NewATR(config.ATRPeriod)
	}
	return s
}

// ID returns the strategy identifier.
func (s *DonchianBreakout) ID() string {
	return "donchian_breakout"
}

// Name returns a human-readable name.
func (s *DonchianBreakout) Name() string {
	return "Donchian Channel Breakout"
}

// OnStart implements Strategy.
func (s *DonchianBreakout) OnStart() error {
	return nil
}

// OnBar compares the close against the previous channel and emits
// breakout entries, then advances the trailing stop.
func (s *DonchianBreakout) OnBar(bar types.Bar) []types.Signal {
	prev := s.prevChannel
	s.prevChannel = s.channel.NextBar(bar)

	var atrValue optional.Option[decimal.Decimal]
	if s.atr != nil {
		atrValue = s.atr.NextBar(bar)
	}

	if prev.IsNone() {
		return nil
	}

	channel := prev.Unwrap()

	if signal, stopped := s.checkTrailingStop(bar); stopped {
		return []types.Signal{signal}
	}

	var signals []types.Signal
	switch {
	case bar.Close.GreaterThan(channel.Upper) && s.direction <= 0:
		if s.direction < 0 {
			signals = append(signals, types.Signal{
				Action:     types.SignalExitShort,
				Instrument: bar.Instrument,
				StrategyID: s.ID(),
				Timestamp:  bar.Timestamp,
				Reason:     "close above channel high",
			})
		}
		signals = append(signals, types.Signal{
			Action:     types.SignalBuyEntry,
			Instrument: bar.Instrument,
			Quantity:   optional.Some(s.config.Quantity),
			StrategyID: s.ID(),
			Timestamp:  bar.Timestamp,
			Reason:     "close above channel high",
		})
	case bar.Close.LessThan(channel.Lower) && s.direction >= 0:
		if s.direction > 0 {
			signals = append(signals, types.Signal{
				Action:     types.SignalExitLong,
				Instrument: bar.Instrument,
				StrategyID: s.ID(),
				Timestamp:  bar.Timestamp,
				Reason:     "close below channel low",
			})
		}
		signals = append(signals, types.Signal{
			Action:     types.SignalSellEntry,
			Instrument: bar.Instrument,
			Quantity:   optional.Some(s.config.Quantity),
			StrategyID: s.ID(),
			Timestamp:  bar.Timestamp,
			Reason:     "close below channel low",
		})
	}

	s.advanceTrailingStop(bar, atrValue)
	return signals
}

// checkTrailingStop emits an exit when the close crosses the stop set
// on a previous bar.
func (s *DonchianBreakout) checkTrailingStop(bar types.Bar) (types.Signal, bool) {
	stop, err := s.stop.Take()
	if err != nil {
		return types.Signal{}, false
	}

	if s.direction > 0 && bar.Close.LessThan(stop) {
		s.stop = optional.None[decimal.Decimal]()
		return types.Signal{
			Action:     types.SignalExitLong,
			Instrument: bar.Instrument,
			StrategyID: s.ID(),
			Timestamp:  bar.Timestamp,
			Reason:     "trailing stop",
		}, true
	}
	if s.direction < 0 && bar.Close.GreaterThan(stop) {
		s.stop = optional.None[decimal.Decimal]()
		return types.Signal{
			Action:     types.SignalExitShort,
			Instrument: bar.Instrument,
			StrategyID: s.ID(),
			Timestamp:  bar.Timestamp,
			Reason:     "trailing stop",
		}, true
	}
	return types.Signal{}, false
}

// advanceTrailingStop ratchets the stop in the trade's favor. The stop
// never loosens while a position direction is held.
func (s *DonchianBreakout) advanceTrailingStop(bar types.Bar, atrValue optional.Option[decimal.Decimal]) {
	if s.direction == 0 {
		s.stop = optional.None[decimal.Decimal]()
		return
	}

	atr, err := atrValue.Take()
	if err != nil {
		return
	}
	offset := atr.Mul(s.config.ATRMultiplier)

	if s.direction > 0 {
		candidate := bar.Close.Sub(offset)
		if current, err := s.stop.Take(); err != nil || candidate.GreaterThan(current) {
			s.stop = optional.Some(candidate)
		}
		return
	}

	candidate := bar.Close.Add(offset)
	if current, err := s.stop.Take(); err != nil || candidate.LessThan(current) {
		s.stop = optional.Some(candidate)
	}
}

// OnTick implements Strategy. The breakout trades bars only.
func (s *DonchianBreakout) OnTick(tick types.Tick) []types.Signal {
	return nil
}

// OnFill tracks net exposure from executions.
func (s *DonchianBreakout) OnFill(fill types.Fill) {
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
func (s *DonchianBreakout) OnPositionUpdate(position types.Position) {}

// OnStop implements Strategy.
func (s *DonchianBreakout) OnStop() {}

// Reset clears the channel, stop and exposure state.
func (s *DonchianBreakout) Reset() {
	s.channel.Reset()
	if s.atr != nil {
		s.atr.Reset()
	}
	s.prevChannel = optional.None[indicator.DonchianValue]()
	s.direction = 0
	s.stop = optional.None[decimal.Decimal]()
}

var _ Strategy = (*DonchianBreakout)(nil)
