package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

type StrategyTestSuite struct {
	suite.Suite
	now time.Time
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) SetupTest() {
	suite.now = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
}

func (suite *StrategyTestSuite) bar(close float64) types.Bar {
	c := decimal.NewFromFloat(close)
	b := types.Bar{
		Instrument: "ES",
		Timestamp:  suite.now,
		Open:       c,
		High:       c.Add(decimal.NewFromFloat(0.5)),
		Low:        c.Sub(decimal.NewFromFloat(0.5)),
		Close:      c,
	}
	suite.now = suite.now.Add(time.Minute)
	return b
}

func (suite *StrategyTestSuite) TestRegistry() {
	registry := NewRegistry()
	suite.NoError(registry.Register("custom", func() Strategy {
		return NewMACrossover(DefaultMACrossoverConfig())
	}))

	err := registry.Register("custom", func() Strategy { return nil })
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))

	s, err := registry.Create("custom")
	suite.Require().NoError(err)
	suite.Equal("ma_crossover", s.ID())

	_, err = registry.Create("missing")
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownStrategy))

	suite.Equal([]string{"custom"}, registry.List())
}

func (suite *StrategyTestSuite) TestMustRegisterPanicsOnDuplicate() {
	registry := NewRegistry()
	factory := func() Strategy { return NewMACrossover(DefaultMACrossoverConfig()) }

	mustRegister(registry, "custom", factory)
	suite.Panics(func() { mustRegister(registry, "custom", factory) })
}

func (suite *StrategyTestSuite) TestDefaultRegistryHasBuiltins() {
	names := DefaultRegistry.List()
	suite.Contains(names, "ma_crossover")
	suite.Contains(names, "donchian_breakout")
}

func (suite *StrategyTestSuite) TestMACrossoverSignalsOnCross() {
	s := NewMACrossover(MACrossoverConfig{
		FastPeriod: 2,
		SlowPeriod: 4,
		Quantity:   decimal.NewFromInt(1),
	})
	suite.NoError(s.OnStart())

	// Downtrend to establish fast below slow.
	for _, close := range []float64{110, 108, 106, 104, 102} {
		suite.Empty(s.OnBar(suite.bar(close)))
	}

	// Sharp reversal: the fast average crosses above the slow.
	var signals []types.Signal
	for _, close := range []float64{112, 118} {
		signals = s.OnBar(suite.bar(close))
		if len(signals) > 0 {
			break
		}
	}

	suite.Require().NotEmpty(signals)
	suite.Equal(types.SignalBuyEntry, signals[len(signals)-1].Action)
	suite.Equal("ma_crossover", signals[0].StrategyID)
}

func (suite *StrategyTestSuite) TestMACrossoverExitsShortBeforeLongEntry() {
	s := NewMACrossover(MACrossoverConfig{
		FastPeriod: 2,
		SlowPeriod: 3,
		Quantity:   decimal.NewFromInt(1),
	})

	// Pretend a short fill happened earlier.
	s.OnFill(types.Fill{Side: types.SideSell, Quantity: decimal.NewFromInt(1)})

	for _, close := range []float64{110, 108, 106, 104} {
		s.OnBar(suite.bar(close))
	}

	var signals []types.Signal
	for _, close := range []float64{114, 120, 126} {
		signals = s.OnBar(suite.bar(close))
		if len(signals) > 0 {
			break
		}
	}

	suite.Require().Len(signals, 2)
	suite.Equal(types.SignalExitShort, signals[0].Action)
	suite.Equal(types.SignalBuyEntry, signals[1].Action)
}

func (suite *StrategyTestSuite) TestMACrossoverResetClearsState() {
	s := NewMACrossover(MACrossoverConfig{
		FastPeriod: 2,
		SlowPeriod: 3,
		Quantity:   decimal.NewFromInt(1),
	})

	for _, close := range []float64{110, 108, 106, 118, 126} {
		s.OnBar(suite.bar(close))
	}

	s.Reset()
	suite.Empty(s.OnBar(suite.bar(100)))
	suite.Equal(0, s.direction)
}

func (suite *StrategyTestSuite) TestDonchianBreakoutLong() {
	s := NewDonchianBreakout(DonchianBreakoutConfig{
		Period:   3,
		Quantity: decimal.NewFromInt(2),
	})

	// Build the channel in a tight range.
	for _, close := range []float64{100, 101, 100, 101} {
		suite.Empty(s.OnBar(suite.bar(close)))
	}

	// Close well above the channel high.
	signals := s.OnBar(suite.bar(105))
	suite.Require().Len(signals, 1)
	suite.Equal(types.SignalBuyEntry, signals[0].Action)
	suite.True(signals[0].Quantity.Unwrap().Equal(decimal.NewFromInt(2)))
}

func (suite *StrategyTestSuite) TestDonchianBreakoutShortAfterLong() {
	s := NewDonchianBreakout(DonchianBreakoutConfig{
		Period:   3,
		Quantity: decimal.NewFromInt(1),
	})

	for _, close := range []float64{100, 101, 100, 101} {
		s.OnBar(suite.bar(close))
	}

	signals := s.OnBar(suite.bar(105))
	suite.Require().NotEmpty(signals)
	s.OnFill(types.Fill{Side: types.SideBuy, Quantity: decimal.NewFromInt(1)})

	// No repeated entries while already long.
	suite.Empty(s.OnBar(suite.bar(106)))

	// Collapse through the channel low.
	var short []types.Signal
	for _, close := range []float64{95, 90} {
		short = s.OnBar(suite.bar(close))
		if len(short) > 0 {
			break
		}
	}

	suite.Require().Len(short, 2)
	suite.Equal(types.SignalExitLong, short[0].Action)
	suite.Equal(types.SignalSellEntry, short[1].Action)
}

func (suite *StrategyTestSuite) TestDonchianTrailingStop() {
	s := NewDonchianBreakout(DonchianBreakoutConfig{
		Period:        3,
		Quantity:      decimal.NewFromInt(1),
		ATRPeriod:     2,
		ATRMultiplier: decimal.NewFromInt(1),
	})

	for _, close := range []float64{100, 101, 100, 101} {
		s.OnBar(suite.bar(close))
	}

	// Breakout long, then ratchet the stop under the next close.
	signals := s.OnBar(suite.bar(105))
	suite.Require().NotEmpty(signals)
	s.OnFill(types.Fill{Side: types.SideBuy, Quantity: decimal.NewFromInt(1)})

	suite.Empty(s.OnBar(suite.bar(106)))

	// A pullback through the stop exits without waiting for the
	// opposite channel break.
	exit := s.OnBar(suite.bar(103))
	suite.Require().Len(exit, 1)
	suite.Equal(types.SignalExitLong, exit[0].Action)
	suite.Equal("trailing stop", exit[0].Reason)
}
