package sim

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

type SimBrokerTestSuite struct {
	suite.Suite
	ctx    context.Context
	broker *SimulatedBroker
	now    time.Time
}

func TestSimBrokerSuite(t *testing.T) {
	suite.Run(t, new(SimBrokerTestSuite))
}

func (suite *SimBrokerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.now = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

	broker, err := NewSimulatedBroker(suite.config(decimal.Zero, decimal.Zero), logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.broker = broker
}

func (suite *SimBrokerTestSuite) config(commission, slippageTicks decimal.Decimal) Config {
	return Config{
		Instrument: types.Instrument{
			Symbol:     "ES",
			AssetClass: types.AssetClassFutures,
			TickSize:   decimal.NewFromFloat(0.25),
			TickValue:  decimal.NewFromFloat(12.5),
			Currency:   "USD",
		},
		InitialBalance:        decimal.NewFromInt(50000),
		CommissionPerContract: commission,
		SlippageTicks:         slippageTicks,
	}
}

func (suite *SimBrokerTestSuite) bar(closePrice float64, at time.Time) types.Bar {
	c := decimal.NewFromFloat(closePrice)
	return types.Bar{
		Instrument: "ES",
		Timestamp:  at,
		Open:       c,
		High:       c.Add(decimal.NewFromInt(1)),
		Low:        c.Sub(decimal.NewFromInt(1)),
		Close:      c,
	}
}

func (suite *SimBrokerTestSuite) mark(closePrice float64) []types.Fill {
	fills, err := suite.broker.MarkToMarket(suite.bar(closePrice, suite.now))
	suite.Require().NoError(err)
	suite.now = suite.now.Add(time.Minute)
	return fills
}

func (suite *SimBrokerTestSuite) TestConfigValidate() {
	cfg := suite.config(decimal.Zero, decimal.Zero)
	suite.NoError(cfg.Validate())

	bad := cfg
	bad.InitialBalance = decimal.Zero
	suite.Error(bad.Validate())

	bad = cfg
	bad.CommissionPerContract = decimal.NewFromInt(-1)
	suite.Error(bad.Validate())

	bad = cfg
	bad.Instrument.TickSize = decimal.Zero
	suite.Error(bad.Validate())
}

func (suite *SimBrokerTestSuite) TestMarketOrderFillsImmediately() {
	suite.mark(100)

	order := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(2), suite.now)
	filled, err := suite.broker.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, filled.Status)

	positions, err := suite.broker.Positions(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(positions, 1)
	suite.Equal(types.SideBuy, positions[0].Side)
	suite.True(positions[0].Quantity.Equal(decimal.NewFromInt(2)))
	suite.True(positions[0].AvgEntryPrice.Equal(decimal.NewFromInt(100)))
}

func (suite *SimBrokerTestSuite) TestSubmitBeforeMarketDataRejected() {
	order := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(1), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, order)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderRejected))
}

func (suite *SimBrokerTestSuite) TestUnrealizedPnLAndEquity() {
	suite.mark(100)
	order := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(1), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	// +2 points = 8 ticks = $100 unrealized.
	suite.mark(102)

	account, err := suite.broker.AccountState(suite.ctx)
	suite.Require().NoError(err)
	suite.True(account.UnrealizedPnL.Equal(decimal.NewFromInt(100)))
	suite.True(account.Equity.Equal(account.Balance.Add(account.UnrealizedPnL)))
	suite.True(account.Equity.Equal(decimal.NewFromInt(50100)))
	suite.Equal(1, account.OpenPositions)
}

func (suite *SimBrokerTestSuite) TestHighWaterMarkMonotone() {
	suite.mark(100)
	order := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(1), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	suite.mark(104)
	account, _ := suite.broker.AccountState(suite.ctx)
	peak := account.HighWaterMark
	suite.True(peak.Equal(decimal.NewFromInt(50200)))

	suite.mark(98)
	account, _ = suite.broker.AccountState(suite.ctx)
	suite.True(account.HighWaterMark.Equal(peak))
	suite.True(account.Equity.LessThan(peak))
}

func (suite *SimBrokerTestSuite) TestReversal() {
	// Long 3 @ 100, then sell 5 @ 105: one trade of qty 3 with pnl
	// (5/0.25)*12.5*3 = 750, and a new short position of 2 @ 105.
	suite.mark(100)
	buy := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(3), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, buy)
	suite.Require().NoError(err)

	suite.mark(105)
	sell := types.NewMarketOrder("ES", types.SideSell, decimal.NewFromInt(5), suite.now)
	_, err = suite.broker.SubmitOrder(suite.ctx, sell)
	suite.Require().NoError(err)

	trades := suite.broker.TradeLog()
	suite.Require().Len(trades, 1)
	suite.True(trades[0].Quantity.Equal(decimal.NewFromInt(3)))
	suite.True(trades[0].EntryPrice.Equal(decimal.NewFromInt(100)))
	suite.True(trades[0].ExitPrice.Equal(decimal.NewFromInt(105)))
	suite.True(trades[0].PnL.Equal(decimal.NewFromInt(750)))

	positions, err := suite.broker.Positions(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(positions, 1)
	suite.Equal(types.SideSell, positions[0].Side)
	suite.True(positions[0].Quantity.Equal(decimal.NewFromInt(2)))
	suite.True(positions[0].AvgEntryPrice.Equal(decimal.NewFromInt(105)))
}

func (suite *SimBrokerTestSuite) TestRoundTripCommissionAndSlippage() {
	// Closes 100, 101, 99 with 1 tick slippage and $4/contract: buy
	// fills at 100.25, sell at 98.75, pnl -75, net -83.
	broker, err := NewSimulatedBroker(
		suite.config(decimal.NewFromInt(4), decimal.NewFromInt(1)),
		logger.NewNopLogger(),
	)
	suite.Require().NoError(err)
	suite.broker = broker

	suite.mark(100)
	buy := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(1), suite.now)
	_, err = suite.broker.SubmitOrder(suite.ctx, buy)
	suite.Require().NoError(err)

	suite.mark(101)

	suite.mark(99)
	sell := types.NewMarketOrder("ES", types.SideSell, decimal.NewFromInt(1), suite.now)
	_, err = suite.broker.SubmitOrder(suite.ctx, sell)
	suite.Require().NoError(err)

	trades := suite.broker.TradeLog()
	suite.Require().Len(trades, 1)
	suite.True(trades[0].EntryPrice.Equal(decimal.NewFromFloat(100.25)))
	suite.True(trades[0].ExitPrice.Equal(decimal.NewFromFloat(98.75)))
	suite.True(trades[0].PnL.Equal(decimal.NewFromInt(-75)))
	suite.True(trades[0].Commission.Equal(decimal.NewFromInt(8)))
	suite.True(trades[0].NetPnL().Equal(decimal.NewFromInt(-83)))

	account, err := suite.broker.AccountState(suite.ctx)
	suite.Require().NoError(err)
	suite.True(account.Balance.Equal(decimal.NewFromInt(49917)))
}

func (suite *SimBrokerTestSuite) TestPartialCloseSplitsEntryCommission() {
	broker, err := NewSimulatedBroker(
		suite.config(decimal.NewFromInt(4), decimal.Zero),
		logger.NewNopLogger(),
	)
	suite.Require().NoError(err)
	suite.broker = broker

	suite.mark(100)
	buy := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(4), suite.now)
	_, err = suite.broker.SubmitOrder(suite.ctx, buy)
	suite.Require().NoError(err)

	suite.mark(101)
	sell := types.NewMarketOrder("ES", types.SideSell, decimal.NewFromInt(1), suite.now)
	_, err = suite.broker.SubmitOrder(suite.ctx, sell)
	suite.Require().NoError(err)

	// Entry commission 16 split 1/4 = 4, plus exit 4.
	trades := suite.broker.TradeLog()
	suite.Require().Len(trades, 1)
	suite.True(trades[0].Commission.Equal(decimal.NewFromInt(8)))

	positions, err := suite.broker.Positions(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(positions, 1)
	suite.True(positions[0].Quantity.Equal(decimal.NewFromInt(3)))
	suite.True(positions[0].EntryCommission.Equal(decimal.NewFromInt(12)))
}

func (suite *SimBrokerTestSuite) TestLimitOrderTriggering() {
	suite.mark(100)

	// Buy limit below the market. Not touched on the first bar.
	limit := types.NewLimitOrder("ES", types.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(97), suite.now)
	submitted, err := suite.broker.SubmitOrder(suite.ctx, limit)
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusSubmitted, submitted.Status)

	fills := suite.mark(99)
	suite.Empty(fills)

	// Bar low 96 touches the 97 limit; fill at close.
	fills = suite.mark(97)
	suite.Require().Len(fills, 1)
	suite.True(fills[0].Price.Equal(decimal.NewFromInt(97)))

	active, err := suite.broker.ActiveOrders(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(active)
}

func (suite *SimBrokerTestSuite) TestStopOrderTriggering() {
	suite.mark(100)

	// Sell stop below the market, e.g. a protective stop.
	stop := types.NewStopOrder("ES", types.SideSell, decimal.NewFromInt(1), decimal.NewFromInt(98), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, stop)
	suite.Require().NoError(err)

	fills := suite.mark(100)
	suite.Empty(fills)

	// Bar low 97.5 crosses the 98 stop.
	fills = suite.mark(98.5)
	suite.Require().Len(fills, 1)
	suite.Equal(types.SideSell, fills[0].Side)
}

func (suite *SimBrokerTestSuite) TestTriggeredOrdersFillInSubmissionOrder() {
	suite.mark(100)

	first := types.NewLimitOrder("ES", types.SideBuy, decimal.NewFromInt(1), decimal.NewFromFloat(99.5), suite.now)
	second := types.NewLimitOrder("ES", types.SideBuy, decimal.NewFromInt(1), decimal.NewFromFloat(99.75), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, first)
	suite.Require().NoError(err)
	_, err = suite.broker.SubmitOrder(suite.ctx, second)
	suite.Require().NoError(err)

	fills := suite.mark(99)
	suite.Require().Len(fills, 2)
	suite.Equal(first.ID, fills[0].OrderID)
	suite.Equal(second.ID, fills[1].OrderID)
}

func (suite *SimBrokerTestSuite) TestCancelUnknownOrder() {
	suite.mark(100)

	order := types.NewLimitOrder("ES", types.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(95), suite.now)
	err := suite.broker.CancelOrder(suite.ctx, order.ID)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderNotFound))
}

func (suite *SimBrokerTestSuite) TestCancelRemovesWorkingOrder() {
	suite.mark(100)

	order := types.NewLimitOrder("ES", types.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(95), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	suite.NoError(suite.broker.CancelOrder(suite.ctx, order.ID))

	active, err := suite.broker.ActiveOrders(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(active)
}

func (suite *SimBrokerTestSuite) TestModifyOrder() {
	suite.mark(100)

	order := types.NewLimitOrder("ES", types.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(95), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, order)
	suite.Require().NoError(err)

	update := *order
	update.Quantity = decimal.NewFromInt(2)
	modified, err := suite.broker.ModifyOrder(suite.ctx, &update)
	suite.Require().NoError(err)
	suite.True(modified.Quantity.Equal(decimal.NewFromInt(2)))
	suite.Equal(order.ID, modified.ID)

	unknown := types.NewLimitOrder("ES", types.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(95), suite.now)
	_, err = suite.broker.ModifyOrder(suite.ctx, unknown)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderNotFound))
}

func (suite *SimBrokerTestSuite) TestFlattenAll() {
	suite.mark(100)
	buy := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(2), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, buy)
	suite.Require().NoError(err)

	suite.mark(103)
	suite.NoError(suite.broker.FlattenAll(suite.ctx))

	positions, err := suite.broker.Positions(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(positions)

	trades := suite.broker.TradeLog()
	suite.Require().Len(trades, 1)
	// +3 points = 12 ticks * 12.5 * 2 contracts.
	suite.True(trades[0].PnL.Equal(decimal.NewFromInt(300)))
}

func (suite *SimBrokerTestSuite) TestDailyPnLTracksEquity() {
	suite.mark(100)
	buy := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(1), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, buy)
	suite.Require().NoError(err)

	suite.mark(98)
	account, _ := suite.broker.AccountState(suite.ctx)
	suite.True(account.DailyPnL.Equal(decimal.NewFromInt(-100)))

	suite.broker.ResetDailyPnL()
	account, _ = suite.broker.AccountState(suite.ctx)
	suite.True(account.DailyPnL.IsZero())

	// Losses after the reset count against the new day only.
	suite.mark(97)
	account, _ = suite.broker.AccountState(suite.ctx)
	suite.True(account.DailyPnL.Equal(decimal.NewFromInt(-50)))
}

func (suite *SimBrokerTestSuite) TestResetRestoresInitialState() {
	suite.mark(100)
	buy := types.NewMarketOrder("ES", types.SideBuy, decimal.NewFromInt(1), suite.now)
	_, err := suite.broker.SubmitOrder(suite.ctx, buy)
	suite.Require().NoError(err)
	suite.mark(105)

	suite.broker.Reset()

	account, err := suite.broker.AccountState(suite.ctx)
	suite.Require().NoError(err)
	suite.True(account.Balance.Equal(decimal.NewFromInt(50000)))
	suite.True(account.Equity.Equal(decimal.NewFromInt(50000)))
	suite.True(account.HighWaterMark.Equal(decimal.NewFromInt(50000)))

	positions, _ := suite.broker.Positions(suite.ctx)
	suite.Empty(positions)
	suite.Empty(suite.broker.TradeLog())
}

func (suite *SimBrokerTestSuite) TestSubscribeMarketData() {
	ch, err := suite.broker.SubscribeMarketData(suite.ctx, "ES", types.Timeframe1Minute)
	suite.Require().NoError(err)

	suite.mark(100)

	event := <-ch
	suite.Equal(types.MarketDataEventBar, event.Type)
	suite.Require().NotNil(event.Bar)
	suite.True(event.Bar.Close.Equal(decimal.NewFromInt(100)))

	_, err = suite.broker.SubscribeMarketData(suite.ctx, "NQ", types.Timeframe1Minute)
	suite.Error(err)
}
