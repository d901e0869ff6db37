// Package sim implements the Broker interface as a deterministic
// simulated execution venue for backtests. All calls resolve
// synchronously against in-memory state; fills happen at the current
// bar close adjusted by configured slippage.
package sim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// Config is the execution configuration of the simulated broker.
type Config struct {
	Instrument            types.Instrument `yaml:"instrument" json:"instrument"`
	InitialBalance        decimal.Decimal  `yaml:"initial_balance" json:"initial_balance"`
	CommissionPerContract decimal.Decimal  `yaml:"commission_per_contract" json:"commission_per_contract"`
	SlippageTicks         decimal.Decimal  `yaml:"slippage_ticks" json:"slippage_ticks"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Instrument.Validate(); err != nil {
		return err
	}

	if !c.InitialBalance.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "initial balance must be positive, got %s", c.InitialBalance)
	}

	if c.CommissionPerContract.IsNegative() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "commission must not be negative, got %s", c.CommissionPerContract)
	}

	if c.SlippageTicks.IsNegative() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "slippage ticks must not be negative, got %s", c.SlippageTicks)
	}

	return nil
}

// SimulatedBroker executes orders against bar data. Positions and
// working orders are owned exclusively by the broker; readers receive
// copies.
type SimulatedBroker struct {
	config Config
	logger *logger.Logger

	connected      bool
	account        types.AccountState
	dayStartEquity decimal.Decimal
	positions      map[string]*types.Position
	workingOrders  []*types.Order
	trades         []types.Trade
	currentBar     types.Bar
	hasBar         bool

	subscribers []chan types.MarketDataEvent
	onFill      func(types.Fill)
}

// SetFillHandler registers a callback invoked after every fill, with
// the account and position book already updated. The orchestrator uses
// it to forward fills to the strategy.
func (b *SimulatedBroker) SetFillHandler(fn func(types.Fill)) {
	b.onFill = fn
}

// NewSimulatedBroker creates a simulated broker with the given
// execution configuration.
func NewSimulatedBroker(config Config, l *logger.Logger) (*SimulatedBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if l == nil {
		l = logger.NewNopLogger()
	}

	b := &SimulatedBroker{
		config: config,
		logger: l,
	}
	b.resetState()
	return b, nil
}

func (b *SimulatedBroker) resetState() {
	b.account = types.NewAccountState(b.config.InitialBalance, time.Time{})
	b.dayStartEquity = b.config.InitialBalance
	b.positions = make(map[string]*types.Position)
	b.workingOrders = nil
	b.trades = nil
	b.currentBar = types.Bar{}
	b.hasBar = false
}

// Reset clears positions, orders and trades and restores the initial
// account snapshot, so one broker instance can be reused across runs.
func (b *SimulatedBroker) Reset() {
	b.resetState()
	b.logger.Debug("simulated broker reset")
}

// ResetDailyPnL re-bases the daily PnL at the current equity. Called by
// the orchestrator on session rollover.
func (b *SimulatedBroker) ResetDailyPnL() {
	b.dayStartEquity = b.account.Equity
	b.account.DailyPnL = decimal.Zero
}

// Connect marks the broker connected. The simulated venue has no
// transport.
func (b *SimulatedBroker) Connect(ctx context.Context) error {
	b.connected = true
	return nil
}

// Disconnect marks the broker disconnected and closes subscriptions.
func (b *SimulatedBroker) Disconnect(ctx context.Context) error {
	b.connected = false
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
	return nil
}

// IsConnected reports the connection flag.
func (b *SimulatedBroker) IsConnected() bool {
	return b.connected
}

// MarkToMarket processes one bar: recomputes unrealized PnL and the
// account snapshot from the bar close, then evaluates working orders
// against the bar high/low. Triggered orders fill at the bar close
// adjusted by slippage, in submission order. Returns the fills
// produced by triggered orders.
func (b *SimulatedBroker) MarkToMarket(bar types.Bar) ([]types.Fill, error) {
	if err := bar.Validate(); err != nil {
		return nil, err
	}

	b.currentBar = bar
	b.hasBar = true

	b.recomputeAccount()
	b.publish(types.MarketDataEvent{Type: types.MarketDataEventBar, Bar: &bar})

	var fills []types.Fill
	remaining := b.workingOrders[:0]
	for _, order := range b.workingOrders {
		if !b.shouldTrigger(order, bar) {
			remaining = append(remaining, order)
			continue
		}

		fill := b.fillOrder(order, bar.Timestamp)
		fills = append(fills, fill)
	}
	b.workingOrders = remaining

	return fills, nil
}

// shouldTrigger evaluates a working order against the bar range. Buy
// limits trigger when low <= limit, sell limits when high >= limit;
// buy stops when high >= stop, sell stops when low <= stop.
func (b *SimulatedBroker) shouldTrigger(order *types.Order, bar types.Bar) bool {
	switch order.Type {
	case types.OrderTypeLimit:
		limit := order.LimitPrice.Unwrap()
		if order.Side == types.SideBuy {
			return bar.Low.LessThanOrEqual(limit)
		}
		return bar.High.GreaterThanOrEqual(limit)
	case types.OrderTypeStop, types.OrderTypeStopLimit:
		stop := order.StopPrice.Unwrap()
		if order.Side == types.SideBuy {
			return bar.High.GreaterThanOrEqual(stop)
		}
		return bar.Low.LessThanOrEqual(stop)
	default:
		return false
	}
}

// SubmitOrder validates and executes an order. Market orders fill
// immediately at the current bar close adjusted by slippage; working
// order types join the working set with status Submitted.
func (b *SimulatedBroker) SubmitOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if order.Instrument != b.config.Instrument.Symbol {
		return nil, errors.Newf(errors.ErrCodeOrderRejected, "unknown instrument %q", order.Instrument)
	}

	if !b.hasBar {
		return nil, errors.New(errors.ErrCodeOrderRejected, "no market data yet")
	}

	if err := b.checkMargin(order); err != nil {
		return nil, err
	}

	if order.Type == types.OrderTypeMarket {
		b.fillOrder(order, b.currentBar.Timestamp)
		return order, nil
	}

	order.Status = types.OrderStatusSubmitted
	order.UpdatedAt = b.currentBar.Timestamp
	b.workingOrders = append(b.workingOrders, order)
	return order, nil
}

// checkMargin rejects orders whose notional exceeds available margin.
// Instruments with no contract size configured skip the check.
func (b *SimulatedBroker) checkMargin(order *types.Order) error {
	if !b.config.Instrument.ContractSize.IsPositive() {
		return nil
	}

	required := order.Quantity.Mul(b.config.Instrument.ContractSize)
	if required.GreaterThan(b.account.MarginAvailable) {
		return errors.Newf(errors.ErrCodeInsufficientMargin,
			"order requires %s margin, %s available", required, b.account.MarginAvailable)
	}

	return nil
}

// CancelOrder removes a working order.
func (b *SimulatedBroker) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	for i, order := range b.workingOrders {
		if order.ID == orderID {
			order.Status = types.OrderStatusCancelled
			order.UpdatedAt = b.currentBar.Timestamp
			b.workingOrders = append(b.workingOrders[:i], b.workingOrders[i+1:]...)
			return nil
		}
	}
	return errors.Newf(errors.ErrCodeOrderNotFound, "order %s not in working set", orderID)
}

// ModifyOrder updates price, stop and quantity of a working order in
// place, preserving its id and creation time.
func (b *SimulatedBroker) ModifyOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	for _, working := range b.workingOrders {
		if working.ID == order.ID {
			working.Quantity = order.Quantity
			working.LimitPrice = order.LimitPrice
			working.StopPrice = order.StopPrice
			working.UpdatedAt = b.currentBar.Timestamp
			if err := working.Validate(); err != nil {
				return nil, err
			}
			return working, nil
		}
	}
	return nil, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not in working set", order.ID)
}

// AccountState returns a copy of the latest account snapshot.
func (b *SimulatedBroker) AccountState(ctx context.Context) (types.AccountState, error) {
	return b.account, nil
}

// Positions returns copies of all open positions.
func (b *SimulatedBroker) Positions(ctx context.Context) ([]types.Position, error) {
	positions := make([]types.Position, 0, len(b.positions))
	for _, p := range b.positions {
		positions = append(positions, *p)
	}
	return positions, nil
}

// ActiveOrders returns copies of all working orders.
func (b *SimulatedBroker) ActiveOrders(ctx context.Context) ([]types.Order, error) {
	orders := make([]types.Order, 0, len(b.workingOrders))
	for _, o := range b.workingOrders {
		orders = append(orders, *o)
	}
	return orders, nil
}

// FlattenAll synthesizes one opposite-side market order per open
// position and fills it immediately.
func (b *SimulatedBroker) FlattenAll(ctx context.Context) error {
	if !b.hasBar {
		return nil
	}

	for _, position := range b.snapshotPositions() {
		order := types.NewMarketOrder(
			position.Instrument,
			position.Side.Opposite(),
			position.Quantity,
			b.currentBar.Timestamp,
		)
		order.Reason = "flatten_all"
		order.StrategyID = position.StrategyID
		b.fillOrder(order, b.currentBar.Timestamp)
	}

	return nil
}

func (b *SimulatedBroker) snapshotPositions() []types.Position {
	positions := make([]types.Position, 0, len(b.positions))
	for _, p := range b.positions {
		positions = append(positions, *p)
	}
	return positions
}

// SubscribeMarketData returns a stream fed by MarkToMarket. Events are
// dropped rather than blocking the backtest loop if the subscriber
// falls behind.
func (b *SimulatedBroker) SubscribeMarketData(ctx context.Context, instrument string, timeframe types.Timeframe) (<-chan types.MarketDataEvent, error) {
	if instrument != b.config.Instrument.Symbol {
		return nil, errors.Newf(errors.ErrCodeOrderRejected, "unknown instrument %q", instrument)
	}

	ch := make(chan types.MarketDataEvent, 1024)
	b.subscribers = append(b.subscribers, ch)
	return ch, nil
}

func (b *SimulatedBroker) publish(event types.MarketDataEvent) {
	for _, sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// TradeLog returns a copy of all completed trades.
func (b *SimulatedBroker) TradeLog() []types.Trade {
	trades := make([]types.Trade, len(b.trades))
	copy(trades, b.trades)
	return trades
}

// fillPrice is the bar close adjusted by slippage: buys pay up, sells
// receive less.
func (b *SimulatedBroker) fillPrice(side types.Side) decimal.Decimal {
	slip := b.config.SlippageTicks.Mul(b.config.Instrument.TickSize)
	if side == types.SideBuy {
		return b.currentBar.Close.Add(slip)
	}
	return b.currentBar.Close.Sub(slip)
}

// fillOrder executes the full quantity of an order at the slippage
// adjusted price, netting against any existing position. Commission is
// charged per contract on every fill and deducted from the balance at
// fill time; completed trades carry their full round-trip commission.
func (b *SimulatedBroker) fillOrder(order *types.Order, at time.Time) types.Fill {
	price := b.fillPrice(order.Side)
	commission := b.config.CommissionPerContract.Mul(order.Quantity)

	b.account.Balance = b.account.Balance.Sub(commission)
	b.applyFill(order, price, commission, at)

	order.FilledQuantity = order.Quantity
	order.Status = types.OrderStatusFilled
	order.UpdatedAt = at

	fill := types.Fill{
		ID:         uuid.New(),
		OrderID:    order.ID,
		Instrument: order.Instrument,
		Side:       order.Side,
		Quantity:   order.Quantity,
		Price:      price,
		Commission: commission,
		Timestamp:  at,
	}

	b.recomputeAccount()

	if b.onFill != nil {
		b.onFill(fill)
	}

	b.logger.Debug("order filled",
		zap.String("order_id", order.ID.String()),
		zap.String("side", string(order.Side)),
		zap.String("quantity", order.Quantity.String()),
		zap.String("price", price.String()),
	)

	return fill
}

// applyFill nets a fill against the position book. Same-side fills
// scale in at a weighted average entry; opposite-side fills realize a
// trade for the closed quantity, and any residual quantity reverses
// into a new position on the fill side.
func (b *SimulatedBroker) applyFill(order *types.Order, price, commission decimal.Decimal, at time.Time) {
	position, exists := b.positions[order.Instrument]

	if !exists {
		b.positions[order.Instrument] = &types.Position{
			Instrument:      order.Instrument,
			Side:            order.Side,
			Quantity:        order.Quantity,
			AvgEntryPrice:   price,
			EntryCommission: commission,
			OpenedAt:        at,
			UpdatedAt:       at,
			StrategyID:      order.StrategyID,
		}
		return
	}

	if position.Side == order.Side {
		oldNotional := position.AvgEntryPrice.Mul(position.Quantity)
		newNotional := price.Mul(order.Quantity)
		total := position.Quantity.Add(order.Quantity)
		position.AvgEntryPrice = oldNotional.Add(newNotional).Div(total)
		position.Quantity = total
		position.EntryCommission = position.EntryCommission.Add(commission)
		position.UpdatedAt = at
		return
	}

	closeQty := decimal.Min(position.Quantity, order.Quantity)
	b.realizeTrade(position, order, price, closeQty, at)

	remainder := order.Quantity.Sub(position.Quantity)
	switch {
	case remainder.IsPositive():
		// Reversal: residual quantity opens a fresh position on the
		// fill side, carrying its share of this fill's commission.
		delete(b.positions, order.Instrument)
		b.positions[order.Instrument] = &types.Position{
			Instrument:      order.Instrument,
			Side:            order.Side,
			Quantity:        remainder,
			AvgEntryPrice:   price,
			EntryCommission: b.config.CommissionPerContract.Mul(remainder),
			OpenedAt:        at,
			UpdatedAt:       at,
			StrategyID:      order.StrategyID,
		}
	case remainder.IsZero():
		delete(b.positions, order.Instrument)
	default:
		position.EntryCommission = position.EntryCommission.Sub(
			position.EntryCommission.Mul(closeQty).Div(position.Quantity))
		position.Quantity = position.Quantity.Sub(closeQty)
		position.UpdatedAt = at
	}
}

// realizeTrade books a completed round trip for closeQty contracts.
// PnL is gross; the trade commission is the proportional share of the
// entry commission plus the exit commission for the closed quantity.
func (b *SimulatedBroker) realizeTrade(position *types.Position, order *types.Order, exitPrice, closeQty decimal.Decimal, at time.Time) {
	ticks := exitPrice.Sub(position.AvgEntryPrice).Div(b.config.Instrument.TickSize)
	if position.Side == types.SideSell {
		ticks = ticks.Neg()
	}
	pnl := ticks.Mul(b.config.Instrument.TickValue).Mul(closeQty)

	entryShare := position.EntryCommission.Mul(closeQty).Div(position.Quantity)
	exitShare := b.config.CommissionPerContract.Mul(closeQty)

	trade := types.Trade{
		ID:         uuid.New(),
		Instrument: position.Instrument,
		Side:       position.Side,
		Quantity:   closeQty,
		EntryPrice: position.AvgEntryPrice,
		ExitPrice:  exitPrice,
		EntryTime:  position.OpenedAt,
		ExitTime:   at,
		PnL:        pnl,
		Commission: entryShare.Add(exitShare),
		StrategyID: position.StrategyID,
	}

	b.account.Balance = b.account.Balance.Add(pnl)
	b.account.RealizedPnL = b.account.RealizedPnL.Add(trade.NetPnL())
	b.trades = append(b.trades, trade)
}

// recomputeAccount rebuilds the account snapshot from the position
// book and the current bar close. Equity is always balance plus
// unrealized PnL; the high-water mark never decreases within a run.
func (b *SimulatedBroker) recomputeAccount() {
	unrealized := decimal.Zero
	marginUsed := decimal.Zero

	for _, position := range b.positions {
		pnl := position.UpdatePnL(b.currentBar.Close, b.config.Instrument.TickSize, b.config.Instrument.TickValue)
		unrealized = unrealized.Add(pnl)

		if b.config.Instrument.ContractSize.IsPositive() {
			marginUsed = marginUsed.Add(position.Quantity.Mul(b.config.Instrument.ContractSize))
		}
	}

	b.account.UnrealizedPnL = unrealized
	b.account.Equity = b.account.Balance.Add(unrealized)
	b.account.DailyPnL = b.account.Equity.Sub(b.dayStartEquity)
	b.account.OpenPositions = len(b.positions)
	b.account.MarginUsed = marginUsed
	b.account.MarginAvailable = b.account.Equity.Sub(marginUsed)
	if b.account.Equity.GreaterThan(b.account.HighWaterMark) {
		b.account.HighWaterMark = b.account.Equity
	}
	if b.hasBar {
		b.account.Timestamp = b.currentBar.Timestamp
	}
}
