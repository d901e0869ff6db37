// Package backtest drives the per-bar simulation loop: it feeds bars
// to the simulated broker, lets the risk manager veto orders, invokes
// the strategy and assembles the terminal result.
package backtest

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/evilc0des/prop-bots/internal/broker/sim"
	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/risk"
	"github.com/evilc0des/prop-bots/internal/strategy"
	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// ProgressFunc reports loop progress as (bars processed, bars total).
type ProgressFunc func(current, total int)

// Engine runs backtests. One engine owns one simulated broker; Reset
// allows the same engine to be reused for repeated runs.
type Engine struct {
	config Config
	broker *sim.SimulatedBroker
	logger *logger.Logger
}

// NewEngine creates a backtest engine for the given configuration.
func NewEngine(config Config, l *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if l == nil {
		l = logger.NewNopLogger()
	}

	broker, err := sim.NewSimulatedBroker(config.BrokerConfig(), l)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config: config,
		broker: broker,
		logger: l,
	}, nil
}

// Broker exposes the underlying simulated broker, mainly for tests.
func (e *Engine) Broker() *sim.SimulatedBroker {
	return e.broker
}

// Reset restores the engine's broker to its initial state so the same
// instance can replay a run.
func (e *Engine) Reset() {
	e.broker.Reset()
}

// Run executes the full loop over a time-sorted bar sequence. The
// strategy and risk manager are expected to be in their initial state;
// the run ends when the bars are exhausted or ctx is cancelled. A
// cancelled run still produces a result from the bars processed so
// far.
func (e *Engine) Run(
	ctx context.Context,
	bars []types.Bar,
	strat strategy.Strategy,
	riskManager risk.RiskManager,
	onProgress ProgressFunc,
) (types.BacktestResult, error) {
	bars = e.filterWindow(bars)
	if len(bars) == 0 {
		return types.BacktestResult{}, errors.New(errors.ErrCodeBacktestNoBars, "no bars in the configured window")
	}

	if err := e.broker.Connect(ctx); err != nil {
		return types.BacktestResult{}, err
	}

	e.broker.SetFillHandler(func(fill types.Fill) {
		strat.OnFill(fill)
		positions, err := e.broker.Positions(ctx)
		if err != nil {
			return
		}
		for _, position := range positions {
			if position.Instrument == fill.Instrument {
				strat.OnPositionUpdate(position)
			}
		}
	})
	defer e.broker.SetFillHandler(nil)

	if err := strat.OnStart(); err != nil {
		return types.BacktestResult{}, errors.Wrap(errors.ErrCodeStrategyConfigError, "strategy failed to start", err)
	}

	equityCurve := make([]types.EquityPoint, 0, len(bars))
	var violations []types.RiskViolation
	breached := make(map[string]bool)
	prevDay := bars[0].Timestamp.UTC()

	for i, bar := range bars {
		if ctx.Err() != nil {
			e.logger.Info("backtest cancelled", zap.Int("bars_processed", i))
			break
		}

		// Session rollover on UTC date change.
		if day := bar.Timestamp.UTC(); day.YearDay() != prevDay.YearDay() || day.Year() != prevDay.Year() {
			e.broker.ResetDailyPnL()
			riskManager.ResetDaily()
		}
		prevDay = bar.Timestamp.UTC()

		// Mark to market and resolve working orders before the
		// strategy observes the bar. The fill handler already
		// notified the strategy of any triggered fills.
		if _, err := e.broker.MarkToMarket(bar); err != nil {
			return types.BacktestResult{}, err
		}

		account, err := e.broker.AccountState(ctx)
		if err != nil {
			return types.BacktestResult{}, err
		}
		riskManager.UpdateAccount(account)

		for _, v := range riskManager.ActiveViolations() {
			if v.Severity == types.RiskSeverityBreach && !breached[v.Rule] {
				breached[v.Rule] = true
				violations = append(violations, v)
			}
		}

		if err := e.flattenIfHalted(ctx, riskManager, bar); err != nil {
			return types.BacktestResult{}, err
		}

		// The strategy observes every bar; when halted its orders
		// are rejected by the risk manager rather than suppressed.
		for _, signal := range strat.OnBar(bar) {
			account, _ = e.broker.AccountState(ctx)
			e.processSignal(ctx, signal, riskManager, account)
			if err := e.flattenIfHalted(ctx, riskManager, bar); err != nil {
				return types.BacktestResult{}, err
			}
		}

		account, _ = e.broker.AccountState(ctx)
		equityCurve = append(equityCurve, types.EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    account.Equity,
			Balance:   account.Balance,
			Drawdown:  account.CurrentDrawdown(),
		})

		if onProgress != nil {
			onProgress(i+1, len(bars))
		}
	}

	strat.OnStop()
	e.broker.SetFillHandler(nil)

	if err := e.broker.FlattenAll(ctx); err != nil {
		return types.BacktestResult{}, err
	}

	finalAccount, err := e.broker.AccountState(ctx)
	if err != nil {
		return types.BacktestResult{}, err
	}

	result := ComputeResult(
		ResultMeta{
			ID:         uuid.New().String(),
			StrategyID: strat.ID(),
			Instrument: e.config.Instrument.Symbol,
			StartTime:  bars[0].Timestamp,
			EndTime:    bars[len(bars)-1].Timestamp,
		},
		e.broker.TradeLog(),
		equityCurve,
		e.config.InitialBalance,
		finalAccount,
	)
	result.Violations = violations

	e.logger.Info("backtest complete",
		zap.String("strategy", strat.ID()),
		zap.Int("bars", len(bars)),
		zap.Int("trades", result.TotalTrades),
		zap.String("net_profit", result.NetProfit.String()),
	)

	return result, nil
}

// flattenIfHalted closes all positions once the risk manager reports
// halted, then refreshes its counters from the post-flatten account.
func (e *Engine) flattenIfHalted(ctx context.Context, riskManager risk.RiskManager, bar types.Bar) error {
	if !riskManager.ShouldHalt() {
		return nil
	}

	account, err := e.broker.AccountState(ctx)
	if err != nil {
		return err
	}
	if account.OpenPositions == 0 {
		return nil
	}

	e.logger.Warn("risk halt, flattening positions",
		zap.String("timestamp", bar.Timestamp.String()))
	if err := e.broker.FlattenAll(ctx); err != nil {
		return err
	}

	account, err = e.broker.AccountState(ctx)
	if err != nil {
		return err
	}
	riskManager.UpdateAccount(account)
	return nil
}

// filterWindow drops bars outside the configured time window.
func (e *Engine) filterWindow(bars []types.Bar) []types.Bar {
	if e.config.StartTime.IsNone() && e.config.EndTime.IsNone() {
		return bars
	}

	filtered := make([]types.Bar, 0, len(bars))
	for _, bar := range bars {
		if e.config.InWindow(bar.Timestamp) {
			filtered = append(filtered, bar)
		}
	}
	return filtered
}

// processSignal converts one signal into an order, risk-checks it and
// submits it. Exit signals always use market orders sized to the open
// position; entries use a limit order when the signal carries a price.
// Rejections are logged and dropped, never retried.
func (e *Engine) processSignal(ctx context.Context, signal types.Signal, riskManager risk.RiskManager, account types.AccountState) {
	for _, order := range e.signalToOrders(ctx, signal) {
		decision := riskManager.EvaluateOrder(order, account)

		switch decision.Type {
		case risk.DecisionRejected:
			e.logger.Info("order rejected by risk",
				zap.String("strategy", signal.StrategyID),
				zap.String("action", string(signal.Action)),
				zap.String("reason", decision.Reason),
			)
			continue
		case risk.DecisionModified:
			order = decision.Order
		}

		if _, err := e.broker.SubmitOrder(ctx, order); err != nil {
			e.logger.Warn("order submission failed",
				zap.String("strategy", signal.StrategyID),
				zap.Error(err),
			)
		}
	}
}

// signalToOrders converts a signal into orders 1:1. Exit actions for
// which no matching position exists produce nothing.
func (e *Engine) signalToOrders(ctx context.Context, signal types.Signal) []*types.Order {
	quantity := decimal.NewFromInt(1)
	if q, err := signal.Quantity.Take(); err == nil {
		quantity = q
	}

	switch signal.Action {
	case types.SignalBuyEntry, types.SignalSellEntry:
		side := types.SideBuy
		if signal.Action == types.SignalSellEntry {
			side = types.SideSell
		}

		var order *types.Order
		if price, err := signal.Price.Take(); err == nil {
			order = types.NewLimitOrder(signal.Instrument, side, quantity, price, signal.Timestamp)
		} else {
			order = types.NewMarketOrder(signal.Instrument, side, quantity, signal.Timestamp)
		}
		order.StrategyID = signal.StrategyID
		order.Reason = signal.Reason
		return []*types.Order{order}

	case types.SignalExitLong, types.SignalExitShort, types.SignalExitAll:
		return e.exitOrders(ctx, signal)

	default:
		e.logger.Warn("unknown signal action", zap.String("action", string(signal.Action)))
		return nil
	}
}

// exitOrders builds opposite-side market orders for the positions an
// exit signal targets.
func (e *Engine) exitOrders(ctx context.Context, signal types.Signal) []*types.Order {
	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return nil
	}

	var orders []*types.Order
	for _, position := range positions {
		if signal.Instrument != "" && position.Instrument != signal.Instrument {
			continue
		}
		if signal.Action == types.SignalExitLong && position.Side != types.SideBuy {
			continue
		}
		if signal.Action == types.SignalExitShort && position.Side != types.SideSell {
			continue
		}

		order := types.NewMarketOrder(
			position.Instrument,
			position.Side.Opposite(),
			position.Quantity,
			signal.Timestamp,
		)
		order.StrategyID = signal.StrategyID
		order.Reason = signal.Reason
		orders = append(orders, order)
	}
	return orders
}
