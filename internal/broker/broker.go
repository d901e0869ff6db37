// Package broker defines the interface between order producers and an
// execution venue. The simulated implementation in broker/sim backs
// backtests; the metatrader adapter backs live trading.
package broker

import (
	"context"

	"github.com/google/uuid"

	"github.com/evilc0des/prop-bots/internal/types"
)

// Broker is an execution venue. Backtest implementations resolve every
// call synchronously against in-memory state; live implementations may
// block on the wire, so all methods take a context.
type Broker interface {
	// Connect establishes the venue connection.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the venue is reachable.
	IsConnected() bool

	// SubmitOrder submits an order. Market orders may fill before this
	// returns; the returned order carries the updated status.
	SubmitOrder(ctx context.Context, order *types.Order) (*types.Order, error)

	// CancelOrder cancels a working order. Returns ErrCodeOrderNotFound
	// if the id is not in the working set.
	CancelOrder(ctx context.Context, orderID uuid.UUID) error

	// ModifyOrder updates price/stop/quantity of a working order,
	// preserving its id and history. Returns ErrCodeOrderNotFound if
	// the id is not in the working set.
	ModifyOrder(ctx context.Context, order *types.Order) (*types.Order, error)

	// AccountState returns the latest account snapshot.
	AccountState(ctx context.Context) (types.AccountState, error)

	// Positions returns all open positions.
	Positions(ctx context.Context) ([]types.Position, error)

	// ActiveOrders returns all orders still able to fill.
	ActiveOrders(ctx context.Context) ([]types.Order, error)

	// FlattenAll closes every open position with opposite-side market
	// orders.
	FlattenAll(ctx context.Context) error

	// SubscribeMarketData streams bars or ticks for an instrument. The
	// channel closes when the subscription ends.
	SubscribeMarketData(ctx context.Context, instrument string, timeframe types.Timeframe) (<-chan types.MarketDataEvent, error)
}
