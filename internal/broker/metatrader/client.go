package metatrader

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evilc0des/prop-bots/internal/broker"
	"github.com/evilc0des/prop-bots/internal/logger"
	"github.com/evilc0des/prop-bots/internal/types"
	"github.com/evilc0des/prop-bots/pkg/errors"
)

// ClientConfig configures the bridge connection.
type ClientConfig struct {
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	DialTimeout       time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" json:"heartbeat_interval"`
}

// DefaultClientConfig returns the standard local bridge configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:              "127.0.0.1",
		Port:              5555,
		DialTimeout:       5 * time.Second,
		RequestTimeout:    10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Client is a live Broker over one TCP connection to the MetaTrader
// bridge. Writes are serialized behind a mutex; a single read loop
// owns the connection's inbound side, so frames never interleave.
type Client struct {
	config ClientConfig
	logger *logger.Logger

	mu        sync.Mutex
	conn      net.Conn
	connected bool

	accountCh   chan types.AccountState
	positionsCh chan []types.Position

	stateMu   sync.RWMutex
	account   types.AccountState
	positions map[string]types.Position
	orders    map[uuid.UUID]types.Order

	subsMu      sync.Mutex
	subscribers map[string][]chan types.MarketDataEvent

	done chan struct{}
}

// NewClient creates an unconnected bridge client.
func NewClient(config ClientConfig, l *logger.Logger) *Client {
	if l == nil {
		l = logger.NewNopLogger()
	}
	defaults := DefaultClientConfig()
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = defaults.HeartbeatInterval
	}
	return &Client{
		config:      config,
		logger:      l,
		positions:   make(map[string]types.Position),
		orders:      make(map[uuid.UUID]types.Order),
		subscribers: make(map[string][]chan types.MarketDataEvent),
	}
}

// Connect dials the bridge and starts the read loop and heartbeat
// timer.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeConnectionFailed, err, "failed to dial bridge at %s", addr)
	}

	c.conn = conn
	c.connected = true
	c.accountCh = make(chan types.AccountState, 1)
	c.positionsCh = make(chan []types.Position, 1)
	c.done = make(chan struct{})

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Info("connected to metatrader bridge", zap.String("addr", addr))
	return nil
}

// Disconnect closes the connection and all subscriptions.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	close(c.done)
	c.connected = false
	err := c.conn.Close()

	c.subsMu.Lock()
	for _, subs := range c.subscribers {
		for _, sub := range subs {
			close(sub)
		}
	}
	c.subscribers = make(map[string][]chan types.MarketDataEvent)
	c.subsMu.Unlock()

	return err
}

// IsConnected reports whether the bridge connection is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// send frames one message on the connection. Serialized by c.mu.
func (c *Client) send(msgType MessageType, payload any) error {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return errors.New(errors.ErrCodeNotConnected, "not connected to bridge")
	}
	return FrameMessage(c.conn, msg)
}

// SubmitOrder sends the order to the bridge. The definitive status
// arrives later as an order update; the returned order is marked
// Submitted.
func (c *Client) SubmitOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := c.send(MsgSubmitOrder, order); err != nil {
		return nil, err
	}

	order.Status = types.OrderStatusSubmitted
	c.stateMu.Lock()
	c.orders[order.ID] = *order
	c.stateMu.Unlock()
	return order, nil
}

// CancelOrder sends a cancel for a known working order.
func (c *Client) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	c.stateMu.RLock()
	order, exists := c.orders[orderID]
	c.stateMu.RUnlock()
	if !exists || !order.IsActive() {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %s not in working set", orderID)
	}

	return c.send(MsgCancelOrder, CancelPayload{OrderID: orderID.String()})
}

// ModifyOrder sends a modify for a known working order.
func (c *Client) ModifyOrder(ctx context.Context, order *types.Order) (*types.Order, error) {
	c.stateMu.RLock()
	existing, exists := c.orders[order.ID]
	c.stateMu.RUnlock()
	if !exists || !existing.IsActive() {
		return nil, errors.Newf(errors.ErrCodeOrderNotFound, "order %s not in working set", order.ID)
	}

	if err := c.send(MsgModifyOrder, order); err != nil {
		return nil, err
	}
	return order, nil
}

// AccountState requests a fresh snapshot and waits for the reply.
func (c *Client) AccountState(ctx context.Context) (types.AccountState, error) {
	if err := c.send(MsgAccountRequest, nil); err != nil {
		return types.AccountState{}, err
	}

	select {
	case account := <-c.accountCh:
		return account, nil
	case <-time.After(c.config.RequestTimeout):
		return types.AccountState{}, errors.New(errors.ErrCodeBrokerOther, "account request timed out")
	case <-ctx.Done():
		return types.AccountState{}, ctx.Err()
	}
}

// Positions requests the open positions and waits for the reply.
func (c *Client) Positions(ctx context.Context) ([]types.Position, error) {
	if err := c.send(MsgPositionsRequest, nil); err != nil {
		return nil, err
	}

	select {
	case positions := <-c.positionsCh:
		return positions, nil
	case <-time.After(c.config.RequestTimeout):
		return nil, errors.New(errors.ErrCodeBrokerOther, "positions request timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ActiveOrders returns the locally tracked working orders.
func (c *Client) ActiveOrders(ctx context.Context) ([]types.Order, error) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	var active []types.Order
	for _, order := range c.orders {
		if order.IsActive() {
			active = append(active, order)
		}
	}
	return active, nil
}

// FlattenAll asks the bridge to close every open position.
func (c *Client) FlattenAll(ctx context.Context) error {
	return c.send(MsgFlattenAll, nil)
}

// SubscribeMarketData subscribes to a bar or tick stream.
func (c *Client) SubscribeMarketData(ctx context.Context, instrument string, timeframe types.Timeframe) (<-chan types.MarketDataEvent, error) {
	if err := c.send(MsgSubscribe, SubscribePayload{Instrument: instrument, Timeframe: timeframe}); err != nil {
		return nil, err
	}

	ch := make(chan types.MarketDataEvent, 256)
	c.subsMu.Lock()
	c.subscribers[instrument] = append(c.subscribers[instrument], ch)
	c.subsMu.Unlock()
	return ch, nil
}

// readLoop owns the inbound side of the connection.
func (c *Client) readLoop() {
	for {
		msg, err := ReadFrame(c.conn)
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Error("bridge read failed", zap.Error(err))
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case MsgConnected:
		var payload ConnectedPayload
		if err := msg.DecodePayload(&payload); err == nil {
			c.logger.Info("bridge ready", zap.String("version", payload.Version))
		}

	case MsgAccountUpdate:
		var account types.AccountState
		if err := msg.DecodePayload(&account); err != nil {
			c.logger.Warn("bad account update", zap.Error(err))
			return
		}
		c.stateMu.Lock()
		c.account = account
		c.stateMu.Unlock()
		select {
		case c.accountCh <- account:
		default:
		}

	case MsgPositionUpdate:
		var positions []types.Position
		if err := msg.DecodePayload(&positions); err != nil {
			c.logger.Warn("bad position update", zap.Error(err))
			return
		}
		c.stateMu.Lock()
		c.positions = make(map[string]types.Position, len(positions))
		for _, p := range positions {
			c.positions[p.Instrument] = p
		}
		c.stateMu.Unlock()
		select {
		case c.positionsCh <- positions:
		default:
		}

	case MsgOrderUpdate:
		var order types.Order
		if err := msg.DecodePayload(&order); err != nil {
			c.logger.Warn("bad order update", zap.Error(err))
			return
		}
		c.stateMu.Lock()
		c.orders[order.ID] = order
		c.stateMu.Unlock()

	case MsgBar:
		var bar types.Bar
		if err := msg.DecodePayload(&bar); err != nil {
			c.logger.Warn("bad bar", zap.Error(err))
			return
		}
		c.publish(bar.Instrument, types.MarketDataEvent{Type: types.MarketDataEventBar, Bar: &bar})

	case MsgTick:
		var tick types.Tick
		if err := msg.DecodePayload(&tick); err != nil {
			c.logger.Warn("bad tick", zap.Error(err))
			return
		}
		c.publish(tick.Instrument, types.MarketDataEvent{Type: types.MarketDataEventTick, Tick: &tick})

	case MsgHeartbeatAck:

	case MsgError:
		var payload ErrorPayload
		if err := msg.DecodePayload(&payload); err == nil {
			c.logger.Error("bridge error",
				zap.Int("code", payload.Code),
				zap.String("message", payload.Message),
			)
		}

	default:
		c.logger.Warn("unknown bridge message", zap.String("type", string(msg.Type)))
	}
}

func (c *Client) publish(instrument string, event types.MarketDataEvent) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, sub := range c.subscribers[instrument] {
		select {
		case sub <- event:
		default:
		}
	}
}

// heartbeatLoop keeps the bridge connection alive independently of
// trading activity.
func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(MsgHeartbeat, nil); err != nil {
				c.logger.Warn("heartbeat failed", zap.Error(err))
				return
			}
		}
	}
}

var _ broker.Broker = (*Client)(nil)
