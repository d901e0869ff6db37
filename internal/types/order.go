package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/evilc0des/prop-bots/pkg/errors"
)

// Side is the direction of an order or position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Sign returns +1 for buy and -1 for sell.
func (s Side) Sign() decimal.Decimal {
	if s == SideBuy {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Order is a request to buy or sell an instrument.
type Order struct {
	ID             uuid.UUID                        `yaml:"id" json:"id"`
	Instrument     string                           `yaml:"instrument" json:"instrument"`
	Side           Side                             `yaml:"side" json:"side"`
	Type           OrderType                        `yaml:"type" json:"type"`
	Quantity       decimal.Decimal                  `yaml:"quantity" json:"quantity"`
	FilledQuantity decimal.Decimal                  `yaml:"filled_quantity" json:"filled_quantity"`
	LimitPrice     optional.Option[decimal.Decimal] `yaml:"limit_price,omitempty" json:"limit_price,omitempty"`
	StopPrice      optional.Option[decimal.Decimal] `yaml:"stop_price,omitempty" json:"stop_price,omitempty"`
	Status         OrderStatus                      `yaml:"status" json:"status"`
	CreatedAt      time.Time                        `yaml:"created_at" json:"created_at"`
	UpdatedAt      time.Time                        `yaml:"updated_at" json:"updated_at"`
	// StrategyID identifies the strategy that produced the order.
	StrategyID string `yaml:"strategy_id,omitempty" json:"strategy_id,omitempty"`
	// BrokerOrderID is the identifier assigned by a live broker, if any.
	BrokerOrderID string `yaml:"broker_order_id,omitempty" json:"broker_order_id,omitempty"`
	// Reason is an optional human-readable tag (e.g. "risk_flatten").
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// NewMarketOrder creates a market order created at the given time.
func NewMarketOrder(instrument string, side Side, quantity decimal.Decimal, at time.Time) *Order {
	return &Order{
		ID:         uuid.New(),
		Instrument: instrument,
		Side:       side,
		Type:       OrderTypeMarket,
		Quantity:   quantity,
		Status:     OrderStatusPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

// NewLimitOrder creates a limit order created at the given time.
func NewLimitOrder(instrument string, side Side, quantity, limitPrice decimal.Decimal, at time.Time) *Order {
	return &Order{
		ID:         uuid.New(),
		Instrument: instrument,
		Side:       side,
		Type:       OrderTypeLimit,
		Quantity:   quantity,
		LimitPrice: optional.Some(limitPrice),
		Status:     OrderStatusPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

// NewStopOrder creates a stop order created at the given time.
func NewStopOrder(instrument string, side Side, quantity, stopPrice decimal.Decimal, at time.Time) *Order {
	return &Order{
		ID:         uuid.New(),
		Instrument: instrument,
		Side:       side,
		Type:       OrderTypeStop,
		Quantity:   quantity,
		StopPrice:  optional.Some(stopPrice),
		Status:     OrderStatusPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

// Validate checks the order invariants.
func (o *Order) Validate() error {
	if o.Instrument == "" {
		return errors.New(errors.ErrCodeInvalidOrder, "order instrument is required")
	}

	if !o.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "order quantity must be positive, got %s", o.Quantity)
	}

	switch o.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if o.LimitPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidPrice, "limit order requires a limit price")
		}
	case OrderTypeStop:
		if o.StopPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidPrice, "stop order requires a stop price")
		}
	case OrderTypeStopLimit:
		if o.LimitPrice.IsNone() || o.StopPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidPrice, "stop limit order requires stop and limit prices")
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidOrder, "unknown order type %q", o.Type)
	}

	return nil
}

// RemainingQuantity returns the unfilled quantity.
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsActive reports whether the order can still fill.
func (o *Order) IsActive() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusSubmitted, OrderStatusPartiallyFilled:
		return true
	default:
		return false
	}
}
