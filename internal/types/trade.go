package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill is a single execution of (part of) an order.
type Fill struct {
	ID         uuid.UUID       `yaml:"id" json:"id"`
	OrderID    uuid.UUID       `yaml:"order_id" json:"order_id"`
	Instrument string          `yaml:"instrument" json:"instrument"`
	Side       Side            `yaml:"side" json:"side"`
	Quantity   decimal.Decimal `yaml:"quantity" json:"quantity"`
	Price      decimal.Decimal `yaml:"price" json:"price"`
	Commission decimal.Decimal `yaml:"commission" json:"commission"`
	Timestamp  time.Time       `yaml:"timestamp" json:"timestamp"`
}

// Position is an open position in one instrument.
type Position struct {
	Instrument    string          `yaml:"instrument" json:"instrument"`
	Side          Side            `yaml:"side" json:"side"`
	Quantity      decimal.Decimal `yaml:"quantity" json:"quantity"`
	AvgEntryPrice decimal.Decimal `yaml:"avg_entry_price" json:"avg_entry_price"`
	// EntryCommission is the commission accumulated opening the position.
	// It is released into closing trades proportionally to quantity closed.
	EntryCommission decimal.Decimal `yaml:"entry_commission" json:"entry_commission"`
	UnrealizedPnL   decimal.Decimal `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	OpenedAt        time.Time       `yaml:"opened_at" json:"opened_at"`
	UpdatedAt       time.Time       `yaml:"updated_at" json:"updated_at"`
	StrategyID      string          `yaml:"strategy_id,omitempty" json:"strategy_id,omitempty"`
}

// SignedQuantity returns the quantity with a sign, positive for long.
func (p *Position) SignedQuantity() decimal.Decimal {
	return p.Quantity.Mul(p.Side.Sign())
}

// UpdatePnL recomputes the unrealized PnL against a mark price and
// returns the new value.
func (p *Position) UpdatePnL(price, tickSize, tickValue decimal.Decimal) decimal.Decimal {
	ticks := price.Sub(p.AvgEntryPrice).Div(tickSize)
	if p.Side == SideSell {
		ticks = ticks.Neg()
	}
	p.UnrealizedPnL = ticks.Mul(tickValue).Mul(p.Quantity)
	return p.UnrealizedPnL
}

// Trade is a completed round trip, recorded when position quantity
// is reduced or closed.
type Trade struct {
	ID         uuid.UUID       `yaml:"id" json:"id"`
	Instrument string          `yaml:"instrument" json:"instrument"`
	Side       Side            `yaml:"side" json:"side"`
	Quantity   decimal.Decimal `yaml:"quantity" json:"quantity"`
	EntryPrice decimal.Decimal `yaml:"entry_price" json:"entry_price"`
	ExitPrice  decimal.Decimal `yaml:"exit_price" json:"exit_price"`
	EntryTime  time.Time       `yaml:"entry_time" json:"entry_time"`
	ExitTime   time.Time       `yaml:"exit_time" json:"exit_time"`
	// PnL is the gross realized profit and loss, before commission.
	PnL decimal.Decimal `yaml:"pnl" json:"pnl"`
	// Commission is the full round-trip commission for this trade:
	// the proportional share of the entry commission plus the exit
	// commission.
	Commission decimal.Decimal `yaml:"commission" json:"commission"`
	StrategyID string          `yaml:"strategy_id,omitempty" json:"strategy_id,omitempty"`
}

// NetPnL returns PnL minus commission.
func (t *Trade) NetPnL() decimal.Decimal {
	return t.PnL.Sub(t.Commission)
}

// IsWin reports whether the trade was profitable net of commission.
func (t *Trade) IsWin() bool {
	return t.NetPnL().IsPositive()
}
