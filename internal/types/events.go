package types

// MarketDataEventType discriminates market data events.
type MarketDataEventType string

const (
	MarketDataEventBar  MarketDataEventType = "bar"
	MarketDataEventTick MarketDataEventType = "tick"
)

// MarketDataEvent is a single item on a market data subscription
// stream. Exactly one of Bar or Tick is set, according to Type.
type MarketDataEvent struct {
	Type MarketDataEventType `json:"type"`
	Bar  *Bar                `json:"bar,omitempty"`
	Tick *Tick               `json:"tick,omitempty"`
}
