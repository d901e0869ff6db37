// Package datasource loads historical market data for backtests. The
// core only requires a time-sorted bar sequence; providers are
// responsible for ordering and validation.
package datasource

import (
	"context"
	"time"

	"github.com/evilc0des/prop-bots/internal/types"
)

// DataProvider supplies historical bars and ticks for an instrument
// and date range. A zero start or end leaves that bound open.
type DataProvider interface {
	// Bars returns the bars for the instrument inside the range,
	// sorted by timestamp ascending.
	Bars(ctx context.Context, instrument string, start, end time.Time) ([]types.Bar, error)

	// Ticks returns the ticks for the instrument inside the range,
	// sorted by timestamp ascending.
	Ticks(ctx context.Context, instrument string, start, end time.Time) ([]types.Tick, error)

	// Close releases the provider's resources.
	Close() error
}

func inRange(at, start, end time.Time) bool {
	if !start.IsZero() && at.Before(start) {
		return false
	}
	if !end.IsZero() && at.After(end) {
		return false
	}
	return true
}
