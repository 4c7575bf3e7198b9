// Package datasource defines the market data contract the simulation
// engine loads from. Implementations cover duckdb tables, memory-mapped
// binary tick files, synthetic generation and live websocket feeds.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
)

var (
	ErrNoData         = errors.New("no data available for range")
	ErrNotSupported   = errors.New("data kind not supported by provider")
	ErrSymbolUnknown  = errors.New("symbol unknown to provider")
	ErrSourceNotReady = errors.New("data source not connected")
)

// Capabilities reports which data kinds a provider can serve for a
// symbol. The engine only requests what is advertised.
type Capabilities struct {
	Bars      bool
	Ticks     bool
	OrderBook bool
}

// Provider serves historical market data for replay. All methods return
// data ordered by timestamp, inclusive of from, exclusive of to.
type Provider interface {
	Capabilities(symbol string) Capabilities
	Bars(ctx context.Context, symbol string, period time.Duration, from, to time.Time) ([]common.Bar, error)
	Ticks(ctx context.Context, symbol string, from, to time.Time) ([]common.Tick, error)
	Depth(ctx context.Context, symbol string, from, to time.Time) ([]common.OrderBookSnapshot, error)
}
