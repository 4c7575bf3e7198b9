// Package synthetic generates geometric brownian motion tick series for
// runs that need market data without any recorded history.
package synthetic

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/datasource"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const componentName = "datasource.synthetic"

var ErrInvalidConfig = errors.New("invalid generator configuration")

type Config struct {
	StartPrice fixed.Point
	// Drift and Volatility are annualized GBM parameters.
	Drift      float64
	Volatility float64
	Interval   time.Duration
	BaseVolume fixed.Point
	Seed       int64
}

func DefaultConfig() Config {
	return Config{
		StartPrice: fixed.FromInt(100, 0),
		Drift:      0.05,
		Volatility: 0.2,
		Interval:   time.Second,
		BaseVolume: fixed.FromInt(10, 0),
		Seed:       1,
	}
}

func (c Config) Validate() error {
	if !c.StartPrice.IsPos() {
		return fmt.Errorf("%w: start price must be positive", ErrInvalidConfig)
	}
	if c.Volatility < 0 {
		return fmt.Errorf("%w: negative volatility", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: non-positive interval", ErrInvalidConfig)
	}
	if !c.BaseVolume.IsPos() {
		return fmt.Errorf("%w: base volume must be positive", ErrInvalidConfig)
	}
	return nil
}

// Generator produces GBM price paths. The same seed, symbol and range
// always yield the same ticks, each request reseeds its own rng.
type Generator struct {
	cfg Config
}

func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg}, nil
}

func (g *Generator) Capabilities(string) datasource.Capabilities {
	return datasource.Capabilities{Ticks: true}
}

const yearSeconds = 365.25 * 24 * 3600

func (g *Generator) Ticks(ctx context.Context, symbol string, from, to time.Time) ([]common.Tick, error) {
	if !to.After(from) {
		return nil, datasource.ErrNoData
	}
	rng := rand.New(rand.NewSource(g.seedFor(symbol)))

	dt := g.cfg.Interval.Seconds() / yearSeconds
	driftTerm := (g.cfg.Drift - 0.5*g.cfg.Volatility*g.cfg.Volatility) * dt
	diffusion := g.cfg.Volatility * math.Sqrt(dt)

	price := g.cfg.StartPrice.MustFloat64()
	var out []common.Tick
	for ts := from; ts.Before(to); ts = ts.Add(g.cfg.Interval) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		price *= math.Exp(driftTerm + diffusion*rng.NormFloat64())

		side := common.TickSideBuy
		if rng.Float64() < 0.5 {
			side = common.TickSideSell
		}
		out = append(out, common.Tick{
			Price:       fixed.FromFloat64(price),
			Volume:      g.cfg.BaseVolume.Mul(fixed.FromFloat64(0.5 + rng.Float64())),
			Side:        side,
			Source:      componentName,
			Symbol:      symbol,
			ExecutionID: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   ts,
		})
	}
	if len(out) == 0 {
		return nil, datasource.ErrNoData
	}
	return out, nil
}

func (g *Generator) Bars(context.Context, string, time.Duration, time.Time, time.Time) ([]common.Bar, error) {
	return nil, datasource.ErrNotSupported
}

func (g *Generator) Depth(context.Context, string, time.Time, time.Time) ([]common.OrderBookSnapshot, error) {
	return nil, datasource.ErrNotSupported
}

// seedFor folds the symbol into the base seed so multi-symbol runs do
// not replay the same path on every instrument.
func (g *Generator) seedFor(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return g.cfg.Seed ^ int64(h.Sum64())
}
