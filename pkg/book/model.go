// Package book generates and evolves synthetic order book depth around a
// reference mid price. It exists for data sets that only carry trades or
// bars, where execution still wants a ladder to walk.
package book

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const componentName = "book.model"

var ErrInvalidConfig = errors.New("invalid book model configuration")

type Config struct {
	Levels            int
	SpreadPct         fixed.Point
	PriceIncrementPct fixed.Point
	BaseVolume        fixed.Point
	DepthDecayFactor  fixed.Point
	VolumeRandomness  float64
}

func DefaultConfig() Config {
	return Config{
		Levels:            10,
		SpreadPct:         fixed.FromFloat64(0.0002),
		PriceIncrementPct: fixed.FromFloat64(0.0001),
		BaseVolume:        fixed.FromInt(100, 0),
		DepthDecayFactor:  fixed.FromFloat64(0.85),
		VolumeRandomness:  0.3,
	}
}

func (c Config) Validate() error {
	if c.Levels <= 0 {
		return fmt.Errorf("%w: levels must be positive", ErrInvalidConfig)
	}
	if !c.SpreadPct.IsPos() {
		return fmt.Errorf("%w: spread pct must be positive", ErrInvalidConfig)
	}
	if !c.PriceIncrementPct.IsPos() {
		return fmt.Errorf("%w: price increment pct must be positive", ErrInvalidConfig)
	}
	if !c.BaseVolume.IsPos() {
		return fmt.Errorf("%w: base volume must be positive", ErrInvalidConfig)
	}
	if !c.DepthDecayFactor.IsPos() || c.DepthDecayFactor.Gt(fixed.One) {
		return fmt.Errorf("%w: depth decay factor must be in (0, 1]", ErrInvalidConfig)
	}
	if c.VolumeRandomness < 0 || c.VolumeRandomness >= 1 {
		return fmt.Errorf("%w: volume randomness must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}

// Model builds depth ladders with exponentially decaying volume. The rng
// is injected so runs stay reproducible under a seed.
type Model struct {
	cfg Config
	rng *rand.Rand
}

func NewModel(cfg Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil rng", ErrInvalidConfig)
	}
	return &Model{cfg: cfg, rng: rng}, nil
}

// Generate produces a fresh snapshot around mid. Volatility widens the
// effective spread, zero leaves it at the configured base.
func (m *Model) Generate(symbol string, mid fixed.Point, volatility float64, ts time.Time) common.OrderBookSnapshot {
	spread := m.cfg.SpreadPct
	if volatility > 0 {
		spread = spread.Mul(fixed.One.Add(fixed.FromFloat64(volatility).Mul(fixed.Ten)))
	}
	halfSpread := mid.Mul(spread).Div(fixed.Two)
	step := mid.Mul(m.cfg.PriceIncrementPct)

	snap := common.OrderBookSnapshot{
		Bids:        make([]common.PriceLevel, 0, m.cfg.Levels),
		Asks:        make([]common.PriceLevel, 0, m.cfg.Levels),
		Source:      componentName,
		Symbol:      symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   ts,
	}

	bestBid := mid.Sub(halfSpread)
	bestAsk := mid.Add(halfSpread)
	levelVolume := m.cfg.BaseVolume

	for i := 0; i < m.cfg.Levels; i++ {
		offset := step.MulInt(i)
		snap.Bids = append(snap.Bids, common.PriceLevel{
			Price:  bestBid.Sub(offset),
			Volume: m.randomizeVolume(levelVolume),
			Orders: 1 + m.rng.Intn(5),
		})
		snap.Asks = append(snap.Asks, common.PriceLevel{
			Price:  bestAsk.Add(offset),
			Volume: m.randomizeVolume(levelVolume),
			Orders: 1 + m.rng.Intn(5),
		})
		levelVolume = levelVolume.Mul(m.cfg.DepthDecayFactor)
	}
	return snap
}

// GenerateImbalanced skews a fresh snapshot, scaling bid volume by
// (1+imbalance) and ask volume by (1-imbalance). Imbalance is clamped to
// [-1, 1].
func (m *Model) GenerateImbalanced(symbol string, mid fixed.Point, imbalance float64, ts time.Time) common.OrderBookSnapshot {
	if imbalance > 1 {
		imbalance = 1
	} else if imbalance < -1 {
		imbalance = -1
	}

	snap := m.Generate(symbol, mid, 0, ts)
	bidScale := fixed.One.Add(fixed.FromFloat64(imbalance))
	askScale := fixed.One.Sub(fixed.FromFloat64(imbalance))
	for i := range snap.Bids {
		snap.Bids[i].Volume = snap.Bids[i].Volume.Mul(bidScale)
	}
	for i := range snap.Asks {
		snap.Asks[i].Volume = snap.Asks[i].Volume.Mul(askScale)
	}
	return snap
}

// Update shifts an existing snapshot to a new mid, perturbing volumes and
// order counts instead of regenerating the ladder. The level count and
// relative spacing are preserved.
func (m *Model) Update(snap common.OrderBookSnapshot, newMid fixed.Point, volumeProfile float64, ts time.Time) common.OrderBookSnapshot {
	oldMid, err := snap.MidPrice()
	if err != nil {
		return m.Generate(snap.Symbol, newMid, 0, ts)
	}
	delta := newMid.Sub(oldMid)

	out := common.OrderBookSnapshot{
		Bids:        make([]common.PriceLevel, len(snap.Bids)),
		Asks:        make([]common.PriceLevel, len(snap.Asks)),
		Source:      componentName,
		Symbol:      snap.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   ts,
	}
	for i, l := range snap.Bids {
		out.Bids[i] = m.shiftLevel(l, delta, volumeProfile)
	}
	for i, l := range snap.Asks {
		out.Asks[i] = m.shiftLevel(l, delta, volumeProfile)
	}
	return out
}

func (m *Model) shiftLevel(l common.PriceLevel, delta fixed.Point, volumeProfile float64) common.PriceLevel {
	// volume perturbation up to +-20%, scaled by the activity profile
	perturbation := (m.rng.Float64()*2 - 1) * 0.2 * volumeProfile
	volume := l.Volume.Mul(fixed.One.Add(fixed.FromFloat64(perturbation)))
	if !volume.IsPos() {
		volume = minLevelVolume
	}

	orders := l.Orders + m.rng.Intn(3) - 1
	if orders < 1 {
		orders = 1
	}
	return common.PriceLevel{
		Price:  l.Price.Add(delta),
		Volume: volume,
		Orders: orders,
	}
}

var minLevelVolume = fixed.FromFloat64(0.0001)

func (m *Model) randomizeVolume(base fixed.Point) fixed.Point {
	jitter := (m.rng.Float64()*2 - 1) * m.cfg.VolumeRandomness
	v := base.Mul(fixed.One.Add(fixed.FromFloat64(jitter)))
	if !v.IsPos() {
		return minLevelVolume
	}
	return v
}
