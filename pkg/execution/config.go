package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

var ErrInvalidConfig = errors.New("invalid execution configuration")

// LatencyProfile selects a base latency band. The named profiles model a
// venue link quality, random draws uniformly from the configured range.
type LatencyProfile string

const (
	LatencyHighFrequency LatencyProfile = "high-frequency"
	LatencyFast          LatencyProfile = "fast"
	LatencyNormal        LatencyProfile = "normal"
	LatencyDegraded      LatencyProfile = "degraded"
	LatencyPoor          LatencyProfile = "poor"
	LatencyRandom        LatencyProfile = "random"
)

func (p LatencyProfile) baseLatency() (time.Duration, bool) {
	switch p {
	case LatencyHighFrequency:
		return 5 * time.Millisecond, true
	case LatencyFast:
		return 30 * time.Millisecond, true
	case LatencyNormal:
		return 100 * time.Millisecond, true
	case LatencyDegraded:
		return 350 * time.Millisecond, true
	case LatencyPoor:
		return 750 * time.Millisecond, true
	default:
		return 0, false
	}
}

type LatencyConfig struct {
	Profile            LatencyProfile
	MinLatency         time.Duration
	MaxLatency         time.Duration
	Jitter             time.Duration
	TimeoutProbability float64
	Timeout            time.Duration
}

func (c LatencyConfig) validate() error {
	if _, ok := c.Profile.baseLatency(); !ok && c.Profile != LatencyRandom {
		return fmt.Errorf("%w: unknown latency profile %q", ErrInvalidConfig, c.Profile)
	}
	if c.MinLatency < 0 || c.MaxLatency < c.MinLatency {
		return fmt.Errorf("%w: latency bounds [%s, %s]", ErrInvalidConfig, c.MinLatency, c.MaxLatency)
	}
	if c.Jitter < 0 {
		return fmt.Errorf("%w: negative jitter", ErrInvalidConfig)
	}
	if c.TimeoutProbability < 0 || c.TimeoutProbability > 1 {
		return fmt.Errorf("%w: timeout probability %f", ErrInvalidConfig, c.TimeoutProbability)
	}
	if c.TimeoutProbability > 0 && c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout probability set without timeout duration", ErrInvalidConfig)
	}
	return nil
}

type SlippageConfig struct {
	BasePct            fixed.Point
	VolatilityFactor   fixed.Point
	SizeFactor         fixed.Point
	MaxPct             fixed.Point
	TypicalOrderSize   fixed.Point
	ExtremeProbability float64
	ExtremeMultiplier  fixed.Point
}

func (c SlippageConfig) validate() error {
	if c.BasePct.IsNeg() || c.VolatilityFactor.IsNeg() || c.SizeFactor.IsNeg() {
		return fmt.Errorf("%w: negative slippage factor", ErrInvalidConfig)
	}
	if c.MaxPct.IsNeg() {
		return fmt.Errorf("%w: negative max slippage", ErrInvalidConfig)
	}
	if !c.TypicalOrderSize.IsPos() {
		return fmt.Errorf("%w: typical order size must be positive", ErrInvalidConfig)
	}
	if c.ExtremeProbability < 0 || c.ExtremeProbability > 1 {
		return fmt.Errorf("%w: extreme probability %f", ErrInvalidConfig, c.ExtremeProbability)
	}
	if c.ExtremeProbability > 0 && !c.ExtremeMultiplier.Gte(fixed.One) {
		return fmt.Errorf("%w: extreme multiplier below one", ErrInvalidConfig)
	}
	return nil
}

type FillConfig struct {
	PartialFillProbability float64
	MinPartialFillPct      float64
	MaxPartialFills        int
	RejectionProbability   float64
	EnableTimedFills       bool
	CancelRaceProbability  float64
}

func (c FillConfig) validate() error {
	for _, p := range []float64{c.PartialFillProbability, c.RejectionProbability, c.CancelRaceProbability} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %f out of range", ErrInvalidConfig, p)
		}
	}
	if c.MinPartialFillPct <= 0 || c.MinPartialFillPct > 1 {
		return fmt.Errorf("%w: min partial fill pct %f", ErrInvalidConfig, c.MinPartialFillPct)
	}
	if c.MaxPartialFills < 1 {
		return fmt.Errorf("%w: max partial fills %d", ErrInvalidConfig, c.MaxPartialFills)
	}
	return nil
}

// FeeAsset selects which leg of the symbol fees are charged in.
type FeeAsset string

const (
	FeeAssetBase       FeeAsset = "base"
	FeeAssetQuote      FeeAsset = "quote"
	FeeAssetSettlement FeeAsset = "settlement"
)

type FeeConfig struct {
	MakerPct        fixed.Point
	TakerPct        fixed.Point
	Asset           FeeAsset
	SettlementAsset string
}

func (c FeeConfig) validate() error {
	if c.MakerPct.IsNeg() || c.TakerPct.IsNeg() {
		return fmt.Errorf("%w: negative fee rate", ErrInvalidConfig)
	}
	switch c.Asset {
	case FeeAssetBase, FeeAssetQuote:
	case FeeAssetSettlement:
		if c.SettlementAsset == "" {
			return fmt.Errorf("%w: settlement fee asset without settlement symbol", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown fee asset %q", ErrInvalidConfig, c.Asset)
	}
	return nil
}

type BookConfig struct {
	MinDepth int
}

func (c BookConfig) validate() error {
	if c.MinDepth < 0 {
		return fmt.Errorf("%w: negative min depth", ErrInvalidConfig)
	}
	return nil
}

type Config struct {
	Latency  LatencyConfig
	Slippage SlippageConfig
	Fill     FillConfig
	Fee      FeeConfig
	Book     BookConfig
}

// DefaultConfig models an ordinary retail venue link.
func DefaultConfig() Config {
	return Config{
		Latency: LatencyConfig{
			Profile:            LatencyNormal,
			MinLatency:         time.Millisecond,
			MaxLatency:         2 * time.Second,
			Jitter:             20 * time.Millisecond,
			TimeoutProbability: 0,
			Timeout:            5 * time.Second,
		},
		Slippage: SlippageConfig{
			BasePct:            fixed.FromFloat64(0.0005),
			VolatilityFactor:   fixed.FromFloat64(0.1),
			SizeFactor:         fixed.FromFloat64(0.001),
			MaxPct:             fixed.FromFloat64(0.01),
			TypicalOrderSize:   fixed.FromInt(100, 0),
			ExtremeProbability: 0.01,
			ExtremeMultiplier:  fixed.FromInt(3, 0),
		},
		Fill: FillConfig{
			PartialFillProbability: 0.15,
			MinPartialFillPct:      0.2,
			MaxPartialFills:        4,
			RejectionProbability:   0.01,
			EnableTimedFills:       true,
			CancelRaceProbability:  0.05,
		},
		Fee: FeeConfig{
			MakerPct: fixed.FromFloat64(0.0002),
			TakerPct: fixed.FromFloat64(0.0005),
			Asset:    FeeAssetQuote,
		},
		Book: BookConfig{
			MinDepth: 1,
		},
	}
}

func (c Config) Validate() error {
	if err := c.Latency.validate(); err != nil {
		return err
	}
	if err := c.Slippage.validate(); err != nil {
		return err
	}
	if err := c.Fill.validate(); err != nil {
		return err
	}
	if err := c.Fee.validate(); err != nil {
		return err
	}
	return c.Book.validate()
}
