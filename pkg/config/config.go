// Package config holds the yaml configuration surface for the replay and
// paper binaries and converts it into the typed package configs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomas-vanek/fulcrum/pkg/book"
	"github.com/tomas-vanek/fulcrum/pkg/datasource/synthetic"
	"github.com/tomas-vanek/fulcrum/pkg/engine"
	"github.com/tomas-vanek/fulcrum/pkg/execution"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

// Data sources selectable in the yaml file.
const (
	SourceSynthetic  = "synthetic"
	SourceDuckDB     = "duckdb"
	SourceHistorical = "historical"
	SourceLive       = "live"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Execution  ExecutionConfig  `yaml:"execution"`
	OrderBook  OrderBookConfig  `yaml:"order_book"`
	Data       DataConfig       `yaml:"data"`
	Log        LogConfig        `yaml:"log"`
}

type SimulationConfig struct {
	Mode           string          `yaml:"mode"`
	Start          time.Time       `yaml:"start"`
	End            time.Time       `yaml:"end"`
	Symbols        []string        `yaml:"symbols"`
	Periods        []time.Duration `yaml:"periods"`
	InitialCapital float64         `yaml:"initial_capital"`
	LookbackBars   int             `yaml:"lookback_bars"`
	Seed           int64           `yaml:"seed"`
	SyntheticDepth bool            `yaml:"synthetic_depth"`
}

type LatencyConfig struct {
	Profile            string        `yaml:"profile"`
	Min                time.Duration `yaml:"min"`
	Max                time.Duration `yaml:"max"`
	Jitter             time.Duration `yaml:"jitter"`
	TimeoutProbability float64       `yaml:"timeout_probability"`
	Timeout            time.Duration `yaml:"timeout"`
}

type SlippageConfig struct {
	BasePct            float64 `yaml:"base_pct"`
	VolatilityFactor   float64 `yaml:"volatility_factor"`
	SizeFactor         float64 `yaml:"size_factor"`
	MaxPct             float64 `yaml:"max_pct"`
	TypicalOrderSize   float64 `yaml:"typical_order_size"`
	ExtremeProbability float64 `yaml:"extreme_probability"`
	ExtremeMultiplier  float64 `yaml:"extreme_multiplier"`
}

type FillConfig struct {
	PartialFillProbability float64 `yaml:"partial_fill_probability"`
	MinPartialFillPct      float64 `yaml:"min_partial_fill_pct"`
	MaxPartialFills        int     `yaml:"max_partial_fills"`
	RejectionProbability   float64 `yaml:"rejection_probability"`
	EnableTimedFills       bool    `yaml:"enable_timed_fills"`
	CancelRaceProbability  float64 `yaml:"cancel_race_probability"`
}

type FeeConfig struct {
	MakerPct        float64 `yaml:"maker_pct"`
	TakerPct        float64 `yaml:"taker_pct"`
	Asset           string  `yaml:"asset"`
	SettlementAsset string  `yaml:"settlement_asset"`
}

type ExecutionConfig struct {
	Latency      LatencyConfig  `yaml:"latency"`
	Slippage     SlippageConfig `yaml:"slippage"`
	Fill         FillConfig     `yaml:"fill"`
	Fee          FeeConfig      `yaml:"fee"`
	MinBookDepth int            `yaml:"min_book_depth"`
}

type OrderBookConfig struct {
	Levels            int     `yaml:"levels"`
	SpreadPct         float64 `yaml:"spread_pct"`
	PriceIncrementPct float64 `yaml:"price_increment_pct"`
	BaseVolume        float64 `yaml:"base_volume"`
	DepthDecayFactor  float64 `yaml:"depth_decay_factor"`
	VolumeRandomness  float64 `yaml:"volume_randomness"`
}

type SyntheticConfig struct {
	StartPrice float64       `yaml:"start_price"`
	Drift      float64       `yaml:"drift"`
	Volatility float64       `yaml:"volatility"`
	Interval   time.Duration `yaml:"interval"`
	BaseVolume float64       `yaml:"base_volume"`
}

type DataConfig struct {
	Source    string            `yaml:"source"`
	DuckDB    string            `yaml:"duckdb"`
	TickFiles map[string]string `yaml:"tick_files"`
	FeedURL   string            `yaml:"feed_url"`
	Synthetic SyntheticConfig   `yaml:"synthetic"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default mirrors the package defaults so a sparse yaml file only has to
// name what it changes.
func Default() *Config {
	ec := engine.DefaultConfig()
	xc := execution.DefaultConfig()
	bc := book.DefaultConfig()
	sc := synthetic.DefaultConfig()

	return &Config{
		Simulation: SimulationConfig{
			Mode:           string(ec.Mode),
			InitialCapital: 10000,
			LookbackBars:   ec.LookbackBars,
			Seed:           ec.Seed,
			SyntheticDepth: true,
		},
		Execution: ExecutionConfig{
			Latency: LatencyConfig{
				Profile:            string(xc.Latency.Profile),
				Min:                xc.Latency.MinLatency,
				Max:                xc.Latency.MaxLatency,
				Jitter:             xc.Latency.Jitter,
				TimeoutProbability: xc.Latency.TimeoutProbability,
				Timeout:            xc.Latency.Timeout,
			},
			Slippage: SlippageConfig{
				BasePct:            xc.Slippage.BasePct.MustFloat64(),
				VolatilityFactor:   xc.Slippage.VolatilityFactor.MustFloat64(),
				SizeFactor:         xc.Slippage.SizeFactor.MustFloat64(),
				MaxPct:             xc.Slippage.MaxPct.MustFloat64(),
				TypicalOrderSize:   xc.Slippage.TypicalOrderSize.MustFloat64(),
				ExtremeProbability: xc.Slippage.ExtremeProbability,
				ExtremeMultiplier:  xc.Slippage.ExtremeMultiplier.MustFloat64(),
			},
			Fill: FillConfig{
				PartialFillProbability: xc.Fill.PartialFillProbability,
				MinPartialFillPct:      xc.Fill.MinPartialFillPct,
				MaxPartialFills:        xc.Fill.MaxPartialFills,
				RejectionProbability:   xc.Fill.RejectionProbability,
				EnableTimedFills:       xc.Fill.EnableTimedFills,
				CancelRaceProbability:  xc.Fill.CancelRaceProbability,
			},
			Fee: FeeConfig{
				MakerPct: xc.Fee.MakerPct.MustFloat64(),
				TakerPct: xc.Fee.TakerPct.MustFloat64(),
				Asset:    string(xc.Fee.Asset),
			},
			MinBookDepth: xc.Book.MinDepth,
		},
		OrderBook: OrderBookConfig{
			Levels:            bc.Levels,
			SpreadPct:         bc.SpreadPct.MustFloat64(),
			PriceIncrementPct: bc.PriceIncrementPct.MustFloat64(),
			BaseVolume:        bc.BaseVolume.MustFloat64(),
			DepthDecayFactor:  bc.DepthDecayFactor.MustFloat64(),
			VolumeRandomness:  bc.VolumeRandomness,
		},
		Data: DataConfig{
			Source: SourceSynthetic,
			Synthetic: SyntheticConfig{
				StartPrice: sc.StartPrice.MustFloat64(),
				Drift:      sc.Drift,
				Volatility: sc.Volatility,
				Interval:   sc.Interval,
				BaseVolume: sc.BaseVolume.MustFloat64(),
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Load reads the yaml file, applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.loadEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadEnvOverrides() {
	if v := os.Getenv("SIM_MODE"); v != "" {
		c.Simulation.Mode = v
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Simulation.Seed = n
		}
	}
	if v := os.Getenv("SIM_INITIAL_CAPITAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Simulation.InitialCapital = f
		}
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := os.Getenv("DATA_DUCKDB"); v != "" {
		c.Data.DuckDB = v
	}
	if v := os.Getenv("DATA_FEED_URL"); v != "" {
		c.Data.FeedURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) validate() error {
	switch c.Data.Source {
	case SourceSynthetic, SourceDuckDB, SourceHistorical, SourceLive:
	default:
		return fmt.Errorf("unknown data source %q", c.Data.Source)
	}
	if c.Data.Source == SourceDuckDB && c.Data.DuckDB == "" {
		return fmt.Errorf("data.duckdb is required for the duckdb source")
	}
	if c.Data.Source == SourceHistorical && len(c.Data.TickFiles) == 0 {
		return fmt.Errorf("data.tick_files is required for the historical source")
	}
	if c.Data.Source == SourceLive && c.Data.FeedURL == "" {
		return fmt.Errorf("data.feed_url is required for the live source")
	}
	if len(c.Simulation.Symbols) == 0 {
		return fmt.Errorf("simulation.symbols is required")
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	if _, err := c.ExecutionConfig(); err != nil {
		return err
	}
	if _, err := c.BookConfig(); err != nil {
		return err
	}
	_, err := c.SyntheticConfig()
	return err
}

func (c *Config) EngineConfig() (engine.Config, error) {
	cfg := engine.Config{
		Mode:           engine.Mode(c.Simulation.Mode),
		Start:          c.Simulation.Start,
		End:            c.Simulation.End,
		Symbols:        c.Simulation.Symbols,
		Periods:        c.Simulation.Periods,
		InitialCapital: fixed.FromFloat64(c.Simulation.InitialCapital),
		LookbackBars:   c.Simulation.LookbackBars,
		Seed:           c.Simulation.Seed,
		SyntheticDepth: c.Simulation.SyntheticDepth,
	}
	return cfg, cfg.Validate()
}

func (c *Config) ExecutionConfig() (execution.Config, error) {
	cfg := execution.Config{
		Latency: execution.LatencyConfig{
			Profile:            execution.LatencyProfile(c.Execution.Latency.Profile),
			MinLatency:         c.Execution.Latency.Min,
			MaxLatency:         c.Execution.Latency.Max,
			Jitter:             c.Execution.Latency.Jitter,
			TimeoutProbability: c.Execution.Latency.TimeoutProbability,
			Timeout:            c.Execution.Latency.Timeout,
		},
		Slippage: execution.SlippageConfig{
			BasePct:            fixed.FromFloat64(c.Execution.Slippage.BasePct),
			VolatilityFactor:   fixed.FromFloat64(c.Execution.Slippage.VolatilityFactor),
			SizeFactor:         fixed.FromFloat64(c.Execution.Slippage.SizeFactor),
			MaxPct:             fixed.FromFloat64(c.Execution.Slippage.MaxPct),
			TypicalOrderSize:   fixed.FromFloat64(c.Execution.Slippage.TypicalOrderSize),
			ExtremeProbability: c.Execution.Slippage.ExtremeProbability,
			ExtremeMultiplier:  fixed.FromFloat64(c.Execution.Slippage.ExtremeMultiplier),
		},
		Fill: execution.FillConfig{
			PartialFillProbability: c.Execution.Fill.PartialFillProbability,
			MinPartialFillPct:      c.Execution.Fill.MinPartialFillPct,
			MaxPartialFills:        c.Execution.Fill.MaxPartialFills,
			RejectionProbability:   c.Execution.Fill.RejectionProbability,
			EnableTimedFills:       c.Execution.Fill.EnableTimedFills,
			CancelRaceProbability:  c.Execution.Fill.CancelRaceProbability,
		},
		Fee: execution.FeeConfig{
			MakerPct:        fixed.FromFloat64(c.Execution.Fee.MakerPct),
			TakerPct:        fixed.FromFloat64(c.Execution.Fee.TakerPct),
			Asset:           execution.FeeAsset(c.Execution.Fee.Asset),
			SettlementAsset: c.Execution.Fee.SettlementAsset,
		},
		Book: execution.BookConfig{
			MinDepth: c.Execution.MinBookDepth,
		},
	}
	return cfg, cfg.Validate()
}

func (c *Config) BookConfig() (book.Config, error) {
	cfg := book.Config{
		Levels:            c.OrderBook.Levels,
		SpreadPct:         fixed.FromFloat64(c.OrderBook.SpreadPct),
		PriceIncrementPct: fixed.FromFloat64(c.OrderBook.PriceIncrementPct),
		BaseVolume:        fixed.FromFloat64(c.OrderBook.BaseVolume),
		DepthDecayFactor:  fixed.FromFloat64(c.OrderBook.DepthDecayFactor),
		VolumeRandomness:  c.OrderBook.VolumeRandomness,
	}
	return cfg, cfg.Validate()
}

func (c *Config) SyntheticConfig() (synthetic.Config, error) {
	cfg := synthetic.Config{
		StartPrice: fixed.FromFloat64(c.Data.Synthetic.StartPrice),
		Drift:      c.Data.Synthetic.Drift,
		Volatility: c.Data.Synthetic.Volatility,
		Interval:   c.Data.Synthetic.Interval,
		BaseVolume: fixed.FromFloat64(c.Data.Synthetic.BaseVolume),
		Seed:       c.Simulation.Seed,
	}
	return cfg, cfg.Validate()
}
