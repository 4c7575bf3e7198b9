package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

var ErrInvalidConfig = errors.New("invalid engine configuration")

type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModePaper    Mode = "paper"
)

type Config struct {
	Mode           Mode
	Start          time.Time
	End            time.Time
	Symbols        []string
	Periods        []time.Duration
	InitialCapital fixed.Point
	// LookbackBars is how much bar history is preloaded before Start so
	// strategies have warm indicators on the first event.
	LookbackBars int
	Seed         int64
	// SyntheticDepth maintains a generated book for symbols whose feed
	// carries no depth, so execution can still walk a ladder.
	SyntheticDepth bool
}

func DefaultConfig() Config {
	return Config{
		Mode:         ModeBacktest,
		LookbackBars: 100,
		Seed:         1,
	}
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeBacktest, ModePaper:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.Mode == ModeBacktest && !c.End.After(c.Start) {
		return fmt.Errorf("%w: end %s not after start %s", ErrInvalidConfig, c.End, c.Start)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols", ErrInvalidConfig)
	}
	for _, p := range c.Periods {
		if p <= 0 {
			return fmt.Errorf("%w: non-positive period %s", ErrInvalidConfig, p)
		}
	}
	if !c.InitialCapital.IsPos() {
		return fmt.Errorf("%w: initial capital %s", ErrInvalidConfig, c.InitialCapital)
	}
	if c.LookbackBars < 0 {
		return fmt.Errorf("%w: negative lookback", ErrInvalidConfig)
	}
	return nil
}
