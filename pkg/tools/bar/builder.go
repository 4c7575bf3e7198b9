package bar

import (
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
)

const builderComponentName = "tools.bar.builder"

type barConfig struct {
	symbol string
	period time.Duration
}

type Option func(*Builder)

func With(symbol string, period time.Duration) Option {
	return func(b *Builder) {
		for _, c := range b.configs {
			if c.symbol == symbol && c.period == period {
				panic("bar config already exists")
			}
		}
		b.configs = append(b.configs, barConfig{symbol: symbol, period: period})
	}
}

// Builder aggregates ticks into bars. A bar's timestamp is its aligned
// open time, a bar is emitted once a tick crosses the period boundary.
type Builder struct {
	onBar          func(common.Bar)
	configs        []barConfig
	inConstruction []common.Bar
}

func NewBuilder(onBar func(common.Bar), options ...Option) *Builder {
	b := &Builder{
		onBar: onBar,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Builder) OnTick(tick common.Tick) {
	for _, c := range b.configs {
		if c.symbol != tick.Symbol {
			continue
		}
		b.construct(c, tick)
	}
}

// Flush emits every bar still under construction, closing out a replay.
func (b *Builder) Flush() {
	for _, bar := range b.inConstruction {
		b.onBar(bar)
	}
	b.inConstruction = b.inConstruction[:0]
}

func (b *Builder) construct(c barConfig, tick common.Tick) {
	// close the current bar when the tick belongs to the next period
	for i, bar := range b.inConstruction {
		if bar.Symbol == c.symbol && bar.Period == c.period {
			if !tick.TimeStamp.Before(bar.TimeStamp.Add(c.period)) {
				b.onBar(bar)
				b.inConstruction = append(b.inConstruction[:i], b.inConstruction[i+1:]...)
			}
			break
		}
	}

	for i := range b.inConstruction {
		bar := &b.inConstruction[i]
		if bar.Symbol != c.symbol || bar.Period != c.period {
			continue
		}

		if tick.Price.Gt(bar.High) {
			bar.High = tick.Price
		}
		if tick.Price.Lt(bar.Low) {
			bar.Low = tick.Price
		}
		bar.Close = tick.Price
		bar.Volume = bar.Volume.Add(tick.Volume)
		return
	}

	b.inConstruction = append(b.inConstruction, common.Bar{
		Open:        tick.Price,
		High:        tick.Price,
		Low:         tick.Price,
		Close:       tick.Price,
		Volume:      tick.Volume,
		Period:      c.period,
		Source:      builderComponentName,
		Symbol:      c.symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   tick.TimeStamp.Truncate(c.period),
	})
}
