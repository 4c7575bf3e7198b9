package historical

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/datasource"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
)

const providerComponentName = "datasource.historical.provider"

// Provider replays binary tick files, one file per symbol. Records must
// be sorted by timestamp, the start offset is found by binary search.
type Provider struct {
	sources map[string]*Source[BinaryTick]
}

func NewProvider() *Provider {
	return &Provider{
		sources: make(map[string]*Source[BinaryTick]),
	}
}

func (p *Provider) AddSymbol(symbol, dataSourceName string) {
	p.sources[symbol] = NewSource[BinaryTick](dataSourceName)
}

func (p *Provider) Open() error {
	for symbol, source := range p.sources {
		if err := source.Open(); err != nil {
			return fmt.Errorf("opening source for %s: %w", symbol, err)
		}
	}
	return nil
}

func (p *Provider) Close() {
	for _, source := range p.sources {
		source.Close()
	}
}

func (p *Provider) Capabilities(symbol string) datasource.Capabilities {
	_, ok := p.sources[symbol]
	return datasource.Capabilities{Ticks: ok}
}

func (p *Provider) Ticks(ctx context.Context, symbol string, from, to time.Time) ([]common.Tick, error) {
	source, ok := p.sources[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", datasource.ErrSymbolUnknown, symbol)
	}

	idx, err := lookupStartIndex(source, from.UnixNano())
	if err != nil {
		if errors.Is(err, datasource.ErrNoData) {
			return nil, err
		}
		return nil, fmt.Errorf("locating start for %s: %w", symbol, err)
	}

	toNanos := to.UnixNano()
	var (
		ticks   []common.Tick
		binTick BinaryTick
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := source.Read(idx, &binTick); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading entry at index %d: %w", idx, err)
		}
		idx++

		if binTick.TimeStamp >= toNanos {
			break
		}

		var tick common.Tick
		binTick.ToTick(&tick)
		tick.Source = providerComponentName
		tick.Symbol = symbol
		tick.ExecutionID = utility.GetExecutionID()
		tick.TraceID = utility.CreateTraceID()
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

func (p *Provider) Bars(context.Context, string, time.Duration, time.Time, time.Time) ([]common.Bar, error) {
	return nil, datasource.ErrNotSupported
}

func (p *Provider) Depth(context.Context, string, time.Time, time.Time) ([]common.OrderBookSnapshot, error) {
	return nil, datasource.ErrNotSupported
}

// lookupStartIndex finds the first record with a timestamp >= from.
func lookupStartIndex(source *Source[BinaryTick], from int64) (int64, error) {
	entryCount, err := source.EntryCount()
	if err != nil {
		return 0, fmt.Errorf("getting entry count: %w", err)
	}
	if entryCount == 0 {
		return 0, datasource.ErrNoData
	}

	var entry BinaryTick

	low := int64(0)
	high := entryCount - 1

	for low <= high {
		mid := (low + high) / 2

		if err := source.Read(mid, &entry); err != nil {
			return 0, fmt.Errorf("reading entry at index %d: %w", mid, err)
		}

		if entry.TimeStamp < from {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	if low >= entryCount {
		return 0, datasource.ErrNoData
	}
	return low, nil
}
