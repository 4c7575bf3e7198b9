package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/datasource"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const readerComponentName = "datasource.duckdb.reader"

// Reader serves recorded market data from a duckdb file. Each symbol
// lives in its own <symbol>_ticks and <symbol>_bars tables.
type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

func (r *Reader) Capabilities(symbol string) datasource.Capabilities {
	return datasource.Capabilities{
		Ticks: r.tableExists(tableName(symbol, "ticks")),
		Bars:  r.tableExists(tableName(symbol, "bars")),
	}
}

func (r *Reader) Ticks(ctx context.Context, symbol string, from, to time.Time) ([]common.Tick, error) {
	if r.db == nil {
		return nil, datasource.ErrSourceNotReady
	}

	query := fmt.Sprintf(
		`SELECT ts, price, volume, side FROM %s WHERE ts >= ? AND ts < ? ORDER BY ts`,
		tableName(symbol, "ticks"))

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying ticks for %s: %w", symbol, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ticks []common.Tick
	for rows.Next() {
		var (
			ts            time.Time
			price, volume string
			side          int
		)
		if err := rows.Scan(&ts, &price, &volume, &side); err != nil {
			return nil, fmt.Errorf("scanning tick row: %w", err)
		}
		tick := common.Tick{
			Side:        common.TickSide(side),
			Source:      readerComponentName,
			Symbol:      symbol,
			ExecutionID: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   ts,
		}
		if tick.Price, err = fixed.FromString(price); err != nil {
			return nil, fmt.Errorf("parsing tick price %q: %w", price, err)
		}
		if tick.Volume, err = fixed.FromString(volume); err != nil {
			return nil, fmt.Errorf("parsing tick volume %q: %w", volume, err)
		}
		ticks = append(ticks, tick)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning tick rows: %w", err)
	}
	return ticks, nil
}

func (r *Reader) Bars(ctx context.Context, symbol string, period time.Duration, from, to time.Time) ([]common.Bar, error) {
	if r.db == nil {
		return nil, datasource.ErrSourceNotReady
	}

	query := fmt.Sprintf(
		`SELECT ts, open, high, low, close, volume FROM %s WHERE period_ns = ? AND ts >= ? AND ts < ? ORDER BY ts`,
		tableName(symbol, "bars"))

	rows, err := r.db.QueryContext(ctx, query, period.Nanoseconds(), from, to)
	if err != nil {
		return nil, fmt.Errorf("querying bars for %s: %w", symbol, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var bars []common.Bar
	for rows.Next() {
		var (
			ts                                time.Time
			open, high, low, closing, volume string
		)
		if err := rows.Scan(&ts, &open, &high, &low, &closing, &volume); err != nil {
			return nil, fmt.Errorf("scanning bar row: %w", err)
		}
		bar := common.Bar{
			Period:      period,
			Source:      readerComponentName,
			Symbol:      symbol,
			ExecutionID: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   ts,
		}
		fields := []struct {
			dst *fixed.Point
			raw string
		}{
			{&bar.Open, open}, {&bar.High, high}, {&bar.Low, low},
			{&bar.Close, closing}, {&bar.Volume, volume},
		}
		for _, f := range fields {
			if *f.dst, err = fixed.FromString(f.raw); err != nil {
				return nil, fmt.Errorf("parsing bar field %q: %w", f.raw, err)
			}
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning bar rows: %w", err)
	}
	return bars, nil
}

func (r *Reader) Depth(context.Context, string, time.Time, time.Time) ([]common.OrderBookSnapshot, error) {
	return nil, datasource.ErrNotSupported
}

func (r *Reader) tableExists(name string) bool {
	if r.db == nil {
		return false
	}
	var count int
	err := r.db.QueryRow(
		`SELECT count(*) FROM information_schema.tables WHERE table_name = ?`, name).Scan(&count)
	return err == nil && count > 0
}

// tableName maps a symbol like BTC/USD to btc_usd_ticks.
func tableName(symbol, suffix string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(symbol) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String() + "_" + suffix
}
