package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tomas-vanek/fulcrum/examples/strategy"
	"github.com/tomas-vanek/fulcrum/internal/dbg"
	"github.com/tomas-vanek/fulcrum/pkg/book"
	"github.com/tomas-vanek/fulcrum/pkg/config"
	"github.com/tomas-vanek/fulcrum/pkg/datasource"
	"github.com/tomas-vanek/fulcrum/pkg/datasource/duckdb"
	"github.com/tomas-vanek/fulcrum/pkg/datasource/historical"
	"github.com/tomas-vanek/fulcrum/pkg/datasource/synthetic"
	"github.com/tomas-vanek/fulcrum/pkg/engine"
	"github.com/tomas-vanek/fulcrum/pkg/execution"
	"github.com/tomas-vanek/fulcrum/pkg/middleware"
	"github.com/tomas-vanek/fulcrum/pkg/simulation"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const version = "0.1.0"

const (
	snapshotInterval = time.Minute
	reversionWindow  = 20
	monitorFlags     = middleware.MonitorOrdersPlaced | middleware.MonitorOrdersFilled | middleware.MonitorOrdersCancelled
)

var reversionSize = fixed.FromInt64(1, 0)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the yaml configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := dbg.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	dbg.SetSlogLevel(cfg.Log.Level)

	logger.Info(fmt.Sprintf("replay %s", version))
	defer logger.Info("done")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, cleanup, err := buildProvider(cfg)
	if err != nil {
		return fmt.Errorf("building data provider: %w", err)
	}
	defer cleanup()

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	executionCfg, err := cfg.ExecutionConfig()
	if err != nil {
		return err
	}
	bookCfg, err := cfg.BookConfig()
	if err != nil {
		return err
	}

	evaluator, err := execution.NewModel(executionCfg, rand.New(rand.NewSource(cfg.Simulation.Seed)))
	if err != nil {
		return err
	}
	bookModel, err := book.NewModel(bookCfg, rand.New(rand.NewSource(cfg.Simulation.Seed+1)))
	if err != nil {
		return err
	}

	period := time.Minute
	if len(cfg.Simulation.Periods) > 0 {
		period = cfg.Simulation.Periods[0]
	}
	reversion := strategy.NewMeanReversion(cfg.Simulation.Symbols[0], period, reversionSize, reversionWindow)

	monitor := middleware.NewMonitor(reversion, monitorFlags)
	telemetry := middleware.NewTelemetry(monitor, logger)
	defer telemetry.PrintStatistics()

	audit := simulation.NewAudit(snapshotInterval)

	e, err := engine.NewEngine(engineCfg, telemetry, provider, evaluator,
		engine.WithBookModel(bookModel),
		engine.WithRecorder(audit))
	if err != nil {
		return err
	}

	if err := e.Preload(ctx); err != nil {
		return fmt.Errorf("preloading history: %w", err)
	}
	if err := e.SeedEvents(ctx); err != nil {
		return fmt.Errorf("seeding market data: %w", err)
	}
	if err := e.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("replay failed: %w", err)
		}
		logger.Warn("replay interrupted")
	}

	audit.GenerateReport().Print(logger)
	return nil
}

func buildProvider(cfg *config.Config) (datasource.Provider, func(), error) {
	switch cfg.Data.Source {
	case config.SourceSynthetic:
		syntheticCfg, err := cfg.SyntheticConfig()
		if err != nil {
			return nil, nil, err
		}
		g, err := synthetic.NewGenerator(syntheticCfg)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {}, nil

	case config.SourceDuckDB:
		r := duckdb.NewReader(cfg.Data.DuckDB)
		if err := r.Connect(); err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil

	case config.SourceHistorical:
		p := historical.NewProvider()
		for symbol, path := range cfg.Data.TickFiles {
			p.AddSymbol(symbol, path)
		}
		if err := p.Open(); err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil

	default:
		return nil, nil, fmt.Errorf("source %q cannot drive a replay", cfg.Data.Source)
	}
}
