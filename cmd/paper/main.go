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
	"github.com/tomas-vanek/fulcrum/pkg/datasource/live"
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
	if cfg.Simulation.Mode != string(engine.ModePaper) {
		return fmt.Errorf("paper runs need mode %q, got %q", engine.ModePaper, cfg.Simulation.Mode)
	}
	if cfg.Data.Source != config.SourceLive {
		return fmt.Errorf("paper runs need the live data source, got %q", cfg.Data.Source)
	}

	logger, err := dbg.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	dbg.SetSlogLevel(cfg.Log.Level)

	logger.Info(fmt.Sprintf("paper %s", version))
	defer logger.Info("done")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

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

	telemetry := middleware.NewTelemetry(reversion, logger)
	defer telemetry.PrintStatistics()

	audit := simulation.NewAudit(snapshotInterval)

	e, err := engine.NewEngine(engineCfg, telemetry, nil, evaluator,
		engine.WithBookModel(bookModel),
		engine.WithRecorder(audit))
	if err != nil {
		return err
	}

	feed := live.NewFeed(cfg.Data.FeedURL, cfg.Simulation.Symbols, logger)
	if err := feed.Connect(ctx); err != nil {
		return fmt.Errorf("connecting feed: %w", err)
	}
	defer feed.Close()

	if err := e.RunLive(ctx, feed.Stream(ctx)); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("paper run failed: %w", err)
		}
		logger.Info("paper run stopped")
	}

	audit.GenerateReport().Print(logger)
	return nil
}
