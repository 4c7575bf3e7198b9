package engine

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-vanek/fulcrum/pkg/bus"
	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/datasource/synthetic"
	"github.com/tomas-vanek/fulcrum/pkg/execution"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

type recordingStrategy struct {
	NopStrategy

	engine      *Engine
	ticks       []common.Tick
	placed      []common.Order
	fills       []common.Fill
	cancelled   []common.Order
	positions   []common.PositionChange
	cash        []common.CashChange
	started     bool
	ended       bool
	placeOnTick int
}

func (s *recordingStrategy) Initialize(_ context.Context, e *Engine) error {
	s.engine = e
	return nil
}

func (s *recordingStrategy) OnStart(context.Context) { s.started = true }
func (s *recordingStrategy) OnEnd(context.Context)   { s.ended = true }

func (s *recordingStrategy) OnTick(_ context.Context, tick common.Tick) {
	s.ticks = append(s.ticks, tick)
	if s.placeOnTick > 0 && len(s.ticks) == s.placeOnTick {
		_, _ = s.engine.PlaceOrder(OrderRequest{
			Symbol:   tick.Symbol,
			Side:     common.OrderSideBuy,
			Type:     common.OrderTypeMarket,
			Quantity: fixed.FromInt(10, 0),
		})
	}
}

func (s *recordingStrategy) OnOrderPlaced(_ context.Context, o common.Order) {
	s.placed = append(s.placed, o)
}

func (s *recordingStrategy) OnOrderFilled(_ context.Context, _ common.Order, f common.Fill) {
	s.fills = append(s.fills, f)
}

func (s *recordingStrategy) OnOrderCancelled(_ context.Context, o common.Order) {
	s.cancelled = append(s.cancelled, o)
}

func (s *recordingStrategy) OnPositionChanged(_ context.Context, c common.PositionChange) {
	s.positions = append(s.positions, c)
}

func (s *recordingStrategy) OnCashChanged(_ context.Context, c common.CashChange) {
	s.cash = append(s.cash, c)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Start = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	cfg.End = cfg.Start.Add(2 * time.Minute)
	cfg.Symbols = []string{"EURUSD"}
	cfg.InitialCapital = fixed.FromInt(100000, 0)
	cfg.LookbackBars = 0
	return cfg
}

// quietEvaluator builds an execution model with all randomness removed.
func quietEvaluator(t *testing.T) *execution.Model {
	t.Helper()
	cfg := execution.DefaultConfig()
	cfg.Latency.Profile = execution.LatencyHighFrequency
	cfg.Latency.Jitter = 0
	cfg.Slippage.ExtremeProbability = 0
	cfg.Fill.PartialFillProbability = 0
	cfg.Fill.RejectionProbability = 0
	cfg.Fill.CancelRaceProbability = 0
	cfg.Fill.EnableTimedFills = false
	m, err := execution.NewModel(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return m
}

func syntheticProvider(t *testing.T, seed int64) *synthetic.Generator {
	t.Helper()
	cfg := synthetic.DefaultConfig()
	cfg.Seed = seed
	g, err := synthetic.NewGenerator(cfg)
	require.NoError(t, err)
	return g
}

func TestNewEngine_validation(t *testing.T) {
	strategy := &recordingStrategy{}
	provider := syntheticProvider(t, 1)
	evaluator := quietEvaluator(t)

	_, err := NewEngine(testConfig(), nil, provider, evaluator)
	assert.ErrorIs(t, err, ErrMissingStrategy)

	_, err = NewEngine(testConfig(), strategy, provider, nil)
	assert.ErrorIs(t, err, ErrMissingEvaluator)

	_, err = NewEngine(testConfig(), strategy, nil, evaluator)
	assert.ErrorIs(t, err, ErrMissingProvider)

	bad := testConfig()
	bad.End = bad.Start
	_, err = NewEngine(bad, strategy, provider, evaluator)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad = testConfig()
	bad.Symbols = nil
	_, err = NewEngine(bad, strategy, provider, evaluator)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEngine_runDeliversMarketData(t *testing.T) {
	strategy := &recordingStrategy{}
	e, err := NewEngine(testConfig(), strategy, syntheticProvider(t, 1), quietEvaluator(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.SeedEvents(ctx))
	require.NoError(t, e.Run(ctx))

	assert.True(t, strategy.started)
	assert.True(t, strategy.ended)
	assert.Len(t, strategy.ticks, 120)

	for i := 1; i < len(strategy.ticks); i++ {
		assert.False(t, strategy.ticks[i].TimeStamp.Before(strategy.ticks[i-1].TimeStamp))
	}
}

func TestEngine_orderLifecycle(t *testing.T) {
	strategy := &recordingStrategy{placeOnTick: 5}
	e, err := NewEngine(testConfig(), strategy, syntheticProvider(t, 1), quietEvaluator(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.SeedEvents(ctx))
	require.NoError(t, e.Run(ctx))

	require.Len(t, strategy.placed, 1)
	assert.Equal(t, common.OrderStatusPending, strategy.placed[0].Status)

	require.Len(t, strategy.fills, 1)
	fill := strategy.fills[0]
	assert.True(t, fill.Quantity.Eq(fixed.FromInt(10, 0)))
	assert.True(t, fill.Price.IsPos())

	order, ok := e.Order(fill.OrderID)
	require.True(t, ok)
	assert.Equal(t, common.OrderStatusFilled, order.Status)

	// portfolio flows arrive after the fill
	require.Len(t, strategy.positions, 1)
	assert.True(t, strategy.positions[0].Quantity.Eq(fixed.FromInt(10, 0)))
	require.Len(t, strategy.cash, 1)
	assert.True(t, strategy.cash[0].Delta.IsNeg())
	assert.True(t, e.Cash().Lt(fixed.FromInt(100000, 0)))
}

func TestEngine_fillObservedAfterLatency(t *testing.T) {
	strategy := &recordingStrategy{placeOnTick: 5}
	e, err := NewEngine(testConfig(), strategy, syntheticProvider(t, 1), quietEvaluator(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.SeedEvents(ctx))
	require.NoError(t, e.Run(ctx))

	require.Len(t, strategy.fills, 1)
	require.Len(t, strategy.ticks, 120)
	placedAt := strategy.placed[0].UpdatedAt
	assert.True(t, strategy.fills[0].TimeStamp.After(placedAt),
		"fill %s must trail the ack %s", strategy.fills[0].TimeStamp, placedAt)
}

func TestEngine_cancelOrder(t *testing.T) {
	strategy := &recordingStrategy{}
	e, err := NewEngine(testConfig(), strategy, syntheticProvider(t, 1), quietEvaluator(t))
	require.NoError(t, err)

	// a limit far away from the market never fills
	ctx := context.Background()
	require.NoError(t, e.SeedEvents(ctx))
	require.NoError(t, e.strategy.Initialize(ctx, e))

	id, err := e.PlaceOrder(OrderRequest{
		Symbol:     "EURUSD",
		Side:       common.OrderSideBuy,
		Type:       common.OrderTypeLimit,
		Quantity:   fixed.FromInt(1, 0),
		LimitPrice: fixed.FromFloat64(0.01),
	})
	require.NoError(t, err)

	assert.True(t, e.CancelOrder(id))
	order, ok := e.Order(id)
	require.True(t, ok)
	assert.Equal(t, common.OrderStatusCancelled, order.Status)

	// a second cancel is a no-op
	assert.False(t, e.CancelOrder(id))
	assert.False(t, e.CancelOrder(common.OrderID{}))
}

func TestEngine_placeOrderValidation(t *testing.T) {
	strategy := &recordingStrategy{}
	e, err := NewEngine(testConfig(), strategy, syntheticProvider(t, 1), quietEvaluator(t))
	require.NoError(t, err)

	_, err = e.PlaceOrder(OrderRequest{
		Symbol:   "GBPUSD",
		Side:     common.OrderSideBuy,
		Type:     common.OrderTypeMarket,
		Quantity: fixed.One,
	})
	assert.ErrorIs(t, err, common.ErrInvalidOrder)

	_, err = e.PlaceOrder(OrderRequest{
		Symbol:   "EURUSD",
		Side:     common.OrderSideBuy,
		Type:     common.OrderTypeMarket,
		Quantity: fixed.Zero,
	})
	assert.ErrorIs(t, err, common.ErrInvalidOrder)
}

func TestEngine_deterministicRuns(t *testing.T) {
	run := func() []common.Fill {
		strategy := &recordingStrategy{placeOnTick: 3}
		cfg := testConfig()
		cfg.Seed = 7

		evalCfg := execution.DefaultConfig()
		model, err := execution.NewModel(evalCfg, rand.New(rand.NewSource(cfg.Seed)))
		require.NoError(t, err)

		e, err := NewEngine(cfg, strategy, syntheticProvider(t, 7), model)
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, e.SeedEvents(ctx))
		require.NoError(t, e.Run(ctx))
		return strategy.fills
	}

	a, b := run(), run()
	require.Len(t, b, len(a))
	for i := range a {
		assert.True(t, a[i].Price.Eq(b[i].Price), "fill %d price", i)
		assert.True(t, a[i].Quantity.Eq(b[i].Quantity), "fill %d quantity", i)
		assert.Equal(t, a[i].TimeStamp, b[i].TimeStamp, "fill %d time", i)
	}
}

func TestEngine_virtualClockRejectsRegression(t *testing.T) {
	c := NewVirtualClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	require.NoError(t, c.Advance(c.Now().Add(time.Second)))
	require.NoError(t, c.Advance(c.Now())) // equal time is allowed
	assert.ErrorIs(t, c.Advance(c.Now().Add(-time.Second)), ErrTimeRegression)
}

func TestEngine_equityTracksMarks(t *testing.T) {
	strategy := &recordingStrategy{placeOnTick: 1}
	e, err := NewEngine(testConfig(), strategy, syntheticProvider(t, 1), quietEvaluator(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.SeedEvents(ctx))
	require.NoError(t, e.Run(ctx))

	require.Len(t, strategy.fills, 1)
	pos, ok := e.Ledger().Position("EURUSD")
	require.True(t, ok)
	require.False(t, pos.Quantity.IsZero())

	// equity = cash + marked position
	lastPrice := strategy.ticks[len(strategy.ticks)-1].Price
	expected := e.Cash().Add(pos.Quantity.Mul(lastPrice))
	assert.True(t, e.Equity().Eq(expected), "equity %s expected %s", e.Equity(), expected)
}

type recordingClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *recordingClock) Now() time.Time          { return c.now }
func (c *recordingClock) Advance(time.Time) error { return nil }

func (c *recordingClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	return nil
}

func TestEngine_realtimeEmitSleepsOnClock(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModePaper
	clock := &recordingClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	e, err := NewEngine(cfg, &recordingStrategy{}, nil, quietEvaluator(t), WithClock(clock))
	require.NoError(t, err)
	e.runCtx = context.Background()

	tick := common.Tick{Symbol: "EURUSD", Price: fixed.FromInt(1, 0), TimeStamp: time.Now().Add(50 * time.Millisecond)}
	e.emit(bus.NewTickEvent(tick))

	select {
	case ev := <-e.feed:
		assert.Equal(t, bus.TickEvent, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("scheduled event never reached the feed")
	}
	require.Len(t, clock.slept, 1)
	assert.Greater(t, clock.slept[0], time.Duration(0))
}

func TestEngine_realtimeEmitHonorsCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = ModePaper
	clock := &recordingClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	e, err := NewEngine(cfg, &recordingStrategy{}, nil, quietEvaluator(t), WithClock(clock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.runCtx = ctx

	tick := common.Tick{Symbol: "EURUSD", Price: fixed.FromInt(1, 0), TimeStamp: time.Now().Add(50 * time.Millisecond)}
	e.emit(bus.NewTickEvent(tick))

	select {
	case <-e.feed:
		t.Fatal("event delivered after the run context was cancelled")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEngine_observePriceDropsNonPositive(t *testing.T) {
	e, err := NewEngine(testConfig(), &recordingStrategy{}, syntheticProvider(t, 1), quietEvaluator(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	e.observePrice("EURUSD", fixed.Zero, time.Now())

	assert.False(t, e.symbols["EURUSD"].havePrice)
	assert.Contains(t, buf.String(), "non-positive price")
}

func TestWallClock_sleep(t *testing.T) {
	c := NewWallClock()

	start := time.Now()
	require.NoError(t, c.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Sleep(ctx, time.Hour), context.Canceled)
}

func TestTrailingStop_ratchet(t *testing.T) {
	offset := fixed.FromInt(5, 0)

	// protective sell stop trails rising prices up
	stop := trailTrailingStop(common.OrderSideSell, fixed.Zero, fixed.FromInt(100, 0), offset)
	assert.True(t, stop.Eq(fixed.FromInt(95, 0)))

	stop = trailTrailingStop(common.OrderSideSell, stop, fixed.FromInt(110, 0), offset)
	assert.True(t, stop.Eq(fixed.FromInt(105, 0)))

	// never loosens on a pullback
	stop = trailTrailingStop(common.OrderSideSell, stop, fixed.FromInt(101, 0), offset)
	assert.True(t, stop.Eq(fixed.FromInt(105, 0)))

	// buy-side trails falling prices down
	stop = trailTrailingStop(common.OrderSideBuy, fixed.Zero, fixed.FromInt(100, 0), offset)
	assert.True(t, stop.Eq(fixed.FromInt(105, 0)))
	stop = trailTrailingStop(common.OrderSideBuy, stop, fixed.FromInt(90, 0), offset)
	assert.True(t, stop.Eq(fixed.FromInt(95, 0)))
}
