// Package engine runs the simulation loop: it seeds market data into the
// event queue, advances the clock event by event, routes callbacks to the
// strategy and pushes orders through the execution model. One engine
// drives one run, replay or paper, with identical semantics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tomas-vanek/fulcrum/pkg/book"
	"github.com/tomas-vanek/fulcrum/pkg/bus"
	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/datasource"
	"github.com/tomas-vanek/fulcrum/pkg/execution"
	"github.com/tomas-vanek/fulcrum/pkg/portfolio"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const (
	componentName   = "engine"
	reevalEventName = "engine.reevaluate"

	volatilityWindow = 64
	feedCapacity     = 1024
)

var (
	ErrMissingStrategy  = errors.New("engine requires a strategy")
	ErrMissingEvaluator = errors.New("engine requires an execution evaluator")
	ErrMissingProvider  = errors.New("backtest mode requires a data provider")
	ErrUnknownOrder     = errors.New("unknown order id")
)

type Option func(*Engine)

func WithClock(c Clock) Option          { return func(e *Engine) { e.clock = c } }
func WithBookModel(m *book.Model) Option { return func(e *Engine) { e.bookModel = m } }
func WithRecorder(r Recorder) Option    { return func(e *Engine) { e.recorder = r } }

type symbolState struct {
	lastPrice     fixed.Point
	havePrice     bool
	book          *common.OrderBookSnapshot
	bookSynthetic bool
	returns       *fixed.RingBuffer
}

type historyKey struct {
	symbol string
	period time.Duration
}

// Engine owns all mutable run state. It is single-threaded by design,
// every mutation happens on the run loop.
type Engine struct {
	cfg       Config
	clock     Clock
	queue     *bus.EventQueue
	evaluator execution.Evaluator
	bookModel *book.Model
	provider  datasource.Provider
	ledger    *portfolio.Ledger
	strategy  Strategy
	recorder  Recorder
	rng       *rand.Rand

	symbols  map[string]*symbolState
	orders   map[common.OrderID]*common.Order
	orderSeq []common.OrderID
	history  map[historyKey][]common.Bar

	realtime bool
	feed     chan bus.Event
	runCtx   context.Context
}

func NewEngine(cfg Config, strategy Strategy, provider datasource.Provider,
	evaluator execution.Evaluator, opts ...Option) (*Engine, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, ErrMissingStrategy
	}
	if evaluator == nil {
		return nil, ErrMissingEvaluator
	}
	if provider == nil && cfg.Mode == ModeBacktest {
		return nil, ErrMissingProvider
	}

	e := &Engine{
		cfg:       cfg,
		queue:     bus.NewEventQueue(),
		evaluator: evaluator,
		provider:  provider,
		strategy:  strategy,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		symbols:   make(map[string]*symbolState, len(cfg.Symbols)),
		orders:    make(map[common.OrderID]*common.Order),
		history:   make(map[historyKey][]common.Bar),
		realtime:  cfg.Mode == ModePaper,
		feed:      make(chan bus.Event, feedCapacity),
	}
	for _, symbol := range cfg.Symbols {
		e.symbols[symbol] = &symbolState{returns: fixed.NewRingBuffer(volatilityWindow)}
	}

	ledger, err := portfolio.NewLedger(cfg.InitialCapital)
	if err != nil {
		return nil, err
	}
	e.ledger = ledger

	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		if e.realtime {
			e.clock = NewWallClock()
		} else {
			e.clock = NewVirtualClock(cfg.Start)
		}
	}
	return e, nil
}

func (e *Engine) Clock() Clock               { return e.clock }
func (e *Engine) Cash() fixed.Point          { return e.ledger.Cash() }
func (e *Engine) Ledger() *portfolio.Ledger  { return e.ledger }

// Equity marks open positions at the last seen prices.
func (e *Engine) Equity() fixed.Point {
	return e.ledger.Equity(e.marks())
}

// Order returns a copy of the tracked order.
func (e *Engine) Order(id common.OrderID) (common.Order, bool) {
	o, ok := e.orders[id]
	if !ok {
		return common.Order{}, false
	}
	return *o, true
}

// History returns the preloaded warm-up bars for one symbol and period.
func (e *Engine) History(symbol string, period time.Duration) []common.Bar {
	return e.history[historyKey{symbol: symbol, period: period}]
}

// Preload fetches LookbackBars of history before Start for every symbol
// and period. Gaps are logged and skipped, warm-up data is best effort.
func (e *Engine) Preload(ctx context.Context) error {
	if e.provider == nil || e.cfg.LookbackBars == 0 {
		return nil
	}
	for _, symbol := range e.cfg.Symbols {
		if !e.provider.Capabilities(symbol).Bars {
			continue
		}
		for _, period := range e.cfg.Periods {
			from := e.cfg.Start.Add(-period * time.Duration(e.cfg.LookbackBars))
			bars, err := e.provider.Bars(ctx, symbol, period, from, e.cfg.Start)
			if err != nil {
				slog.Warn("history preload failed",
					"component", componentName,
					"symbol", symbol,
					"period", period,
					"error", err)
				continue
			}
			e.history[historyKey{symbol: symbol, period: period}] = bars
		}
	}
	return nil
}

// SeedEvents loads the full replay window into the queue. A symbol that
// yields no events at all is fatal, the run would silently do nothing.
func (e *Engine) SeedEvents(ctx context.Context) error {
	for _, symbol := range e.cfg.Symbols {
		caps := e.provider.Capabilities(symbol)
		seeded := 0

		if caps.Ticks {
			ticks, err := e.provider.Ticks(ctx, symbol, e.cfg.Start, e.cfg.End)
			if err != nil && !errors.Is(err, datasource.ErrNoData) {
				return fmt.Errorf("seeding ticks for %s: %w", symbol, err)
			}
			for _, t := range ticks {
				e.queue.Enqueue(bus.NewTickEvent(t))
			}
			seeded += len(ticks)
		}
		if caps.Bars {
			for _, period := range e.cfg.Periods {
				bars, err := e.provider.Bars(ctx, symbol, period, e.cfg.Start, e.cfg.End)
				if err != nil && !errors.Is(err, datasource.ErrNoData) {
					return fmt.Errorf("seeding bars for %s: %w", symbol, err)
				}
				for _, b := range bars {
					e.queue.Enqueue(bus.NewBarEvent(b))
				}
				seeded += len(bars)
			}
		}
		if caps.OrderBook {
			snaps, err := e.provider.Depth(ctx, symbol, e.cfg.Start, e.cfg.End)
			if err != nil && !errors.Is(err, datasource.ErrNoData) {
				return fmt.Errorf("seeding depth for %s: %w", symbol, err)
			}
			for _, s := range snaps {
				e.queue.Enqueue(bus.NewOrderBookEvent(s))
			}
			seeded += len(snaps)
		}

		if seeded == 0 {
			return fmt.Errorf("%w: symbol %s produced no events", datasource.ErrNoData, symbol)
		}
		slog.Debug("seeded market data",
			"component", componentName,
			"symbol", symbol,
			"events", seeded)
	}
	return nil
}

// Run drains the queue in deterministic order until it is empty or the
// configured end is reached.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.strategy.Initialize(ctx, e); err != nil {
		return fmt.Errorf("strategy initialize: %w", err)
	}
	e.strategy.OnStart(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := e.queue.Dequeue()
		if errors.Is(err, bus.ErrEmptyQueue) {
			break
		}
		if err != nil {
			return err
		}
		if ev.TimeStamp.After(e.cfg.End) {
			break
		}
		if err := e.clock.Advance(ev.TimeStamp); err != nil {
			return err
		}
		e.dispatch(ctx, ev)
	}

	e.snapshot(e.clock.Now())
	e.strategy.OnEnd(ctx)
	return nil
}

// RunLive consumes a live feed until the context ends or the channel
// closes. Latencies materialize as real delays, everything else follows
// the replay semantics.
func (e *Engine) RunLive(ctx context.Context, ticks <-chan common.Tick) error {
	e.runCtx = ctx
	if err := e.strategy.Initialize(ctx, e); err != nil {
		return fmt.Errorf("strategy initialize: %w", err)
	}
	e.strategy.OnStart(ctx)
	defer func() {
		e.snapshot(e.clock.Now())
		e.strategy.OnEnd(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.feed:
			e.dispatch(ctx, ev)
		case tick, ok := <-ticks:
			if !ok {
				return nil
			}
			if _, tracked := e.symbols[tick.Symbol]; !tracked {
				continue
			}
			e.dispatch(ctx, bus.NewTickEvent(tick))
		}
	}
}

// emit routes an event either into the replay queue or, in real time,
// onto the feed after its timestamp has actually passed. The real-time
// suspension goes through the clock so it honors run cancellation.
func (e *Engine) emit(ev bus.Event) {
	if !e.realtime {
		e.queue.Enqueue(ev)
		return
	}
	delay := time.Until(ev.TimeStamp)
	if delay <= 0 {
		e.deliver(ev)
		return
	}
	ctx := e.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		if err := e.clock.Sleep(ctx, delay); err != nil {
			return
		}
		e.deliver(ev)
	}()
}

func (e *Engine) deliver(ev bus.Event) {
	select {
	case e.feed <- ev:
	default:
		slog.Error("feed backlog full, dropping event",
			"component", componentName, "event", ev.ID)
	}
}

func (e *Engine) dispatch(ctx context.Context, ev bus.Event) {
	switch ev.ID {
	case bus.TickEvent:
		tick, ok := ev.Data.(common.Tick)
		if !ok {
			slog.Error("malformed tick event", "component", componentName)
			return
		}
		e.observePrice(tick.Symbol, tick.Price, ev.TimeStamp)
		e.evaluateOpenOrders(tick.Symbol, ev.TimeStamp)
		e.strategy.OnTick(ctx, tick)

	case bus.BarEvent:
		bar, ok := ev.Data.(common.Bar)
		if !ok {
			slog.Error("malformed bar event", "component", componentName)
			return
		}
		e.observePrice(bar.Symbol, bar.Close, ev.TimeStamp)
		e.appendHistory(bar)
		e.evaluateOpenOrders(bar.Symbol, ev.TimeStamp)
		e.strategy.OnBar(ctx, bar)

	case bus.OrderBookEvent:
		snap, ok := ev.Data.(common.OrderBookSnapshot)
		if !ok {
			slog.Error("malformed order book event", "component", componentName)
			return
		}
		e.observeBook(snap, ev.TimeStamp)
		e.evaluateOpenOrders(snap.Symbol, ev.TimeStamp)
		e.strategy.OnOrderBook(ctx, snap)

	case bus.OrderPlacedEvent:
		placed, ok := ev.Data.(bus.OrderPlaced)
		if !ok {
			return
		}
		order, tracked := e.orders[placed.Order.ID]
		if !tracked || order.Status != common.OrderStatusCreated {
			return
		}
		if err := order.Transition(common.OrderStatusPending, ev.TimeStamp); err != nil {
			slog.Error("placement ack failed",
				"component", componentName, "order", order.ID, "error", err)
			return
		}
		e.strategy.OnOrderPlaced(ctx, *order)

	case bus.OrderFilledEvent:
		filled, ok := ev.Data.(bus.OrderFilled)
		if !ok {
			return
		}
		posChange, cashChange := e.ledger.Apply(filled.Fill)
		e.emit(bus.NewPositionChangedEvent(posChange))
		e.emit(bus.NewCashChangedEvent(cashChange))
		if e.recorder != nil {
			e.recorder.RecordFill(filled.Fill)
		}
		e.snapshot(ev.TimeStamp)
		e.strategy.OnOrderFilled(ctx, filled.Order, filled.Fill)

	case bus.OrderCancelledEvent:
		cancelled, ok := ev.Data.(bus.OrderCancelled)
		if !ok {
			return
		}
		e.strategy.OnOrderCancelled(ctx, cancelled.Order)

	case bus.PositionChangedEvent:
		change, ok := ev.Data.(common.PositionChange)
		if !ok {
			return
		}
		e.strategy.OnPositionChanged(ctx, change)

	case bus.CashChangedEvent:
		change, ok := ev.Data.(common.CashChange)
		if !ok {
			return
		}
		e.strategy.OnCashChanged(ctx, change)

	case bus.CustomEvent:
		custom, ok := ev.Data.(common.Custom)
		if !ok {
			return
		}
		if custom.Name == reevalEventName {
			if id, ok := custom.Data.(common.OrderID); ok {
				e.reevaluate(id, ev.TimeStamp)
			}
			return
		}
		e.strategy.OnCustom(ctx, custom)
	}
}

// OrderRequest is the strategy-facing order shape. Unset time in force
// defaults to good-till-cancel.
type OrderRequest struct {
	Symbol         string
	Side           common.OrderSide
	Type           common.OrderType
	Quantity       fixed.Point
	LimitPrice     fixed.Point
	StopPrice      fixed.Point
	TrailingOffset fixed.Point
	TimeInForce    common.TimeInForce
	ExpireTime     time.Time
}

// PlaceOrder validates and registers an order. The placement ack arrives
// as an order-placed event after the submission latency, only then is the
// order eligible for fills.
func (e *Engine) PlaceOrder(req OrderRequest) (common.OrderID, error) {
	now := e.clock.Now()
	tif := req.TimeInForce
	if tif == 0 {
		tif = common.TimeInForceGoodTillCancel
	}
	order := common.Order{
		ID:             uuid.New(),
		Side:           req.Side,
		Type:           req.Type,
		Quantity:       req.Quantity,
		LimitPrice:     req.LimitPrice,
		StopPrice:      req.StopPrice,
		TrailingOffset: req.TrailingOffset,
		TimeInForce:    tif,
		ExpireTime:     req.ExpireTime,
		Status:         common.OrderStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
		Source:         componentName,
		Symbol:         req.Symbol,
		ExecutionID:    utility.GetExecutionID(),
		TraceID:        utility.CreateTraceID(),
		TimeStamp:      now,
	}
	if _, tracked := e.symbols[req.Symbol]; !tracked {
		return common.OrderID{}, fmt.Errorf("%w: symbol %s not part of this run",
			common.ErrInvalidOrder, req.Symbol)
	}
	if order.Type == common.OrderTypeTrailingStop && order.StopPrice.IsZero() {
		if state := e.symbols[req.Symbol]; state.havePrice {
			order.StopPrice = initialTrailingStop(order.Side, state.lastPrice, order.TrailingOffset)
		}
	}
	if err := order.Validate(); err != nil {
		return common.OrderID{}, err
	}

	e.orders[order.ID] = &order
	e.orderSeq = append(e.orderSeq, order.ID)

	ackAt := now.Add(e.evaluator.Latency(execution.IntentSubmit))
	e.emit(bus.NewOrderPlacedEvent(ackAt, bus.OrderPlaced{Order: order}))
	return order.ID, nil
}

// CancelOrder attempts to cancel. It returns false when the order is
// unknown, already terminal, or an in-flight fill wins the race during
// the cancellation latency window.
func (e *Engine) CancelOrder(id common.OrderID) bool {
	order, ok := e.orders[id]
	if !ok || order.Status.IsTerminal() {
		return false
	}

	if order.Status != common.OrderStatusCreated && e.evaluator.CancelRace() {
		if state, tracked := e.symbols[order.Symbol]; tracked && state.havePrice {
			e.evaluateOrder(order, state, e.clock.Now())
			if order.Status.IsTerminal() {
				return false
			}
		}
	}

	now := e.clock.Now()
	if err := order.Transition(common.OrderStatusCancelled, now); err != nil {
		return false
	}
	if e.recorder != nil {
		e.recorder.RecordOrder(*order)
	}
	observedAt := now.Add(e.evaluator.Latency(execution.IntentCancel))
	e.emit(bus.NewOrderCancelledEvent(observedAt, bus.OrderCancelled{Order: *order}))
	return true
}

func (e *Engine) observePrice(symbol string, price fixed.Point, ts time.Time) {
	state, tracked := e.symbols[symbol]
	if !tracked {
		return
	}
	if !price.IsPos() {
		slog.Warn("dropping non-positive price",
			"component", componentName,
			"symbol", symbol,
			"price", price.String(),
			"at", ts)
		return
	}
	if state.havePrice && state.lastPrice.IsPos() {
		state.returns.Add(price.Sub(state.lastPrice).Div(state.lastPrice))
	}
	state.lastPrice = price
	state.havePrice = true

	if e.cfg.SyntheticDepth && e.bookModel != nil &&
		(state.book == nil || state.bookSynthetic) {
		var snap common.OrderBookSnapshot
		if state.book == nil {
			snap = e.bookModel.Generate(symbol, price, e.volatility(state), ts)
		} else {
			snap = e.bookModel.Update(*state.book, price, 1.0, ts)
		}
		state.book = &snap
		state.bookSynthetic = true
	}
}

func (e *Engine) observeBook(snap common.OrderBookSnapshot, ts time.Time) {
	state, tracked := e.symbols[snap.Symbol]
	if !tracked {
		return
	}
	if mid, err := snap.MidPrice(); err == nil {
		if state.havePrice && state.lastPrice.IsPos() {
			state.returns.Add(mid.Sub(state.lastPrice).Div(state.lastPrice))
		}
		state.lastPrice = mid
		state.havePrice = true
	}
	state.book = &snap
	state.bookSynthetic = false
}

func (e *Engine) volatility(state *symbolState) float64 {
	if state.returns.Size() < 2 {
		return 0
	}
	return state.returns.SampleStdDev().MustFloat64()
}

// evaluateOpenOrders runs each live order on the symbol against the new
// quote, in placement order for determinism.
func (e *Engine) evaluateOpenOrders(symbol string, ts time.Time) {
	state, tracked := e.symbols[symbol]
	if !tracked || !state.havePrice {
		return
	}
	for _, id := range e.orderSeq {
		order := e.orders[id]
		if order.Symbol != symbol || order.Status.IsTerminal() ||
			order.Status == common.OrderStatusCreated {
			continue
		}
		e.evaluateOrder(order, state, ts)
	}
}

func (e *Engine) reevaluate(id common.OrderID, ts time.Time) {
	order, ok := e.orders[id]
	if !ok || order.Status.IsTerminal() {
		return
	}
	state, tracked := e.symbols[order.Symbol]
	if !tracked || !state.havePrice {
		return
	}
	e.evaluateOrder(order, state, ts)
}

func (e *Engine) evaluateOrder(order *common.Order, state *symbolState, ts time.Time) {
	if order.Type == common.OrderTypeTrailingStop {
		order.StopPrice = trailTrailingStop(order.Side, order.StopPrice,
			state.lastPrice, order.TrailingOffset)
	}

	quote := execution.Quote{
		Price:      state.lastPrice,
		Volatility: e.volatility(state),
		Book:       state.book,
		TimeStamp:  ts,
	}
	decision, err := e.evaluator.Evaluate(*order, quote)
	if err != nil {
		slog.Error("order evaluation failed",
			"component", componentName, "order", order.ID, "error", err)
		return
	}
	e.applyDecision(order, decision, ts)
}

func (e *Engine) applyDecision(order *common.Order, d execution.Decision, ts time.Time) {
	switch {
	case d.Expired:
		if err := order.Transition(common.OrderStatusExpired, ts); err == nil {
			order.Reason = d.Reason
			e.recordTerminal(order)
		}
		return

	case d.Rejected:
		if err := order.Transition(common.OrderStatusRejected, ts); err == nil {
			order.Reason = d.Reason
			slog.Debug("order rejected",
				"component", componentName, "order", order.ID, "reason", d.Reason)
			e.recordTerminal(order)
		}
		return

	case d.Fill != nil:
		if err := order.ApplyFill(*d.Fill); err != nil {
			slog.Error("fill application failed",
				"component", componentName, "order", order.ID, "error", err)
			return
		}
		e.emit(bus.NewOrderFilledEvent(d.Fill.TimeStamp, bus.OrderFilled{
			Order: *order,
			Fill:  *d.Fill,
		}))

		if order.Status.IsTerminal() {
			e.recordTerminal(order)
			return
		}
		if order.TimeInForce == common.TimeInForceImmediateOrCancel {
			// whatever did not fill immediately is gone
			if err := order.Transition(common.OrderStatusCancelled, d.Fill.TimeStamp); err == nil {
				e.recordTerminal(order)
				e.emit(bus.NewOrderCancelledEvent(d.Fill.TimeStamp,
					bus.OrderCancelled{Order: *order}))
			}
			return
		}
		if d.FollowUp > 0 {
			e.scheduleEvaluation(order, d.FollowUp)
		}
	}
}

// scheduleEvaluation arranges the next partial-fill slice. Replay puts a
// custom event on the queue, real time arms a timer.
func (e *Engine) scheduleEvaluation(order *common.Order, delay time.Duration) {
	e.emit(bus.NewCustomEvent(common.Custom{
		Name:        reevalEventName,
		Data:        order.ID,
		Source:      componentName,
		Symbol:      order.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   e.clock.Now().Add(delay),
	}))
}

func (e *Engine) recordTerminal(order *common.Order) {
	if e.recorder != nil {
		e.recorder.RecordOrder(*order)
	}
}

func (e *Engine) snapshot(ts time.Time) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordSnapshot(e.ledger.Cash(), e.ledger.Equity(e.marks()), ts)
}

func (e *Engine) marks() map[string]fixed.Point {
	marks := make(map[string]fixed.Point, len(e.symbols))
	for symbol, state := range e.symbols {
		if state.havePrice {
			marks[symbol] = state.lastPrice
		}
	}
	return marks
}

func (e *Engine) appendHistory(bar common.Bar) {
	key := historyKey{symbol: bar.Symbol, period: bar.Period}
	bars := append(e.history[key], bar)
	if limit := e.cfg.LookbackBars; limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	e.history[key] = bars
}

func initialTrailingStop(side common.OrderSide, price, offset fixed.Point) fixed.Point {
	if side == common.OrderSideSell {
		return price.Sub(offset)
	}
	return price.Add(offset)
}

// trailTrailingStop ratchets the stop along favorable price moves and
// never loosens it.
func trailTrailingStop(side common.OrderSide, stop, price, offset fixed.Point) fixed.Point {
	if side == common.OrderSideSell {
		candidate := price.Sub(offset)
		if stop.IsZero() || candidate.Gt(stop) {
			return candidate
		}
		return stop
	}
	candidate := price.Add(offset)
	if stop.IsZero() || candidate.Lt(stop) {
		return candidate
	}
	return stop
}
