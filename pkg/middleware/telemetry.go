package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/engine"
)

// Telemetry counts delivered events so a run can be sanity checked
// against the seeded data afterwards.
type Telemetry struct {
	next   engine.Strategy
	logger *zap.Logger

	tickEventCounter           int64
	barEventCounter            int64
	orderBookEventCounter      int64
	orderPlacedEventCounter    int64
	orderFilledEventCounter    int64
	orderCancelledEventCounter int64
	positionEventCounter       int64
	cashEventCounter           int64
	customEventCounter         int64
}

func NewTelemetry(next engine.Strategy, logger *zap.Logger) *Telemetry {
	return &Telemetry{
		next:   next,
		logger: logger,
	}
}

func (t *Telemetry) Initialize(ctx context.Context, e *engine.Engine) error {
	return t.next.Initialize(ctx, e)
}

func (t *Telemetry) OnStart(ctx context.Context) { t.next.OnStart(ctx) }
func (t *Telemetry) OnEnd(ctx context.Context)   { t.next.OnEnd(ctx) }

func (t *Telemetry) OnTick(ctx context.Context, tick common.Tick) {
	t.tickEventCounter++
	t.next.OnTick(ctx, tick)
}

func (t *Telemetry) OnBar(ctx context.Context, bar common.Bar) {
	t.barEventCounter++
	t.next.OnBar(ctx, bar)
}

func (t *Telemetry) OnOrderBook(ctx context.Context, snapshot common.OrderBookSnapshot) {
	t.orderBookEventCounter++
	t.next.OnOrderBook(ctx, snapshot)
}

func (t *Telemetry) OnOrderPlaced(ctx context.Context, order common.Order) {
	t.orderPlacedEventCounter++
	t.next.OnOrderPlaced(ctx, order)
}

func (t *Telemetry) OnOrderFilled(ctx context.Context, order common.Order, fill common.Fill) {
	t.orderFilledEventCounter++
	t.next.OnOrderFilled(ctx, order, fill)
}

func (t *Telemetry) OnOrderCancelled(ctx context.Context, order common.Order) {
	t.orderCancelledEventCounter++
	t.next.OnOrderCancelled(ctx, order)
}

func (t *Telemetry) OnPositionChanged(ctx context.Context, change common.PositionChange) {
	t.positionEventCounter++
	t.next.OnPositionChanged(ctx, change)
}

func (t *Telemetry) OnCashChanged(ctx context.Context, change common.CashChange) {
	t.cashEventCounter++
	t.next.OnCashChanged(ctx, change)
}

func (t *Telemetry) OnCustom(ctx context.Context, event common.Custom) {
	t.customEventCounter++
	t.next.OnCustom(ctx, event)
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("tick_events", t.tickEventCounter),
		zap.Int64("bar_events", t.barEventCounter),
		zap.Int64("order_book_events", t.orderBookEventCounter),
		zap.Int64("order_placed_events", t.orderPlacedEventCounter),
		zap.Int64("order_filled_events", t.orderFilledEventCounter),
		zap.Int64("order_cancelled_events", t.orderCancelledEventCounter),
		zap.Int64("position_events", t.positionEventCounter),
		zap.Int64("cash_events", t.cashEventCounter),
		zap.Int64("custom_events", t.customEventCounter))
}
