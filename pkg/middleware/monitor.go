package middleware

import (
	"context"
	"log/slog"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/engine"
)

type MonitorFlags uint16

const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorTicks
	MonitorBars
	MonitorOrderBooks
	MonitorOrdersPlaced
	MonitorOrdersFilled
	MonitorOrdersCancelled
	MonitorPositions
	MonitorCash
	MonitorCustom
)

// Monitor logs selected event categories before forwarding them to the
// wrapped strategy.
type Monitor struct {
	next  engine.Strategy
	flags MonitorFlags
}

func NewMonitor(next engine.Strategy, flags MonitorFlags) *Monitor {
	return &Monitor{
		next:  next,
		flags: flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) Initialize(ctx context.Context, e *engine.Engine) error {
	return m.next.Initialize(ctx, e)
}

func (m *Monitor) OnStart(ctx context.Context) { m.next.OnStart(ctx) }
func (m *Monitor) OnEnd(ctx context.Context)   { m.next.OnEnd(ctx) }

func (m *Monitor) OnTick(ctx context.Context, tick common.Tick) {
	if m.enabled(MonitorTicks) {
		slog.Info("event", "tick", tick)
	}
	m.next.OnTick(ctx, tick)
}

func (m *Monitor) OnBar(ctx context.Context, bar common.Bar) {
	if m.enabled(MonitorBars) {
		slog.Info("event", "bar", bar)
	}
	m.next.OnBar(ctx, bar)
}

func (m *Monitor) OnOrderBook(ctx context.Context, snapshot common.OrderBookSnapshot) {
	if m.enabled(MonitorOrderBooks) {
		slog.Info("event", "order_book", snapshot)
	}
	m.next.OnOrderBook(ctx, snapshot)
}

func (m *Monitor) OnOrderPlaced(ctx context.Context, order common.Order) {
	if m.enabled(MonitorOrdersPlaced) {
		slog.Info("event", "order_placed", order)
	}
	m.next.OnOrderPlaced(ctx, order)
}

func (m *Monitor) OnOrderFilled(ctx context.Context, order common.Order, fill common.Fill) {
	if m.enabled(MonitorOrdersFilled) {
		slog.Info("event", "order_filled", order, "fill", fill)
	}
	m.next.OnOrderFilled(ctx, order, fill)
}

func (m *Monitor) OnOrderCancelled(ctx context.Context, order common.Order) {
	if m.enabled(MonitorOrdersCancelled) {
		slog.Info("event", "order_cancelled", order)
	}
	m.next.OnOrderCancelled(ctx, order)
}

func (m *Monitor) OnPositionChanged(ctx context.Context, change common.PositionChange) {
	if m.enabled(MonitorPositions) {
		slog.Info("event", "position_change", change)
	}
	m.next.OnPositionChanged(ctx, change)
}

func (m *Monitor) OnCashChanged(ctx context.Context, change common.CashChange) {
	if m.enabled(MonitorCash) {
		slog.Info("event", "cash_change", change)
	}
	m.next.OnCashChanged(ctx, change)
}

func (m *Monitor) OnCustom(ctx context.Context, event common.Custom) {
	if m.enabled(MonitorCustom) {
		slog.Info("event", "custom", event)
	}
	m.next.OnCustom(ctx, event)
}
