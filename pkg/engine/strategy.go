package engine

import (
	"context"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

// Strategy receives the event stream in deterministic order. Callbacks
// run on the engine loop, blocking in them stalls the simulation.
type Strategy interface {
	// Initialize runs before any event, with the engine fully wired.
	Initialize(ctx context.Context, e *Engine) error
	OnStart(ctx context.Context)
	OnEnd(ctx context.Context)

	OnTick(ctx context.Context, tick common.Tick)
	OnBar(ctx context.Context, bar common.Bar)
	OnOrderBook(ctx context.Context, snapshot common.OrderBookSnapshot)

	OnOrderPlaced(ctx context.Context, order common.Order)
	OnOrderFilled(ctx context.Context, order common.Order, fill common.Fill)
	OnOrderCancelled(ctx context.Context, order common.Order)

	OnPositionChanged(ctx context.Context, change common.PositionChange)
	OnCashChanged(ctx context.Context, change common.CashChange)
	OnCustom(ctx context.Context, event common.Custom)
}

// NopStrategy is an embeddable base so strategies only implement the
// callbacks they care about.
type NopStrategy struct{}

func (NopStrategy) Initialize(context.Context, *Engine) error             { return nil }
func (NopStrategy) OnStart(context.Context)                               {}
func (NopStrategy) OnEnd(context.Context)                                 {}
func (NopStrategy) OnTick(context.Context, common.Tick)                   {}
func (NopStrategy) OnBar(context.Context, common.Bar)                     {}
func (NopStrategy) OnOrderBook(context.Context, common.OrderBookSnapshot) {}
func (NopStrategy) OnOrderPlaced(context.Context, common.Order)           {}
func (NopStrategy) OnOrderFilled(context.Context, common.Order, common.Fill) {
}
func (NopStrategy) OnOrderCancelled(context.Context, common.Order)          {}
func (NopStrategy) OnPositionChanged(context.Context, common.PositionChange) {}
func (NopStrategy) OnCashChanged(context.Context, common.CashChange)        {}
func (NopStrategy) OnCustom(context.Context, common.Custom)                 {}

// Recorder observes the run for audit purposes. A nil recorder disables
// auditing entirely.
type Recorder interface {
	RecordSnapshot(balance, equity fixed.Point, at time.Time)
	RecordFill(fill common.Fill)
	RecordOrder(order common.Order)
}
