package bus

import (
	"context"

	"github.com/tomas-vanek/fulcrum/pkg/common"
)

type EventHandler[T any] func(context.Context, T)

type (
	TickEventHandler            = EventHandler[common.Tick]
	OrderBookEventHandler       = EventHandler[common.OrderBookSnapshot]
	BarEventHandler             = EventHandler[common.Bar]
	OrderFilledEventHandler     = EventHandler[OrderFilled]
	OrderPlacedEventHandler     = EventHandler[OrderPlaced]
	OrderCancelledEventHandler  = EventHandler[OrderCancelled]
	PositionChangedEventHandler = EventHandler[common.PositionChange]
	CashChangedEventHandler     = EventHandler[common.CashChange]
	CustomEventHandler          = EventHandler[common.Custom]
)

// MergeHandlers chains handlers into one, invoked in order.
func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, v T) {
		for _, h := range handlers {
			if h != nil {
				h(ctx, v)
			}
		}
	}
}
