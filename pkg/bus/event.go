package bus

import (
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
)

type EventID uint8

// Event identifiers double as tie-break priorities. When two events share
// a timestamp the lower id is delivered first, so market data always
// precedes the order flow it triggered.
const (
	TickEvent EventID = iota + 1
	OrderBookEvent
	BarEvent
	OrderFilledEvent
	OrderPlacedEvent
	OrderCancelledEvent
	PositionChangedEvent
	CashChangedEvent
	CustomEvent
)

func (id EventID) String() string {
	switch id {
	case TickEvent:
		return "tick"
	case OrderBookEvent:
		return "order-book"
	case BarEvent:
		return "bar"
	case OrderFilledEvent:
		return "order-filled"
	case OrderPlacedEvent:
		return "order-placed"
	case OrderCancelledEvent:
		return "order-cancelled"
	case PositionChangedEvent:
		return "position-changed"
	case CashChangedEvent:
		return "cash-changed"
	case CustomEvent:
		return "custom"
	default:
		return "unknown"
	}
}

// OrderFilled pairs a fill with the order state after the fill was
// applied.
type OrderFilled struct {
	Order common.Order
	Fill  common.Fill
}

// OrderPlaced carries the order as acknowledged by the venue model.
type OrderPlaced struct {
	Order common.Order
}

// OrderCancelled carries the final order state after cancellation.
type OrderCancelled struct {
	Order common.Order
}

// Event is a timestamped envelope routed through the queue. Data holds
// one of the payload types matching ID, dispatchers type-assert on it.
type Event struct {
	ID        EventID
	TimeStamp time.Time
	Data      any

	seq uint64
}

func NewTickEvent(t common.Tick) Event {
	return Event{ID: TickEvent, TimeStamp: t.TimeStamp, Data: t}
}

func NewOrderBookEvent(s common.OrderBookSnapshot) Event {
	return Event{ID: OrderBookEvent, TimeStamp: s.TimeStamp, Data: s}
}

func NewBarEvent(b common.Bar) Event {
	return Event{ID: BarEvent, TimeStamp: b.TimeStamp, Data: b}
}

func NewOrderFilledEvent(at time.Time, p OrderFilled) Event {
	return Event{ID: OrderFilledEvent, TimeStamp: at, Data: p}
}

func NewOrderPlacedEvent(at time.Time, p OrderPlaced) Event {
	return Event{ID: OrderPlacedEvent, TimeStamp: at, Data: p}
}

func NewOrderCancelledEvent(at time.Time, p OrderCancelled) Event {
	return Event{ID: OrderCancelledEvent, TimeStamp: at, Data: p}
}

func NewPositionChangedEvent(p common.PositionChange) Event {
	return Event{ID: PositionChangedEvent, TimeStamp: p.TimeStamp, Data: p}
}

func NewCashChangedEvent(c common.CashChange) Event {
	return Event{ID: CashChangedEvent, TimeStamp: c.TimeStamp, Data: c}
}

func NewCustomEvent(c common.Custom) Event {
	return Event{ID: CustomEvent, TimeStamp: c.TimeStamp, Data: c}
}
