package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

var (
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidTransition  = errors.New("invalid order state transition")
	ErrOverFill           = errors.New("fill exceeds remaining quantity")
	ErrNonPositiveFill    = errors.New("fill quantity must be positive")
	ErrOrderAlreadyClosed = errors.New("order already in terminal state")
)

type OrderID = uuid.UUID

type OrderSide uint8

const (
	OrderSideBuy OrderSide = iota + 1
	OrderSideSell
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "buy"
	case OrderSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

type OrderType uint8

const (
	OrderTypeMarket OrderType = iota + 1
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
	OrderTypeTrailingStop
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeStop:
		return "stop"
	case OrderTypeStopLimit:
		return "stop-limit"
	case OrderTypeTrailingStop:
		return "trailing-stop"
	default:
		return "unknown"
	}
}

type TimeInForce uint8

const (
	TimeInForceGoodTillCancel TimeInForce = iota + 1
	TimeInForceImmediateOrCancel
	TimeInForceFillOrKill
	TimeInForceGoodTillDate
)

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceGoodTillCancel:
		return "gtc"
	case TimeInForceImmediateOrCancel:
		return "ioc"
	case TimeInForceFillOrKill:
		return "fok"
	case TimeInForceGoodTillDate:
		return "gtd"
	default:
		return "unknown"
	}
}

type OrderStatus uint8

const (
	OrderStatusCreated OrderStatus = iota + 1
	OrderStatusPending
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
	OrderStatusExpired
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusCreated:
		return "created"
	case OrderStatusPending:
		return "pending"
	case OrderStatusPartiallyFilled:
		return "partially-filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusRejected:
		return "rejected"
	case OrderStatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows moving to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return next == OrderStatusPending || next == OrderStatusRejected || next == OrderStatusCancelled
	case OrderStatusPending:
		switch next {
		case OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled,
			OrderStatusRejected, OrderStatusExpired:
			return true
		}
	case OrderStatusPartiallyFilled:
		switch next {
		case OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired:
			return true
		}
	}
	return false
}

// Order is a client order tracked through its full lifecycle. Mutation
// goes through Transition and ApplyFill so the lifecycle invariants hold.
type Order struct {
	ID             OrderID     `json:"id"`
	Side           OrderSide   `json:"side"`
	Type           OrderType   `json:"type"`
	Quantity       fixed.Point `json:"quantity"`
	LimitPrice     fixed.Point `json:"limit_price,omitempty"`
	StopPrice      fixed.Point `json:"stop_price,omitempty"`
	TrailingOffset fixed.Point `json:"trailing_offset,omitempty"`
	TimeInForce    TimeInForce `json:"tif"`
	ExpireTime     time.Time   `json:"expire_time,omitzero"`

	Status       OrderStatus `json:"status"`
	FilledQty    fixed.Point `json:"filled_qty"`
	AvgFillPrice fixed.Point `json:"avg_fill_price"`
	FeesPaid     fixed.Point `json:"fees_paid"`
	Fills        []Fill      `json:"fills,omitempty"`
	Reason       string      `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Source      string              `json:"src"`
	Symbol      string              `json:"symbol"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}

func (o Order) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if !o.Quantity.IsPos() {
		return fmt.Errorf("%w: non-positive quantity %s", ErrInvalidOrder, o.Quantity)
	}
	if o.Side != OrderSideBuy && o.Side != OrderSideSell {
		return fmt.Errorf("%w: unknown side", ErrInvalidOrder)
	}
	switch o.Type {
	case OrderTypeLimit, OrderTypeStopLimit:
		if !o.LimitPrice.IsPos() {
			return fmt.Errorf("%w: %s order without positive limit price", ErrInvalidOrder, o.Type)
		}
	case OrderTypeStop:
		if !o.StopPrice.IsPos() {
			return fmt.Errorf("%w: stop order without positive stop price", ErrInvalidOrder)
		}
	case OrderTypeTrailingStop:
		if !o.TrailingOffset.IsPos() {
			return fmt.Errorf("%w: trailing-stop order without positive offset", ErrInvalidOrder)
		}
	}
	if o.Type == OrderTypeStopLimit && !o.StopPrice.IsPos() {
		return fmt.Errorf("%w: stop-limit order without positive stop price", ErrInvalidOrder)
	}
	if o.TimeInForce == TimeInForceGoodTillDate && o.ExpireTime.IsZero() {
		return fmt.Errorf("%w: gtd order without expire time", ErrInvalidOrder)
	}
	return nil
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() fixed.Point {
	return o.Quantity.Sub(o.FilledQty)
}

// IsPriced reports whether the order rests at a maker price.
func (o Order) IsPriced() bool {
	return (o.Type == OrderTypeLimit || o.Type == OrderTypeStopLimit) && o.LimitPrice.IsPos()
}

// Transition moves the order to next, enforcing the lifecycle. Terminal
// states are final.
func (o *Order) Transition(next OrderStatus, at time.Time) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrOrderAlreadyClosed, o.Status)
	}
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// ApplyFill folds a fill into the order, keeping filled quantity monotone
// and the average price volume-weighted. Status moves to partially-filled
// or filled depending on the remainder.
func (o *Order) ApplyFill(fill Fill) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrOrderAlreadyClosed, o.Status)
	}
	if !fill.Quantity.IsPos() {
		return fmt.Errorf("%w: %s", ErrNonPositiveFill, fill.Quantity)
	}
	if fill.Quantity.Gt(o.Remaining()) {
		return fmt.Errorf("%w: fill %s, remaining %s", ErrOverFill, fill.Quantity, o.Remaining())
	}

	prevNotional := o.AvgFillPrice.Mul(o.FilledQty)
	o.FilledQty = o.FilledQty.Add(fill.Quantity)
	o.AvgFillPrice = prevNotional.Add(fill.Notional()).Div(o.FilledQty)
	o.FeesPaid = o.FeesPaid.Add(fill.Fee.Amount)
	o.Fills = append(o.Fills, fill)

	next := OrderStatusPartiallyFilled
	if o.Remaining().IsZero() {
		next = OrderStatusFilled
	}
	return o.Transition(next, fill.TimeStamp)
}
