package common

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

// Fee is the cost attached to a single fill, denominated in Asset.
type Fee struct {
	Asset  string      `json:"asset"`
	Amount fixed.Point `json:"amount"`
	Rate   fixed.Point `json:"rate"`
	Maker  bool        `json:"maker"`
}

// Fill is one execution slice of an order. A fully filled order carries
// one or more of these, partial fills accumulate.
type Fill struct {
	OrderID  OrderID     `json:"order_id"`
	FillID   uuid.UUID   `json:"fill_id"`
	Side     OrderSide   `json:"side"`
	Price    fixed.Point `json:"price"`
	Quantity fixed.Point `json:"quantity"`
	Fee      Fee         `json:"fee"`

	Source      string              `json:"src"`
	Symbol      string              `json:"symbol"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}

// Notional returns price times quantity, gross of fees.
func (f Fill) Notional() fixed.Point {
	return f.Price.Mul(f.Quantity)
}
