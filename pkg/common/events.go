package common

import (
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

// PositionChange describes the state of one position after a fill has been
// booked against it.
type PositionChange struct {
	Quantity    fixed.Point `json:"quantity"`
	AvgPrice    fixed.Point `json:"avg_price"`
	RealizedPnL fixed.Point `json:"realized_pnl"`
	Delta       fixed.Point `json:"delta"`

	Source      string              `json:"src"`
	Symbol      string              `json:"symbol"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}

// CashChange describes the cash balance after a debit or credit.
type CashChange struct {
	Balance fixed.Point `json:"balance"`
	Delta   fixed.Point `json:"delta"`
	Reason  string      `json:"reason,omitempty"`

	Source      string              `json:"src"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}

// Custom is a user-defined event payload, scheduled by strategies or by
// internal follow-up work.
type Custom struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`

	Source      string              `json:"src"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}
