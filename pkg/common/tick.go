package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

var ErrInvalidTick = errors.New("invalid tick")

type TickSide uint8

const (
	TickSideUnknown TickSide = iota
	TickSideBuy
	TickSideSell
)

func (s TickSide) String() string {
	switch s {
	case TickSideBuy:
		return "buy"
	case TickSideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Tick is a single trade print. Side and venue are best-effort fields,
// some feeds never populate them.
type Tick struct {
	Price   fixed.Point `json:"price"`
	Volume  fixed.Point `json:"volume"`
	Side    TickSide    `json:"side"`
	Venue   string      `json:"venue,omitempty"`
	TradeID string      `json:"trade_id,omitempty"`

	Source      string              `json:"src"`
	Symbol      string              `json:"symbol"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}

func (t Tick) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidTick)
	}
	if t.Price.IsNeg() {
		return fmt.Errorf("%w: negative price %s", ErrInvalidTick, t.Price)
	}
	if t.Volume.IsNeg() {
		return fmt.Errorf("%w: negative volume %s", ErrInvalidTick, t.Volume)
	}
	return nil
}
