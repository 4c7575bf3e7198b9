package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

var (
	ErrInvalidBook  = errors.New("invalid order book")
	ErrBookTooThin  = errors.New("order book too thin")
	ErrBookNoLevels = errors.New("order book side has no levels")
)

// PriceLevel is one rung of an order book ladder.
type PriceLevel struct {
	Price  fixed.Point `json:"price"`
	Volume fixed.Point `json:"volume"`
	Orders int         `json:"orders"`
}

// OrderBookSnapshot is a point-in-time depth view. Bids are sorted
// descending, asks ascending, level zero on each side is the touch.
type OrderBookSnapshot struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`

	Source      string              `json:"src"`
	Symbol      string              `json:"symbol"`
	ExecutionID utility.ExecutionID `json:"eid"`
	TraceID     utility.TraceID     `json:"tid"`
	TimeStamp   time.Time           `json:"ts"`
}

func (s OrderBookSnapshot) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidBook)
	}
	for i := 1; i < len(s.Bids); i++ {
		if s.Bids[i].Price.Gte(s.Bids[i-1].Price) {
			return fmt.Errorf("%w: bids not strictly descending at level %d", ErrInvalidBook, i)
		}
	}
	for i := 1; i < len(s.Asks); i++ {
		if s.Asks[i].Price.Lte(s.Asks[i-1].Price) {
			return fmt.Errorf("%w: asks not strictly ascending at level %d", ErrInvalidBook, i)
		}
	}
	if len(s.Bids) > 0 && len(s.Asks) > 0 && s.Bids[0].Price.Gte(s.Asks[0].Price) {
		return fmt.Errorf("%w: crossed book, bid %s >= ask %s", ErrInvalidBook, s.Bids[0].Price, s.Asks[0].Price)
	}
	for _, l := range append(append([]PriceLevel{}, s.Bids...), s.Asks...) {
		if l.Price.IsNeg() || l.Volume.IsNeg() || l.Orders < 0 {
			return fmt.Errorf("%w: negative level field at price %s", ErrInvalidBook, l.Price)
		}
	}
	return nil
}

func (s OrderBookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

func (s OrderBookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// MidPrice returns the midpoint of the touch, or an error when either
// side is empty.
func (s OrderBookSnapshot) MidPrice() (fixed.Point, error) {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	if !okB || !okA {
		return fixed.Zero, ErrBookNoLevels
	}
	return bid.Price.Add(ask.Price).Div(fixed.Two), nil
}

func (s OrderBookSnapshot) Spread() (fixed.Point, error) {
	bid, okB := s.BestBid()
	ask, okA := s.BestAsk()
	if !okB || !okA {
		return fixed.Zero, ErrBookNoLevels
	}
	return ask.Price.Sub(bid.Price), nil
}

// Imbalance returns (bidVolume-askVolume)/(bidVolume+askVolume) over the
// top depth levels of each side. Range is [-1, 1], positive means bid
// pressure.
func (s OrderBookSnapshot) Imbalance(depth int) fixed.Point {
	bidVol, askVol := fixed.Zero, fixed.Zero
	for i, l := range s.Bids {
		if i >= depth {
			break
		}
		bidVol = bidVol.Add(l.Volume)
	}
	for i, l := range s.Asks {
		if i >= depth {
			break
		}
		askVol = askVol.Add(l.Volume)
	}
	total := bidVol.Add(askVol)
	if total.IsZero() {
		return fixed.Zero
	}
	return bidVol.Sub(askVol).Div(total)
}

// VWAPForSize walks one side of the book and returns the volume-weighted
// price for consuming size. Buys walk asks, sells walk bids. The book
// being too thin for the full size is an error.
func (s OrderBookSnapshot) VWAPForSize(size fixed.Point, side OrderSide) (fixed.Point, error) {
	if !size.IsPos() {
		return fixed.Zero, fmt.Errorf("%w: non-positive size %s", ErrInvalidBook, size)
	}
	levels := s.Asks
	if side == OrderSideSell {
		levels = s.Bids
	}

	remaining := size
	notional := fixed.Zero
	for _, l := range levels {
		take := fixed.Min(remaining, l.Volume)
		notional = notional.Add(take.Mul(l.Price))
		remaining = remaining.Sub(take)
		if !remaining.IsPos() {
			return notional.Div(size), nil
		}
	}
	return fixed.Zero, fmt.Errorf("%w: %s left unfilled of %s", ErrBookTooThin, remaining, size)
}
