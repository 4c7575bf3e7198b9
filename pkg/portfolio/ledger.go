// Package portfolio books fills into cash and position state. It is the
// single writer for both, the engine applies fills in event order.
package portfolio

import (
	"errors"
	"fmt"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const componentName = "portfolio.ledger"

var ErrInvalidCapital = errors.New("initial capital must be positive")

// Position is the net exposure in one symbol. Quantity is signed,
// negative for short.
type Position struct {
	Symbol      string
	Quantity    fixed.Point
	AvgPrice    fixed.Point
	RealizedPnL fixed.Point
}

// Ledger tracks cash and positions across fills.
type Ledger struct {
	cash      fixed.Point
	feesPaid  fixed.Point
	positions map[string]Position
}

func NewLedger(initialCapital fixed.Point) (*Ledger, error) {
	if !initialCapital.IsPos() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCapital, initialCapital)
	}
	return &Ledger{
		cash:      initialCapital,
		positions: make(map[string]Position),
	}, nil
}

func (l *Ledger) Cash() fixed.Point     { return l.cash }
func (l *Ledger) FeesPaid() fixed.Point { return l.feesPaid }

func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.positions[symbol]
	return p, ok
}

func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	return out
}

// Equity marks open positions against the supplied prices and adds cash.
// Symbols without a mark are carried at their average entry price.
func (l *Ledger) Equity(marks map[string]fixed.Point) fixed.Point {
	equity := l.cash
	for symbol, p := range l.positions {
		mark, ok := marks[symbol]
		if !ok {
			mark = p.AvgPrice
		}
		equity = equity.Add(p.Quantity.Mul(mark))
	}
	return equity
}

// Apply books one fill and returns the resulting position and cash
// deltas. Buys debit cash, sells credit it, fees always debit. Crossing
// through flat realizes pnl against the average entry price.
func (l *Ledger) Apply(fill common.Fill) (common.PositionChange, common.CashChange) {
	pos := l.positions[fill.Symbol]
	pos.Symbol = fill.Symbol

	signedQty := fill.Quantity
	cashDelta := fill.Notional().Neg()
	if fill.Side == common.OrderSideSell {
		signedQty = signedQty.Neg()
		cashDelta = fill.Notional()
	}
	cashDelta = cashDelta.Sub(fill.Fee.Amount)

	sameDirection := pos.Quantity.IsZero() ||
		pos.Quantity.IsPos() == signedQty.IsPos()

	if sameDirection {
		newQty := pos.Quantity.Add(signedQty)
		notional := pos.AvgPrice.Mul(pos.Quantity.Abs()).
			Add(fill.Price.Mul(signedQty.Abs()))
		pos.AvgPrice = notional.Div(newQty.Abs())
		pos.Quantity = newQty
	} else {
		closed := fixed.Min(pos.Quantity.Abs(), signedQty.Abs())
		pnl := fill.Price.Sub(pos.AvgPrice).Mul(closed)
		if pos.Quantity.IsNeg() {
			pnl = pnl.Neg()
		}
		pos.RealizedPnL = pos.RealizedPnL.Add(pnl)
		pos.Quantity = pos.Quantity.Add(signedQty)
		if pos.Quantity.IsZero() {
			pos.AvgPrice = fixed.Zero
		} else if pos.Quantity.IsPos() == signedQty.IsPos() {
			// crossed through flat, the remainder opens at the fill price
			pos.AvgPrice = fill.Price
		}
	}

	l.positions[fill.Symbol] = pos
	l.cash = l.cash.Add(cashDelta)
	l.feesPaid = l.feesPaid.Add(fill.Fee.Amount)

	posChange := common.PositionChange{
		Quantity:    pos.Quantity,
		AvgPrice:    pos.AvgPrice,
		RealizedPnL: pos.RealizedPnL,
		Delta:       signedQty,
		Source:      componentName,
		Symbol:      fill.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   fill.TimeStamp,
	}
	cashChange := common.CashChange{
		Balance:     l.cash,
		Delta:       cashDelta,
		Reason:      "fill " + fill.FillID.String(),
		Source:      componentName,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   fill.TimeStamp,
	}
	return posChange, cashChange
}
