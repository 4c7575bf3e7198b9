// Package execution models how a venue would treat an order: how long the
// round trip takes, where the order actually prints, whether it fills in
// slices, and what it costs. All randomness flows through one injected
// rng, so a seeded run replays bit-for-bit.
package execution

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

const componentName = "execution.model"

// Intent distinguishes which venue round trip a latency draw models.
type Intent uint8

const (
	IntentSubmit Intent = iota
	IntentExecute
	IntentCancel
)

// Quote is the market context an order is evaluated against. Book may be
// nil, in which case the statistical slippage path is used.
type Quote struct {
	Price      fixed.Point
	Volatility float64
	Book       *common.OrderBookSnapshot
	TimeStamp  time.Time
}

// Decision is the outcome of evaluating one order against one quote. At
// most one of Rejected, Expired or Fill is set. A zero decision means the
// order keeps resting.
type Decision struct {
	Latency  time.Duration
	Rejected bool
	Expired  bool
	Reason   string
	Fill     *common.Fill
	Complete bool
	// FollowUp asks the caller to re-evaluate after the delay, used for
	// timed partial fill slices.
	FollowUp time.Duration
}

// Evaluator is anything that can decide the fate of an order. The
// simulated model implements it, as does the failover decorator.
type Evaluator interface {
	Evaluate(order common.Order, quote Quote) (Decision, error)
	Latency(intent Intent) time.Duration
	// CancelRace draws whether an in-flight fill beats a cancellation.
	CancelRace() bool
}

// Model is the simulated venue.
type Model struct {
	cfg Config
	rng *rand.Rand
}

// quantities within this of the remainder count as a complete fill
var epsilon = fixed.FromFloat64(1e-9)

func NewModel(cfg Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, ErrInvalidConfig
	}
	return &Model{cfg: cfg, rng: rng}, nil
}

// Latency draws one venue round trip. Submissions run slightly faster
// than executions, cancellations slightly slower. A timeout draw returns
// the configured timeout unclamped.
func (m *Model) Latency(intent Intent) time.Duration {
	c := m.cfg.Latency

	if c.TimeoutProbability > 0 && m.rng.Float64() < c.TimeoutProbability {
		return c.Timeout
	}

	base, ok := c.Profile.baseLatency()
	if !ok {
		span := c.MaxLatency - c.MinLatency
		base = c.MinLatency + time.Duration(m.rng.Float64()*float64(span))
	}
	if c.Jitter > 0 {
		base += time.Duration((m.rng.Float64()*2 - 1) * float64(c.Jitter))
	}

	switch intent {
	case IntentSubmit:
		base = base * 9 / 10
	case IntentCancel:
		base = base * 11 / 10
	}

	if base < c.MinLatency {
		return c.MinLatency
	}
	if base > c.MaxLatency {
		return c.MaxLatency
	}
	return base
}

// CancelRace reports whether a pending fill wins against a cancellation
// arriving in the same latency window.
func (m *Model) CancelRace() bool {
	return m.rng.Float64() < m.cfg.Fill.CancelRaceProbability
}

// Evaluate runs the full decision pipeline for one order against one
// quote: expiry, rejection, trigger and limit checks, price discovery,
// fill sizing and fees. It never mutates the order.
func (m *Model) Evaluate(order common.Order, quote Quote) (Decision, error) {
	d := Decision{Latency: m.Latency(IntentExecute)}

	if order.TimeInForce == common.TimeInForceGoodTillDate &&
		!order.ExpireTime.IsZero() && quote.TimeStamp.After(order.ExpireTime) {
		d.Expired = true
		d.Reason = "good-till-date window elapsed"
		return d, nil
	}

	if err := order.Validate(); err != nil {
		d.Rejected = true
		d.Reason = err.Error()
		return d, nil
	}
	if m.rng.Float64() < m.cfg.Fill.RejectionProbability {
		d.Rejected = true
		d.Reason = "rejected by venue"
		return d, nil
	}

	remaining := order.Remaining()
	if !remaining.IsPos() || !m.executable(order, quote.Price) {
		return d, nil
	}

	target := remaining
	if order.TimeInForce != common.TimeInForceFillOrKill && m.allowPartial(order) {
		frac := m.cfg.Fill.MinPartialFillPct +
			m.rng.Float64()*(1-m.cfg.Fill.MinPartialFillPct)
		target = remaining.Mul(fixed.FromFloat64(frac))
		if remaining.Sub(target).Lte(epsilon) {
			target = remaining
		}
	}

	price, filled, walked := m.bookPrice(order, target, quote)
	if !walked {
		price = m.slippagePrice(order, target, quote)
		filled = target
	}
	if !filled.IsPos() {
		// priced order with nothing executable at its limit yet
		return d, nil
	}
	if remaining.Sub(filled).Lte(epsilon) {
		filled = remaining
	}

	if order.TimeInForce == common.TimeInForceFillOrKill && filled.Lt(remaining) {
		d.Rejected = true
		d.Reason = "fill-or-kill not fully executable"
		return d, nil
	}

	fill := common.Fill{
		OrderID:     order.ID,
		FillID:      uuid.New(),
		Side:        order.Side,
		Price:       price,
		Quantity:    filled,
		Fee:         m.fee(order, price, filled),
		Source:      componentName,
		Symbol:      order.Symbol,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   quote.TimeStamp.Add(d.Latency),
	}
	d.Fill = &fill
	d.Complete = filled.Eq(remaining)

	if !d.Complete && m.cfg.Fill.EnableTimedFills &&
		order.TimeInForce != common.TimeInForceImmediateOrCancel {
		d.FollowUp = d.Latency + time.Duration(m.rng.Float64()*float64(250*time.Millisecond))
	}
	return d, nil
}

func (m *Model) allowPartial(order common.Order) bool {
	return m.cfg.Fill.EnableTimedFills &&
		len(order.Fills) < m.cfg.Fill.MaxPartialFills-1 &&
		m.rng.Float64() < m.cfg.Fill.PartialFillProbability
}

// executable applies limit and stop trigger semantics against the quote.
func (m *Model) executable(order common.Order, price fixed.Point) bool {
	switch order.Type {
	case common.OrderTypeMarket:
		return true
	case common.OrderTypeLimit:
		return m.limitCrossed(order.Side, order.LimitPrice, price)
	case common.OrderTypeStop, common.OrderTypeTrailingStop:
		return m.stopTriggered(order.Side, order.StopPrice, price)
	case common.OrderTypeStopLimit:
		return m.stopTriggered(order.Side, order.StopPrice, price) &&
			m.limitCrossed(order.Side, order.LimitPrice, price)
	}
	return false
}

func (m *Model) limitCrossed(side common.OrderSide, limit, price fixed.Point) bool {
	if side == common.OrderSideBuy {
		return price.Lte(limit)
	}
	return price.Gte(limit)
}

func (m *Model) stopTriggered(side common.OrderSide, stop, price fixed.Point) bool {
	if side == common.OrderSideBuy {
		return price.Gte(stop)
	}
	return price.Lte(stop)
}

// bookPrice walks the opposite side of the book and returns the
// volume-weighted price for the filled quantity. For priced orders the
// walk stops at the limit, possibly capping the fill. Market orders that
// exhaust the ladder print the tail at the last level price with a 10%
// adverse penalty.
func (m *Model) bookPrice(order common.Order, target fixed.Point, quote Quote) (price, filled fixed.Point, ok bool) {
	if quote.Book == nil {
		return fixed.Zero, fixed.Zero, false
	}
	levels := quote.Book.Asks
	if order.Side == common.OrderSideSell {
		levels = quote.Book.Bids
	}
	if len(levels) < m.cfg.Book.MinDepth || len(levels) == 0 {
		return fixed.Zero, fixed.Zero, false
	}

	limited := order.IsPriced()
	remaining := target
	notional := fixed.Zero
	taken := fixed.Zero
	last := levels[0].Price

	for _, l := range levels {
		if limited && !m.limitCrossed(order.Side, order.LimitPrice, l.Price) {
			break
		}
		take := fixed.Min(remaining, l.Volume)
		notional = notional.Add(take.Mul(l.Price))
		taken = taken.Add(take)
		remaining = remaining.Sub(take)
		last = l.Price
		if !remaining.IsPos() {
			break
		}
	}

	if remaining.IsPos() && !limited {
		// ladder exhausted, the tail prints 10% worse than the last level
		penalty := last.Mul(adversePenalty)
		tail := last.Add(penalty)
		if order.Side == common.OrderSideSell {
			tail = last.Sub(penalty)
		}
		notional = notional.Add(remaining.Mul(tail))
		taken = taken.Add(remaining)
	}
	if !taken.IsPos() {
		return fixed.Zero, fixed.Zero, true
	}
	return notional.Div(taken), taken, true
}

var adversePenalty = fixed.FromFloat64(0.1)

// slippagePrice applies the statistical model: a base cost plus
// volatility and size terms, capped, with a rare extreme excursion on
// top of the cap.
func (m *Model) slippagePrice(order common.Order, target fixed.Point, quote Quote) fixed.Point {
	pct := m.cfg.Slippage.BasePct.
		Add(fixed.FromFloat64(quote.Volatility).Mul(m.cfg.Slippage.VolatilityFactor)).
		Add(target.Div(m.cfg.Slippage.TypicalOrderSize).Mul(m.cfg.Slippage.SizeFactor))
	pct = fixed.Min(pct, m.cfg.Slippage.MaxPct)

	if m.cfg.Slippage.ExtremeProbability > 0 &&
		m.rng.Float64() < m.cfg.Slippage.ExtremeProbability {
		pct = pct.Mul(m.cfg.Slippage.ExtremeMultiplier)
	}

	slip := quote.Price.Mul(pct)
	if order.Side == common.OrderSideBuy {
		return quote.Price.Add(slip)
	}
	return quote.Price.Sub(slip)
}

// fee charges the maker rate to resting priced orders and the taker rate
// to everything else.
func (m *Model) fee(order common.Order, price, quantity fixed.Point) common.Fee {
	maker := order.IsPriced()
	rate := m.cfg.Fee.TakerPct
	if maker {
		rate = m.cfg.Fee.MakerPct
	}

	base, quoteAsset := splitSymbol(order.Symbol)
	switch m.cfg.Fee.Asset {
	case FeeAssetBase:
		return common.Fee{Asset: base, Amount: quantity.Mul(rate), Rate: rate, Maker: maker}
	case FeeAssetSettlement:
		return common.Fee{
			Asset: m.cfg.Fee.SettlementAsset, Amount: quantity.Mul(price).Mul(rate),
			Rate: rate, Maker: maker,
		}
	default:
		return common.Fee{Asset: quoteAsset, Amount: quantity.Mul(price).Mul(rate), Rate: rate, Maker: maker}
	}
}

// splitSymbol derives the base and quote legs from common symbol shapes:
// "BTC/USDT", "BTC-USDT" or the compact "EURUSD".
func splitSymbol(symbol string) (base, quote string) {
	for _, sep := range []string{"/", "-"} {
		if i := strings.Index(symbol, sep); i > 0 {
			return symbol[:i], symbol[i+len(sep):]
		}
	}
	if len(symbol) >= 6 {
		return symbol[:len(symbol)-3], symbol[len(symbol)-3:]
	}
	return symbol, symbol
}
