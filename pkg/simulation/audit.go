package simulation

import (
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

type accountSnapshot struct {
	balance fixed.Point
	equity  fixed.Point
	t       time.Time
}

// Audit collects account snapshots, fills and closed orders during a run
// and turns them into a Report afterwards.
type Audit struct {
	minSnapshotInterval time.Duration

	accountSnapshots []accountSnapshot
	fills            []common.Fill
	closedOrders     []common.Order
}

func NewAudit(minSnapshotInterval time.Duration) *Audit {
	return &Audit{
		minSnapshotInterval: minSnapshotInterval,
	}
}

// RecordSnapshot stores at most one snapshot per interval. A gated
// snapshot overwrites the previous one so the latest state is never lost.
func (a *Audit) RecordSnapshot(balance, equity fixed.Point, t time.Time) {
	if len(a.accountSnapshots) == 0 ||
		t.Sub(a.accountSnapshots[len(a.accountSnapshots)-1].t) >= a.minSnapshotInterval {
		a.accountSnapshots = append(a.accountSnapshots, accountSnapshot{
			balance: balance,
			equity:  equity,
			t:       t,
		})
		return
	}
	a.accountSnapshots[len(a.accountSnapshots)-1] = accountSnapshot{
		balance: balance,
		equity:  equity,
		t:       t,
	}
}

func (a *Audit) RecordFill(fill common.Fill) {
	a.fills = append(a.fills, fill)
}

// RecordOrder stores an order that reached a terminal status.
func (a *Audit) RecordOrder(order common.Order) {
	a.closedOrders = append(a.closedOrders, order)
}

func (a *Audit) GenerateReport() Report {
	report := Report{FeesByAsset: make(map[string]fixed.Point)}
	if len(a.accountSnapshots) == 0 {
		return report
	}

	auditedDays := a.dayCount()
	year := fixed.FromInt64(36525, 2)

	report.StartDate = a.accountSnapshots[0].t
	report.InitialEquity = a.accountSnapshots[0].equity
	report.EndDate = a.accountSnapshots[len(a.accountSnapshots)-1].t
	report.FinalEquity = a.accountSnapshots[len(a.accountSnapshots)-1].equity

	// --- Return Metrics ---
	if report.InitialEquity.IsPos() {
		report.TotalProfit = report.FinalEquity.Div(report.InitialEquity).Sub(fixed.One).MulInt64(100).Rescale(2)
	}
	if auditedDays > 0 && report.InitialEquity.IsPos() && report.FinalEquity.IsPos() {
		ratio := report.FinalEquity.Div(report.InitialEquity)
		exponent := year.DivInt64(int64(auditedDays))
		report.AnnualizedReturn = ratio.Pow(exponent).Sub(fixed.One).MulInt64(100).Rescale(2)
	}

	// --- Max Drawdown ---
	maxEquity := report.InitialEquity
	for _, snapshot := range a.accountSnapshots {
		if snapshot.equity.Gt(maxEquity) {
			maxEquity = snapshot.equity
		}
		if !maxEquity.IsPos() {
			continue
		}
		drawdown := maxEquity.Sub(snapshot.equity).Div(maxEquity)
		if drawdown.Gt(report.MaxDrawdown) {
			report.MaxDrawdown = drawdown
		}
	}

	// --- Execution Statistics ---
	for _, order := range a.closedOrders {
		report.TotalOrders++
		switch order.Status {
		case common.OrderStatusFilled:
			report.FilledOrders++
			if len(order.Fills) > 1 {
				report.PartiallyFilledOrders++
			}
		case common.OrderStatusCancelled:
			report.CancelledOrders++
		case common.OrderStatusRejected:
			report.RejectedOrders++
		case common.OrderStatusExpired:
			report.ExpiredOrders++
		}
	}
	if report.TotalOrders > 0 {
		report.FillRate = fixed.FromInt64(int64(report.FilledOrders), 0).
			DivInt64(int64(report.TotalOrders)).MulInt64(100).Rescale(2)
	}

	for _, fill := range a.fills {
		report.TotalFills++
		report.TotalVolume = report.TotalVolume.Add(fill.Quantity)
		report.TotalNotional = report.TotalNotional.Add(fill.Notional())
		if fill.Fee.Amount.IsPos() {
			report.FeesByAsset[fill.Fee.Asset] = report.FeesByAsset[fill.Fee.Asset].Add(fill.Fee.Amount)
		}
	}
	if report.TotalFills > 0 {
		report.AverageFillSize = report.TotalVolume.DivInt64(int64(report.TotalFills))
	}

	// --- Trade Statistics ---
	grossProfit, grossLoss := a.tradeStats(&report)
	if report.ClosedTrades > 0 {
		report.WinRate = fixed.FromInt64(int64(report.WinningTrades), 0).
			DivInt64(int64(report.ClosedTrades)).MulInt64(100).Rescale(2)
	}
	if grossLoss.IsPos() {
		report.ProfitFactor = grossProfit.Div(grossLoss).Rescale(2)
	}

	if report.MaxDrawdown.IsPos() {
		report.RecoveryFactor = report.TotalProfit.DivInt64(100).Div(report.MaxDrawdown)
	}
	report.MaxDrawdown = report.MaxDrawdown.MulInt64(100).Rescale(2)

	// --- Risk Metrics: Volatility, Sharpe, Sortino ---
	dailyReturns := a.dailyReturns()
	vol := fixed.SampleStdDev(dailyReturns)
	if vol.IsPos() {
		report.AnnualizedVolatility = vol.Mul(fixed.Sqrt252).MulInt64(100).Rescale(2)
		report.SharpeRatio = fixed.SharpeRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
		report.SortinoRatio = fixed.SortinoRatio(dailyReturns, fixed.Zero).Mul(fixed.Sqrt252).Rescale(5)
	}

	return report
}

// tradeStats replays the fill log per symbol and closes a round trip each
// time a position returns to flat. PnL is price-based, gross of fees.
func (a *Audit) tradeStats(report *Report) (grossProfit, grossLoss fixed.Point) {
	type roundTrip struct {
		quantity fixed.Point
		avgPrice fixed.Point
		realized fixed.Point
	}
	positions := make(map[string]*roundTrip)

	closeTrade := func(realized fixed.Point) {
		report.ClosedTrades++
		if realized.IsPos() {
			report.WinningTrades++
			grossProfit = grossProfit.Add(realized)
		} else {
			report.LosingTrades++
			grossLoss = grossLoss.Add(realized.Abs())
		}
	}

	for _, fill := range a.fills {
		rt := positions[fill.Symbol]
		if rt == nil {
			rt = &roundTrip{}
			positions[fill.Symbol] = rt
		}

		signed := fill.Quantity
		if fill.Side == common.OrderSideSell {
			signed = signed.Neg()
		}

		if rt.quantity.IsZero() || rt.quantity.IsPos() == signed.IsPos() {
			total := rt.quantity.Add(signed)
			notional := rt.avgPrice.Mul(rt.quantity.Abs()).Add(fill.Price.Mul(fill.Quantity))
			rt.avgPrice = notional.Div(total.Abs())
			rt.quantity = total
			continue
		}

		closing := fixed.Min(rt.quantity.Abs(), fill.Quantity)
		perUnit := fill.Price.Sub(rt.avgPrice)
		if rt.quantity.IsNeg() {
			perUnit = perUnit.Neg()
		}
		rt.realized = rt.realized.Add(perUnit.Mul(closing))

		remainder := fill.Quantity.Sub(closing)
		if rt.quantity.Abs().Gt(fill.Quantity) {
			rt.quantity = rt.quantity.Add(signed)
			continue
		}

		closeTrade(rt.realized)
		*rt = roundTrip{}
		if remainder.IsPos() {
			rt.quantity = remainder
			if fill.Side == common.OrderSideSell {
				rt.quantity = rt.quantity.Neg()
			}
			rt.avgPrice = fill.Price
		}
	}
	return grossProfit, grossLoss
}

func (a *Audit) dayCount() int {
	if len(a.accountSnapshots) < 2 {
		return 1
	}
	start := a.accountSnapshots[0].t
	end := a.accountSnapshots[len(a.accountSnapshots)-1].t
	return int(end.Sub(start).Hours()/24) + 1
}

func (a *Audit) dailyReturns() []fixed.Point {
	var dailyReturns []fixed.Point
	if len(a.accountSnapshots) < 2 {
		return dailyReturns
	}

	var (
		prevDate   = a.accountSnapshots[0].t.Truncate(24 * time.Hour)
		prevEquity = a.accountSnapshots[0].equity
	)

	for _, snapshot := range a.accountSnapshots[1:] {
		currDate := snapshot.t.Truncate(24 * time.Hour)

		if currDate.After(prevDate) && prevEquity.IsPos() {
			ret := snapshot.equity.Div(prevEquity).Sub(fixed.One)
			dailyReturns = append(dailyReturns, ret)

			prevDate = currDate
			prevEquity = snapshot.equity
		}
	}

	return dailyReturns
}
