package simulation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/engine"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

var _ engine.Recorder = (*Audit)(nil)

func snap(a *Audit, equity int64, t time.Time) {
	a.RecordSnapshot(fixed.FromInt64(equity, 0), fixed.FromInt64(equity, 0), t)
}

func TestAudit_snapshotInterval(t *testing.T) {
	a := NewAudit(time.Minute)
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	snap(a, 1000, start)
	snap(a, 1010, start.Add(10*time.Second)) // gated, overwrites
	snap(a, 1020, start.Add(time.Minute))

	require.Len(t, a.accountSnapshots, 2)
	assert.True(t, a.accountSnapshots[0].equity.Eq(fixed.FromInt64(1010, 0)))
	assert.True(t, a.accountSnapshots[1].equity.Eq(fixed.FromInt64(1020, 0)))
}

func TestAudit_emptyReport(t *testing.T) {
	report := NewAudit(time.Minute).GenerateReport()
	assert.Zero(t, report.TotalOrders)
	assert.True(t, report.TotalProfit.IsZero())
}

func TestAudit_returnAndDrawdown(t *testing.T) {
	a := NewAudit(time.Nanosecond)
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	snap(a, 1000, start)
	snap(a, 1200, start.Add(24*time.Hour))
	snap(a, 900, start.Add(48*time.Hour))
	snap(a, 1100, start.Add(72*time.Hour))

	report := a.GenerateReport()

	assert.True(t, report.TotalProfit.Eq(fixed.FromInt64(1000, 2)), "total profit %s", report.TotalProfit)
	// peak 1200 to trough 900 is a 25% drawdown
	assert.True(t, report.MaxDrawdown.Eq(fixed.FromInt64(2500, 2)), "max drawdown %s", report.MaxDrawdown)
	assert.True(t, report.AnnualizedReturn.IsPos())
	assert.True(t, report.RecoveryFactor.IsPos())
	assert.False(t, report.AnnualizedVolatility.IsZero())
}

func TestAudit_executionStatistics(t *testing.T) {
	a := NewAudit(time.Minute)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	snap(a, 1000, now)

	closed := func(status common.OrderStatus, fills int) common.Order {
		o := common.Order{Status: status}
		for i := 0; i < fills; i++ {
			o.Fills = append(o.Fills, common.Fill{})
		}
		return o
	}
	a.RecordOrder(closed(common.OrderStatusFilled, 1))
	a.RecordOrder(closed(common.OrderStatusFilled, 3))
	a.RecordOrder(closed(common.OrderStatusCancelled, 0))
	a.RecordOrder(closed(common.OrderStatusRejected, 0))
	a.RecordOrder(closed(common.OrderStatusExpired, 0))

	a.RecordFill(common.Fill{
		FillID:   uuid.New(),
		Price:    fixed.FromInt64(100, 0),
		Quantity: fixed.FromInt64(2, 0),
		Fee:      common.Fee{Asset: "USD", Amount: fixed.FromInt64(1, 1)},
	})
	a.RecordFill(common.Fill{
		FillID:   uuid.New(),
		Price:    fixed.FromInt64(50, 0),
		Quantity: fixed.FromInt64(4, 0),
		Fee:      common.Fee{Asset: "USD", Amount: fixed.FromInt64(2, 1)},
	})

	report := a.GenerateReport()

	assert.Equal(t, 5, report.TotalOrders)
	assert.Equal(t, 2, report.FilledOrders)
	assert.Equal(t, 1, report.PartiallyFilledOrders)
	assert.Equal(t, 1, report.CancelledOrders)
	assert.Equal(t, 1, report.RejectedOrders)
	assert.Equal(t, 1, report.ExpiredOrders)
	assert.True(t, report.FillRate.Eq(fixed.FromInt64(4000, 2)), "fill rate %s", report.FillRate)

	assert.Equal(t, 2, report.TotalFills)
	assert.True(t, report.TotalVolume.Eq(fixed.FromInt64(6, 0)))
	assert.True(t, report.TotalNotional.Eq(fixed.FromInt64(400, 0)))
	assert.True(t, report.AverageFillSize.Eq(fixed.FromInt64(3, 0)))
	require.Contains(t, report.FeesByAsset, "USD")
	assert.True(t, report.FeesByAsset["USD"].Eq(fixed.FromInt64(3, 1)))
}

func TestAudit_tradeStatistics(t *testing.T) {
	a := NewAudit(time.Minute)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	snap(a, 1000, now)

	record := func(side common.OrderSide, qty, price int64) {
		a.RecordFill(common.Fill{
			FillID:   uuid.New(),
			Side:     side,
			Price:    fixed.FromInt64(price, 0),
			Quantity: fixed.FromInt64(qty, 0),
			Symbol:   "EURUSD",
		})
	}

	// long round trip, +100
	record(common.OrderSideBuy, 10, 100)
	record(common.OrderSideSell, 10, 110)
	// long round trip, -50
	record(common.OrderSideBuy, 10, 100)
	record(common.OrderSideSell, 10, 95)
	// short round trip, +50
	record(common.OrderSideSell, 5, 100)
	record(common.OrderSideBuy, 5, 90)

	report := a.GenerateReport()

	assert.Equal(t, 3, report.ClosedTrades)
	assert.Equal(t, 2, report.WinningTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.True(t, report.WinRate.Eq(fixed.FromInt64(6667, 2)), "win rate %s", report.WinRate)
	// gross profit 150 against gross loss 50
	assert.True(t, report.ProfitFactor.Eq(fixed.FromInt64(3, 0)), "profit factor %s", report.ProfitFactor)
}

func TestAudit_tradeStatisticsCrossThroughFlat(t *testing.T) {
	a := NewAudit(time.Minute)
	snap(a, 1000, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))

	record := func(side common.OrderSide, qty, price int64) {
		a.RecordFill(common.Fill{
			FillID:   uuid.New(),
			Side:     side,
			Price:    fixed.FromInt64(price, 0),
			Quantity: fixed.FromInt64(qty, 0),
			Symbol:   "EURUSD",
		})
	}

	// long 4 closed at 105 (+20), flip short 6, covered at 100 (+30)
	record(common.OrderSideBuy, 4, 100)
	record(common.OrderSideSell, 10, 105)
	record(common.OrderSideBuy, 6, 100)

	report := a.GenerateReport()

	assert.Equal(t, 2, report.ClosedTrades)
	assert.Equal(t, 2, report.WinningTrades)
	assert.True(t, report.WinRate.Eq(fixed.FromInt64(100, 0)), "win rate %s", report.WinRate)
}
