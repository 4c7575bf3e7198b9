package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

func level(price, volume float64) PriceLevel {
	return PriceLevel{
		Price:  fixed.FromFloat64(price),
		Volume: fixed.FromFloat64(volume),
		Orders: 1,
	}
}

func testSnapshot() OrderBookSnapshot {
	return OrderBookSnapshot{
		Symbol: "EURUSD",
		Bids:   []PriceLevel{level(98, 5), level(97, 10), level(96, 20)},
		Asks:   []PriceLevel{level(99, 4), level(100, 3), level(101, 8)},
	}
}

func TestOrderBookSnapshot_validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OrderBookSnapshot)
		wantErr bool
	}{
		{"valid book", func(*OrderBookSnapshot) {}, false},
		{"empty symbol", func(s *OrderBookSnapshot) { s.Symbol = "" }, true},
		{"crossed book", func(s *OrderBookSnapshot) { s.Bids[0].Price = fixed.FromInt(99, 0) }, true},
		{"bids out of order", func(s *OrderBookSnapshot) { s.Bids[1].Price = fixed.FromInt(99, 0) }, true},
		{"asks out of order", func(s *OrderBookSnapshot) { s.Asks[2].Price = fixed.FromInt(99, 0) }, true},
		{"negative volume", func(s *OrderBookSnapshot) { s.Asks[0].Volume = fixed.FromInt(-1, 0) }, true},
		{"one-sided book is valid", func(s *OrderBookSnapshot) { s.Asks = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSnapshot()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderBookSnapshot_midAndSpread(t *testing.T) {
	s := testSnapshot()

	mid, err := s.MidPrice()
	require.NoError(t, err)
	assert.True(t, mid.Eq(fixed.FromFloat64(98.5)), "mid %s", mid)

	spread, err := s.Spread()
	require.NoError(t, err)
	assert.True(t, spread.Eq(fixed.One), "spread %s", spread)

	empty := OrderBookSnapshot{Symbol: "EURUSD"}
	_, err = empty.MidPrice()
	assert.ErrorIs(t, err, ErrBookNoLevels)
}

func TestOrderBookSnapshot_imbalance(t *testing.T) {
	s := testSnapshot()

	// top 2: bids 15, asks 7 -> (15-7)/22
	got := s.Imbalance(2)
	expected := fixed.FromInt(8, 0).Div(fixed.FromInt(22, 0))
	assert.True(t, got.Eq(expected), "imbalance %s", got)

	assert.True(t, OrderBookSnapshot{}.Imbalance(5).IsZero())
}

func TestOrderBookSnapshot_vwapForSize(t *testing.T) {
	s := testSnapshot()

	// buy 5: 4 @ 99 plus 1 @ 100
	vwap, err := s.VWAPForSize(fixed.FromInt(5, 0), OrderSideBuy)
	require.NoError(t, err)
	assert.True(t, vwap.Eq(fixed.FromFloat64(99.2)), "vwap %s", vwap)

	// sell 5: all from the touch
	vwap, err = s.VWAPForSize(fixed.FromInt(5, 0), OrderSideSell)
	require.NoError(t, err)
	assert.True(t, vwap.Eq(fixed.FromInt(98, 0)), "vwap %s", vwap)

	_, err = s.VWAPForSize(fixed.FromInt(100, 0), OrderSideBuy)
	assert.ErrorIs(t, err, ErrBookTooThin)

	_, err = s.VWAPForSize(fixed.Zero, OrderSideBuy)
	assert.Error(t, err)
}
