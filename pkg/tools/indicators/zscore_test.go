package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

func TestZScore(t *testing.T) {
	z := NewZScore(4)
	assert.False(t, z.IsReady())

	for _, v := range []int{10, 10, 10} {
		z.AddPoint(fixed.FromInt(v, 0))
	}
	assert.False(t, z.IsReady())

	z.AddPoint(fixed.FromInt(10, 0))
	assert.True(t, z.IsReady())
	// flat window has no deviation
	assert.True(t, z.Value().IsZero())

	// window becomes [10 10 10 14], mean 11, sample stddev 2
	z.AddPoint(fixed.FromInt(14, 0))
	assert.True(t, z.Value().Eq(fixed.FromFloat64(1.5)), "z-score %s", z.Value())
}

func TestZScore_emptyWindowIsZero(t *testing.T) {
	z := NewZScore(4)
	assert.True(t, z.Value().IsZero())
}

func TestZScore_slidesWindow(t *testing.T) {
	z := NewZScore(3)
	for _, v := range []int{1, 2, 3, 4, 5} {
		z.AddPoint(fixed.FromInt(v, 0))
	}
	// window is [3 4 5], mean 4, sample stddev 1
	assert.True(t, z.Value().Eq(fixed.One), "z-score %s", z.Value())
}
