package indicators

import (
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

// ZScore measures how far the latest point sits from the rolling mean,
// in standard deviations.
type ZScore struct {
	data *fixed.RingBuffer
}

func NewZScore(windowSize int) *ZScore {
	return &ZScore{
		data: fixed.NewRingBuffer(windowSize),
	}
}

func (z *ZScore) AddPoint(p fixed.Point) {
	z.data.Add(p)
}

func (z *ZScore) Value() fixed.Point {
	latest, ok := z.data.Latest()
	if !ok {
		return fixed.Zero
	}
	stdDev := z.data.SampleStdDev()
	if stdDev.IsZero() {
		return fixed.Zero
	}
	return latest.Sub(z.data.Mean()).Div(stdDev)
}

func (z *ZScore) IsReady() bool {
	return z.data.IsFull()
}
