package historical

import (
	"math"
	"time"

	"github.com/tomas-vanek/fulcrum/pkg/common"
	"github.com/tomas-vanek/fulcrum/pkg/utility/fixed"
)

// Scales for the integer fields of a BinaryTick record.
const (
	binaryPriceDigits  = 5
	binaryVolumeDigits = 2
)

// BinaryTick is the on-disk record layout. The struct is read straight
// out of the mapped file, field order and padding must not change.
type BinaryTick struct {
	TimeStamp int64 // unix nanoseconds
	Price     int64
	Volume    int64
	Side      int32
	_         int32
}

func (b BinaryTick) ToTick(tick *common.Tick) {
	tick.Price = fixed.New(b.Price, binaryPriceDigits)
	tick.Volume = fixed.New(b.Volume, binaryVolumeDigits)
	tick.Side = common.TickSide(b.Side)
	tick.TimeStamp = time.Unix(0, b.TimeStamp)
}

func FromTick(tick common.Tick) BinaryTick {
	return BinaryTick{
		TimeStamp: tick.TimeStamp.UnixNano(),
		Price:     scaled(tick.Price, binaryPriceDigits),
		Volume:    scaled(tick.Volume, binaryVolumeDigits),
		Side:      int32(tick.Side),
	}
}

func scaled(p fixed.Point, digits int) int64 {
	return int64(math.Round(p.MustFloat64() * math.Pow10(digits)))
}
