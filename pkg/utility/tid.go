package utility

import (
	"sync/atomic"
	"time"
)

type TraceID = uint64

const (
	tidEpochMillis  = 1735689600000 // 2025-01-01T00:00:00Z
	tidSequenceBits = 16
	tidSequenceMask = (1 << tidSequenceBits) - 1
)

var tidSequence atomic.Uint64

// CreateTraceID returns a roughly time-ordered identifier, cheap enough to
// mint per event. Millisecond timestamp in the high bits, a wrapping
// sequence in the low bits.
func CreateTraceID() TraceID {
	millis := uint64(time.Now().UnixMilli() - tidEpochMillis)
	seq := tidSequence.Add(1) & tidSequenceMask
	return millis<<tidSequenceBits | seq
}
