package fixed

import (
	"testing"
)

func TestRingBuffer_addAndEvict(t *testing.T) {
	r := NewRingBuffer(3)

	if !r.IsEmpty() {
		t.Error("new buffer should be empty")
	}

	for i := 1; i <= 5; i++ {
		r.Add(FromInt(i, 0))
	}

	if r.Size() != 3 || !r.IsFull() {
		t.Fatalf("size: got %d", r.Size())
	}

	oldest, _ := r.Oldest()
	latest, _ := r.Latest()
	if !oldest.Eq(FromInt(3, 0)) {
		t.Errorf("oldest: got %s", oldest)
	}
	if !latest.Eq(FromInt(5, 0)) {
		t.Errorf("latest: got %s", latest)
	}

	mid, ok := r.Get(1)
	if !ok || !mid.Eq(FromInt(4, 0)) {
		t.Errorf("get(1): got %s, ok=%v", mid, ok)
	}
	if _, ok := r.Get(3); ok {
		t.Error("out of range index should not be ok")
	}
}

func TestRingBuffer_statistics(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 1; i <= 4; i++ {
		r.Add(FromInt(i, 0))
	}

	if got := r.Sum(); !got.Eq(FromInt(10, 0)) {
		t.Errorf("sum: got %s", got)
	}
	if got := r.Mean(); !got.Eq(FromFloat64(2.5)) {
		t.Errorf("mean: got %s", got)
	}
}

func TestRingBuffer_clear(t *testing.T) {
	r := NewRingBuffer(2)
	r.Add(One)
	r.Clear()

	if !r.IsEmpty() {
		t.Error("buffer should be empty after clear")
	}
	if _, ok := r.Latest(); ok {
		t.Error("latest on empty buffer should not be ok")
	}
}
