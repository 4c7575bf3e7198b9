package fixed

// RingBuffer is a fixed-capacity circular buffer of points. Once full,
// each Add evicts the oldest element.
type RingBuffer struct {
	data []Point
	head int
	size int
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		panic("ring buffer capacity must be positive")
	}
	return &RingBuffer{data: make([]Point, capacity)}
}

func (r *RingBuffer) Add(p Point) {
	r.data[r.head] = p
	r.head = (r.head + 1) % len(r.data)
	if r.size < len(r.data) {
		r.size++
	}
}

func (r *RingBuffer) Size() int     { return r.size }
func (r *RingBuffer) Capacity() int { return len(r.data) }
func (r *RingBuffer) IsEmpty() bool { return r.size == 0 }
func (r *RingBuffer) IsFull() bool  { return r.size == len(r.data) }

func (r *RingBuffer) Clear() {
	r.head = 0
	r.size = 0
}

// Get returns the i-th element, oldest first. ok is false when i is out
// of range.
func (r *RingBuffer) Get(i int) (Point, bool) {
	if i < 0 || i >= r.size {
		return Point{}, false
	}
	start := (r.head - r.size + len(r.data)) % len(r.data)
	return r.data[(start+i)%len(r.data)], true
}

func (r *RingBuffer) Latest() (Point, bool) {
	if r.size == 0 {
		return Point{}, false
	}
	return r.data[(r.head-1+len(r.data))%len(r.data)], true
}

func (r *RingBuffer) Oldest() (Point, bool) {
	return r.Get(0)
}

func (r *RingBuffer) Values() []Point {
	out := make([]Point, 0, r.size)
	for i := 0; i < r.size; i++ {
		p, _ := r.Get(i)
		out = append(out, p)
	}
	return out
}

func (r *RingBuffer) Sum() Point {
	sum := Zero
	for i := 0; i < r.size; i++ {
		p, _ := r.Get(i)
		sum = sum.Add(p)
	}
	return sum
}

func (r *RingBuffer) Mean() Point {
	if r.size == 0 {
		return Zero
	}
	return r.Sum().DivInt(r.size)
}

func (r *RingBuffer) SampleStdDev() Point {
	return SampleStdDev(r.Values())
}
