package bus

import (
	"container/heap"
	"errors"
)

var ErrEmptyQueue = errors.New("event queue is empty")

// EventQueue delivers events ordered by timestamp, then event id, then
// insertion order. Insertion order makes same-timestamp same-id delivery
// stable, which keeps replays reproducible.
type EventQueue struct {
	items eventHeap
	seq   uint64
}

func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

func (q *EventQueue) Enqueue(ev Event) {
	q.seq++
	ev.seq = q.seq
	heap.Push(&q.items, ev)
}

func (q *EventQueue) Dequeue() (Event, error) {
	if len(q.items) == 0 {
		return Event{}, ErrEmptyQueue
	}
	return heap.Pop(&q.items).(Event), nil
}

// Peek returns the next event without removing it.
func (q *EventQueue) Peek() (Event, error) {
	if len(q.items) == 0 {
		return Event{}, ErrEmptyQueue
	}
	return q.items[0], nil
}

func (q *EventQueue) Size() int     { return len(q.items) }
func (q *EventQueue) IsEmpty() bool { return len(q.items) == 0 }

func (q *EventQueue) Clear() {
	q.items = q.items[:0]
}

type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if !h[i].TimeStamp.Equal(h[j].TimeStamp) {
		return h[i].TimeStamp.Before(h[j].TimeStamp)
	}
	if h[i].ID != h[j].ID {
		return h[i].ID < h[j].ID
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}
