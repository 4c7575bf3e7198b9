package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrTimeRegression = errors.New("simulation time moved backwards")

// Clock abstracts simulated versus wall time. The virtual clock jumps to
// event timestamps instantly, the wall clock actually waits.
type Clock interface {
	Now() time.Time
	// Advance moves the clock to t. Virtual clocks enforce monotonic
	// time, wall clocks ignore the call.
	Advance(t time.Time) error
	Sleep(ctx context.Context, d time.Duration) error
}

// VirtualClock replays historical time. Never safe for concurrent use,
// the run loop is its only caller.
type VirtualClock struct {
	now time.Time
}

func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time { return c.now }

func (c *VirtualClock) Advance(t time.Time) error {
	if t.Before(c.now) {
		return fmt.Errorf("%w: %s -> %s", ErrTimeRegression, c.now, t)
	}
	c.now = t
	return nil
}

func (c *VirtualClock) Sleep(_ context.Context, d time.Duration) error {
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// WallClock drives paper runs in real time.
type WallClock struct{}

func NewWallClock() *WallClock { return &WallClock{} }

func (c *WallClock) Now() time.Time        { return time.Now() }
func (c *WallClock) Advance(time.Time) error { return nil }

func (c *WallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
