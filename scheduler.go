package shapeview

import (
	"context"
	"errors"
	"time"
)

// DefaultFrameInterval paces frames when no scheduler is configured.
const DefaultFrameInterval = time.Second / 60

// ErrStopped is returned by a Scheduler when no further frames will be
// requested. Run treats it as a normal end of the frame loop.
var ErrStopped = errors.New("shapeview: scheduler stopped")

// Scheduler delivers frame signals to Run. Next blocks until the next frame
// should be rendered. It returns ErrStopped when the display is gone, or
// the context error when ctx is done.
type Scheduler interface {
	Next(ctx context.Context) error
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(ctx context.Context) error

// Next calls f(ctx).
func (f SchedulerFunc) Next(ctx context.Context) error { return f(ctx) }

// fixedFrames allows a fixed number of frames.
type fixedFrames struct {
	remaining int
}

// FixedFrames returns a scheduler under which Run presents exactly n frames
// (at least one, the initial frame) and then returns. It never blocks and
// is meant for tests and offline runs.
func FixedFrames(n int) Scheduler {
	return &fixedFrames{remaining: n - 1}
}

func (f *fixedFrames) Next(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.remaining <= 0 {
		return ErrStopped
	}
	f.remaining--
	return nil
}

// TickerScheduler signals frames at a fixed interval.
type TickerScheduler struct {
	ticker *time.Ticker
}

// NewTickerScheduler returns a scheduler that fires every d. A non-positive
// d selects DefaultFrameInterval. Call Stop when done.
func NewTickerScheduler(d time.Duration) *TickerScheduler {
	if d <= 0 {
		d = DefaultFrameInterval
	}
	return &TickerScheduler{ticker: time.NewTicker(d)}
}

// Next waits for the next tick.
func (s *TickerScheduler) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (s *TickerScheduler) Stop() {
	s.ticker.Stop()
}
