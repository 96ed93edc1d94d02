package session

import (
	"context"
	"time"
)

// Clock is the only source of time for the engine.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock, read in loc when set.
type SystemClock struct {
	loc *time.Location
}

func NewSystemClock(loc *time.Location) SystemClock { return SystemClock{loc: loc} }

func (c SystemClock) Now() time.Time {
	if c.loc == nil {
		return time.Now()
	}
	return time.Now().In(c.loc)
}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NextBoundary returns the first instant strictly after now that is a whole
// multiple of interval counted from anchor. Before anchor it returns anchor.
func NextBoundary(now, anchor time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return now
	}
	if now.Before(anchor) {
		return anchor
	}
	elapsed := now.Sub(anchor)
	return anchor.Add((elapsed/interval + 1) * interval)
}
