package loop

import (
	"context"
	"time"
)

// =============================================================================
// FRAME DRIVER
// =============================================================================
//
// The original host drove the loop from an animation-frame callback. Here the
// driver is an injectable abstraction: "call step repeatedly at roughly the
// host's preferred cadence, with a monotonic-ish clock". Production uses the
// ticker driver; tests call Loop.Step directly with a synthetic clock.

// FrameDriver invokes step once per frame until ctx is cancelled.
type FrameDriver interface {
	Run(ctx context.Context, step func(now time.Time))
}

// TickerDriver is the default driver: a fixed best-effort cadence, no
// hard real-time guarantee.
type TickerDriver struct {
	Interval time.Duration
}

// NewTickerDriver returns a driver at the given cadence (default ~60 fps).
func NewTickerDriver(interval time.Duration) *TickerDriver {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TickerDriver{Interval: interval}
}

// Run steps until ctx is cancelled.
func (d *TickerDriver) Run(ctx context.Context, step func(now time.Time)) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			step(now)
		}
	}
}
