package timectrl

import (
	"context"
	"sync"
	"time"
)

// TickClock exposes simulation progress to components that should not
// drive the simulation themselves (health handlers, metrics).
type TickClock interface {
	// Now returns the last completed tick, or -1 before the first tick ends.
	Now() int
	// Total returns the number of ticks the current run was started with.
	Total() int
}

// Mode describes how the TickController advances simulation time.
type Mode int

const (
	// RealTime runs one tick per Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated runs ticks back to back.
	Accelerated
)

func (m Mode) String() string {
	if m == RealTime {
		return "realtime"
	}
	return "accelerated"
}

// TickController drives a fixed number of discrete ticks and notifies
// registered listeners after each one. It implements TickClock.
type TickController struct {
	mu       sync.RWMutex
	Interval time.Duration
	Mode     Mode

	current int
	total   int

	listeners []func(int)
}

// NewTickController constructs a controller. interval is ignored in
// Accelerated mode.
func NewTickController(interval time.Duration, mode Mode) *TickController {
	return &TickController{
		Interval: interval,
		Mode:     mode,
		current:  -1,
	}
}

// Now returns the last completed tick. Implements TickClock.
func (tc *TickController) Now() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// Total returns the length of the current run. Implements TickClock.
func (tc *TickController) Total() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.total
}

// AddListener registers a callback invoked after every completed tick.
func (tc *TickController) AddListener(fn func(int)) {
	tc.listeners = append(tc.listeners, fn)
}

// Run calls step for ticks 0..total-1 in order, pacing them in RealTime
// mode. It stops at the first step error, and returns ctx.Err() before
// any tick that starts after ctx is done.
func (tc *TickController) Run(ctx context.Context, total int, step func(tick int) error) error {
	tc.mu.Lock()
	tc.current = -1
	tc.total = total
	tc.mu.Unlock()

	var ticks <-chan time.Time
	if tc.Mode == RealTime && tc.Interval > 0 {
		ticker := time.NewTicker(tc.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for tick := 0; tick < total; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ticks != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticks:
			}
		}

		if err := step(tick); err != nil {
			return err
		}

		tc.mu.Lock()
		tc.current = tick
		tc.mu.Unlock()

		for _, fn := range tc.listeners {
			fn(tick)
		}
	}
	return nil
}
