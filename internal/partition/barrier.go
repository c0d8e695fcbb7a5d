package partition

import (
	"context"
	"sync"
)

// Barrier is a reusable rendezvous for a fixed number of goroutines.
type Barrier struct {
	n int

	mu    sync.Mutex
	count int
	gen   chan struct{}
}

// NewBarrier returns a barrier for n participants.
func NewBarrier(n int) *Barrier {
	return &Barrier{n: n, gen: make(chan struct{})}
}

// Wait blocks until all n participants have called Wait for the current
// generation, or ctx is done.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	release := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen = make(chan struct{})
		b.mu.Unlock()
		close(release)
		return nil
	}
	b.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
