// Package gate implements a FIFO single-permit concurrency gate: at most one
// caller holds the permit at a time, and waiters are admitted in strict
// arrival order.
package gate

import (
	"context"
	"sync"
)

// Gate is a single-permit admission queue. The zero value is not usable;
// construct with New.
//
// Acquisition is non-reentrant: a goroutine that already holds the permit
// and calls Acquire again will deadlock behind its own hold, exactly like a
// non-reentrant mutex.
type Gate struct {
	mu      sync.Mutex
	held    bool
	waiters []chan struct{}
}

// New creates an unheld gate.
func New() *Gate {
	return &Gate{}
}

// Acquire blocks until the caller holds the permit, admitting waiters in
// FIFO order. It returns ctx.Err() if ctx is canceled before the permit is
// granted. Acquire does not impose its own deadline; callers that need one
// should pass a context with a timeout.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if !g.held {
		g.held = true
		g.mu.Unlock()
		return nil
	}
	wait := make(chan struct{})
	g.waiters = append(g.waiters, wait)
	g.mu.Unlock()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for i, w := range g.waiters {
			if w == wait {
				g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		g.mu.Unlock()
		// The permit was handed to us concurrently with cancellation; we
		// never observed the close, so release it on the caller's behalf.
		g.Release()
		return ctx.Err()
	}
}

// QueueDepth reports how many callers are currently waiting behind the
// held permit. It is a point-in-time snapshot for operator visibility, not
// something Acquire/Release logic depends on.
func (g *Gate) QueueDepth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// Release hands the permit to the longest-waiting caller, or clears it if
// none is waiting. Releasing an unheld permit is a programming error and
// panics.
func (g *Gate) Release() {
	g.mu.Lock()
	if !g.held {
		g.mu.Unlock()
		panic("gate: release of unheld permit")
	}
	if len(g.waiters) == 0 {
		g.held = false
		g.mu.Unlock()
		return
	}
	next := g.waiters[0]
	g.waiters = g.waiters[1:]
	g.mu.Unlock()
	close(next)
}
