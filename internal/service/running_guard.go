package service

import (
	"context"
	"sync"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningPlansGuard

// ─────────────────────────────────────────────────────────────
// runningPlansGuard — prevents concurrent seeding of the same plan
// ─────────────────────────────────────────────────────────────

// runningPlansGuard ensures only one run per plan path is in flight.
// A plan seeded twice at once would race on the same target tables.
type runningPlansGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks plan as running. Returns false if it already is.
func (g *runningPlansGuard) TryLock(plan string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[plan]; ok {
		return false
	}
	g.running[plan] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock must be called after TryLock returns true.
func (g *runningPlansGuard) Unlock(plan string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, plan)
	g.wg.Done()
}

// Running reports whether plan is being seeded.
func (g *runningPlansGuard) Running(plan string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[plan]
	return ok
}

// WaitAll blocks until all running plans complete or ctx is cancelled.
func (g *runningPlansGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
