package service

import "sync/atomic"

// RunGuard enforces the at-most-one-concurrent-run policy for health checks.
// A second trigger while a run is active must fail fast, never block.
type RunGuard struct {
	held atomic.Bool
}

// NewRunGuard returns an unheld guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// TryAcquire takes the guard if it is free and reports whether it succeeded.
func (g *RunGuard) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release frees the guard.
func (g *RunGuard) Release() {
	g.held.Store(false)
}

// Held reports whether a run currently owns the guard.
func (g *RunGuard) Held() bool {
	return g.held.Load()
}
