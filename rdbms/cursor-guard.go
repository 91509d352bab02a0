package rdbms

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// CursorGuard limits the number of source cursors that may be open at once.
// Legacy sources often refuse clients that hold too many.
// A nil *CursorGuard or one created with max <= 0 does not limit anything.
type CursorGuard struct {
	sem *semaphore.Weighted
	max int64
}

func NewCursorGuard(max int64) *CursorGuard {
	g := &CursorGuard{max: max}
	if max > 0 {
		g.sem = semaphore.NewWeighted(max)
	}
	return g
}

// Acquire blocks until a cursor slot is free or ctx is done.
func (g *CursorGuard) Acquire(ctx context.Context) error {
	if g == nil || g.sem == nil {
		return nil
	}
	return g.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot without blocking and reports whether it succeeded.
func (g *CursorGuard) TryAcquire() bool {
	if g == nil || g.sem == nil {
		return true
	}
	return g.sem.TryAcquire(1)
}

// Release frees a slot taken by Acquire.
func (g *CursorGuard) Release() {
	if g == nil || g.sem == nil {
		return
	}
	g.sem.Release(1)
}

// Max returns the configured limit where 0 means unbounded.
func (g *CursorGuard) Max() int64 {
	if g == nil {
		return 0
	}
	return g.max
}
