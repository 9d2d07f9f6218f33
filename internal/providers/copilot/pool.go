package copilot

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// ghPool bounds concurrent gh invocations so a burst of requests does not
// fork an unbounded number of processes.
type ghPool struct {
	sem *semaphore.Weighted
}

func newGHPool(limit int) *ghPool {
	if limit < 1 {
		limit = 1
	}
	return &ghPool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot. A nil pool runs fn
// directly.
func (p *ghPool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
