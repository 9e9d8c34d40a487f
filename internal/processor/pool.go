package processor

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool is the process-wide bounded worker pool shared by every room's
// translation and TTS fan-out. Bounding the pool globally keeps one busy room
// from starving the others of more than its share of backend concurrency.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a pool admitting at most size concurrent tasks.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Go runs fn on its own goroutine once a pool slot is free. It blocks the
// caller until the slot is acquired, which back-pressures fan-out submission.
// If ctx is done before a slot frees up, fn never runs and the error is
// returned.
func (p *Pool) Go(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		fn()
	}()
	return nil
}
