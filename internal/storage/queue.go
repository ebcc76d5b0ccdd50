package storage

import (
	"context"
	"sync"
)

// Queue serialises operations touching one shared physical document.
// Turns are granted strictly in arrival order and at most one holder
// exists at a time. All engines nested under one root share a Queue.
type Queue struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
}

// NewQueue creates an idle queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Acquire blocks until it is the caller's turn or ctx fires. On success
// the returned release function must be called on every exit path.
func (q *Queue) Acquire(ctx context.Context) (release func(), err error) {
	q.mu.Lock()
	if !q.busy {
		q.busy = true
		q.mu.Unlock()
		return q.release, nil
	}
	turn := make(chan struct{})
	q.waiters = append(q.waiters, turn)
	q.mu.Unlock()

	select {
	case <-turn:
		return q.release, nil
	case <-ctx.Done():
		q.mu.Lock()
		for i, w := range q.waiters {
			if w == turn {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				q.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		q.mu.Unlock()
		// The turn was granted concurrently with the abort; pass it on
		// so the queue never stalls on an abandoned holder.
		q.release()
		return nil, ctx.Err()
	}
}

func (q *Queue) release() {
	q.mu.Lock()
	if len(q.waiters) == 0 {
		q.busy = false
		q.mu.Unlock()
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	q.mu.Unlock()
	close(next)
}
