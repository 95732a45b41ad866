// Package memory provides the in-process scrape queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
)

// Queue is a bounded in-memory queue with context-aware operations. The
// fan-out coordinator produces into it and the worker pool consumes from it;
// Len exposes the backlog the coordinator polls while waiting for drain.
type Queue struct {
	ch      chan inventory.ScrapeUnit
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan inventory.ScrapeUnit, capacity),
	}
}

// Enqueue pushes a scrape unit into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, unit inventory.ScrapeUnit) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- unit:
		return nil
	}
}

// Dequeue pops the next unit, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (inventory.ScrapeUnit, error) {
	select {
	case <-ctx.Done():
		return inventory.ScrapeUnit{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case unit, ok := <-q.ch:
		if !ok {
			return inventory.ScrapeUnit{}, errors.New("queue closed")
		}
		return unit, nil
	}
}

// Len reports the number of units waiting to be dequeued.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
