package irc

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO with one producer and one consumer. Closing it
// rejects further pushes; items already queued can still be popped, after
// which pops report the close error.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	err    error
	ready  chan struct{}
	closed chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// push appends v, or returns the close error if the queue is closed.
func (q *queue[T]) push(v T) error {
	q.mu.Lock()
	if q.err != nil {
		err := q.err
		q.mu.Unlock()
		return err
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// tryPop never blocks. ok is false when nothing is queued; err is set once the
// queue is closed and drained.
func (q *queue[T]) tryPop() (v T, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) > 0 {
		v = q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		return v, true, nil
	}
	return v, false, q.err
}

// pop blocks until an item is available, the queue is closed and drained, or
// ctx is done.
func (q *queue[T]) pop(ctx context.Context) (T, error) {
	for {
		v, ok, err := q.tryPop()
		if ok {
			return v, nil
		}
		if err != nil {
			return v, err
		}

		select {
		case <-q.ready:
		case <-q.closed:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// close marks the queue closed with err. Only the first call has an effect.
func (q *queue[T]) close(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return
	}
	q.err = err
	close(q.closed)
}
