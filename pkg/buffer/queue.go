package buffer

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrDone is returned by Next when the queue is closed for writing and
// fully drained.
var ErrDone = errors.New("buffer: done")

// Queue is a thread-safe unbounded FIFO queue.
//
// Add never blocks; the backing ring grows as needed. Next blocks until an
// element is available or the queue is closed. CloseWrite provides graceful
// shutdown: no further Adds are accepted while readers drain the remaining
// elements, after which Next returns ErrDone. CloseWithError unblocks all
// pending operations immediately.
type Queue[T any] struct {
	cond *sync.Cond

	mu         sync.Mutex
	buf        []T
	head, tail int64
	closeWrite bool
	closeErr   error
}

// NewQueue creates a Queue with the given initial capacity. A non-positive
// capacity uses a small default.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 16
	}
	q := &Queue[T]{
		buf: make([]T, capacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add appends a single element to the queue.
//
// Returns an error if the queue has been closed for writing or closed with
// an error. Add never blocks: when the ring is full it is grown in place.
func (q *Queue[T]) Add(t T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return fmt.Errorf("buffer: add to closed queue: %w", q.closeErr)
	}
	if q.closeWrite {
		return fmt.Errorf("buffer: add to closed queue: %w", io.ErrClosedPipe)
	}
	if q.tail-q.head == int64(len(q.buf)) {
		q.grow()
	}
	q.buf[q.tail%int64(len(q.buf))] = t
	q.tail++
	q.cond.Signal()
	return nil
}

// grow doubles the ring, unwrapping the live region to the front.
func (q *Queue[T]) grow() {
	old := int64(len(q.buf))
	buf := make([]T, old*2)
	h := q.head % old
	n := copy(buf, q.buf[h:])
	copy(buf[n:], q.buf[:h])
	q.buf = buf
	q.tail -= q.head
	q.head = 0
}

// Next removes and returns the next element.
//
// It blocks until an element is available or the queue is closed. When the
// queue is closed for writing and empty, Next returns ErrDone.
func (q *Queue[T]) Next() (t T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		err = fmt.Errorf("buffer: next from closed queue: %w", q.closeErr)
		return
	}
	for q.head == q.tail {
		if q.closeWrite {
			err = ErrDone
			return
		}
		q.cond.Wait()
		if q.closeErr != nil {
			err = fmt.Errorf("buffer: next from closed queue: %w", q.closeErr)
			return
		}
	}
	t = q.buf[q.head%int64(len(q.buf))]
	q.head++
	return t, nil
}

// CloseWrite closes the write side of the queue, preventing further Adds
// while allowing queued elements to be drained. Returns nil if the write
// side was already closed.
func (q *Queue[T]) CloseWrite() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeWrite {
		return nil
	}
	q.closeWrite = true
	q.cond.Broadcast()
	return nil
}

// CloseWithError closes the queue immediately with the given error. All
// pending and subsequent operations return the error. A nil err defaults to
// io.ErrClosedPipe. Only the first close takes effect.
func (q *Queue[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr != nil {
		return nil
	}
	q.closeErr = err
	q.closeWrite = true
	q.cond.Broadcast()
	return nil
}

// Close closes the queue, equivalent to CloseWithError(io.ErrClosedPipe).
func (q *Queue[T]) Close() error {
	return q.CloseWithError(io.ErrClosedPipe)
}

// Error returns the error the queue was closed with, if any.
func (q *Queue[T]) Error() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeErr
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}
