// Package channel provides an unbounded, closeable queue and a fan-in merger
// that unifies any number of asynchronous sources into one ordered stream.
//
// A Channel accepts values from any number of concurrent producers and hands
// them to a single logical consumer in FIFO order. Sends never block: when a
// receiver is already waiting the value is handed to it directly, otherwise
// it is buffered. Close is idempotent and wakes every pending receiver with
// the end-of-stream marker once the buffer has drained.
package channel

import (
	"context"
	"sync"

	"github.com/conneroisu/docpack/internal/errors"
)

// Source is a lazy, non-restartable, potentially infinite sequence of values.
// Next blocks until a value is available; ok is false once the source is
// exhausted or ctx is done.
type Source[T any] interface {
	Next(ctx context.Context) (value T, ok bool)
}

// ErrChannelClosed is returned by Send after Close.
var ErrChannelClosed = errors.ErrChannelClosed

// Channel is an unbounded FIFO queue with close semantics.
type Channel[T any] struct {
	mu       sync.Mutex
	items    queue[T]
	waitings queue[chan T]
	closed   bool
}

// New creates an open, empty channel.
func New[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Send delivers v to a waiting receiver or buffers it.
func (c *Channel[T]) Send(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.NewChannelClosedError()
	}

	if waiter, ok := c.waitings.dequeue(); ok {
		// waiter is buffered with capacity one and receives exactly once.
		waiter <- v
		return nil
	}

	c.items.enqueue(v)
	return nil
}

// Receive blocks until a value is available, the channel is closed and
// drained, or ctx is done.
func (c *Channel[T]) Receive(ctx context.Context) (T, bool) {
	var zero T

	c.mu.Lock()
	if v, ok := c.items.dequeue(); ok {
		c.mu.Unlock()
		return v, true
	}
	if c.closed {
		c.mu.Unlock()
		return zero, false
	}
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return zero, false
	}

	waiter := make(chan T, 1)
	c.waitings.enqueue(waiter)
	c.mu.Unlock()

	select {
	case v, ok := <-waiter:
		return v, ok
	case <-ctx.Done():
		c.abandon(waiter)
		return zero, false
	}
}

// abandon withdraws a waiter after cancellation. A value that raced in before
// the withdrawal is pushed back to the front of the buffer.
func (c *Channel[T]) abandon(waiter chan T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.waitings.removeFunc(func(w chan T) bool { return w == waiter }) {
		return
	}

	select {
	case v, ok := <-waiter:
		if ok {
			c.items.pushFront(v)
		}
	default:
	}
}

// Next implements Source.
func (c *Channel[T]) Next(ctx context.Context) (T, bool) {
	return c.Receive(ctx)
}

// Close marks the channel closed and releases every pending receiver.
// Calling Close more than once is a no-op.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for {
		waiter, ok := c.waitings.dequeue()
		if !ok {
			break
		}
		close(waiter)
	}
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of buffered values.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.len()
}

// Merge pumps every source into a single channel. The result is closed once
// all sources are exhausted, and immediately when no sources are given.
// Values from different sources interleave in the order their pulls
// complete; values from the same source keep their order.
func Merge[T any](ctx context.Context, sources ...Source[T]) *Channel[T] {
	out := New[T]()

	if len(sources) == 0 {
		out.Close()
		return out
	}

	var live sync.WaitGroup
	live.Add(len(sources))
	for _, src := range sources {
		go func(src Source[T]) {
			defer live.Done()
			pump(ctx, src, out)
		}(src)
	}

	go func() {
		live.Wait()
		out.Close()
	}()

	return out
}

func pump[T any](ctx context.Context, src Source[T], out *Channel[T]) {
	for {
		v, ok := src.Next(ctx)
		if !ok {
			return
		}
		if err := out.Send(v); err != nil {
			// out is only closed after every pump returns.
			panic(err)
		}
	}
}

// sliceSource replays a fixed list of values.
type sliceSource[T any] struct {
	mu     sync.Mutex
	values []T
}

// FromSlice returns a finite Source yielding values in order.
func FromSlice[T any](values ...T) Source[T] {
	return &sliceSource[T]{values: values}
}

func (s *sliceSource[T]) Next(ctx context.Context) (T, bool) {
	var zero T
	if ctx.Err() != nil {
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return zero, false
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v, true
}
