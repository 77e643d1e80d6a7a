// Package async runs deferred remote operations on a scheduler and hands
// back futures for their results.
//
// An Op does nothing until it is invoked. Callers that manage their own
// concurrency can invoke an Op directly on their goroutine; callers that
// want a fixed driver submit it to a Scheduler with Start or Await.
package async

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Op is a deferred operation that may block on the network.
type Op[T any] func(ctx context.Context) (T, error)

// Scheduler runs submitted tasks. Submit may block until the scheduler can accept the task.
type Scheduler interface {
	Submit(task func()) error
}

// Future is the pending result of an Op started on a Scheduler.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Giving up on the
// wait does not stop the operation.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) resolve(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Start submits op to s and returns its future. A failed submission or a
// panic inside op resolves the future with an error.
func Start[T any](ctx context.Context, s Scheduler, op Op[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	task := func() {
		var (
			val T
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, errors.WithStack(fmt.Errorf("async: operation panicked: %v", r)))
				return
			}
			f.resolve(val, err)
		}()
		val, err = op(ctx)
	}

	if err := s.Submit(task); err != nil {
		var zero T
		f.resolve(zero, errors.WithMessage(err, "async: submit operation"))
	}
	return f
}

// Await runs op on s and waits for its result.
func Await[T any](ctx context.Context, s Scheduler, op Op[T]) (T, error) {
	return Start(ctx, s, op).Wait(ctx)
}

// Then returns an Op that runs op and passes its result through fn.
func Then[T, U any](op Op[T], fn func(T) U) Op[U] {
	return func(ctx context.Context) (U, error) {
		v, err := op(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v), nil
	}
}

// GoScheduler runs every task on a new goroutine.
type GoScheduler struct{}

func (GoScheduler) Submit(task func()) error {
	go task()
	return nil
}
