package async

import (
	"context"
	"fmt"
)

// Future holds the eventual result of a call started in non-blocking mode.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("await: %w", ctx.Err())
	}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Go runs fn on the pool and returns its future. A failure to schedule
// resolves the future immediately with that error. A panic inside fn is
// converted into the future's error.
func Go[T any](ctx context.Context, pool *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	task := func(taskCtx context.Context) {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, fmt.Errorf("async task panic: %v", r))
				return
			}
			f.resolve(value, err)
		}()
		value, err = fn(taskCtx)
	}
	if pool == nil {
		go task(ctx)
		return f
	}
	if err := pool.Submit(ctx, task); err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}
