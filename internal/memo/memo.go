// Package memo runs expensive factories at most once per cache key.
//
// A [Func] built with [Cached] resolves a [Store] for every call.
// If the store holds a value, that value is returned without doing any work.
// If another caller is already running the factory for that store,
// the new caller joins the in-flight operation instead of starting its own.
// Otherwise, the factory runs and its result is kept in the store
// for the lifetime of the store.
//
// Failures are not remembered:
// every caller sharing a failed operation receives the same error,
// and the next call runs the factory again.
package memo

import (
	"context"
	"sync"

	"braces.dev/errtrace"
	"golang.org/x/sync/singleflight"
)

// Factory produces a value for a cache store.
//
// Arguments are whatever the caller of the memoized [Func] passed in.
type Factory[T any] func(ctx context.Context, args ...string) (T, error)

// Func is a memoized [Factory].
type Func[T any] func(ctx context.Context, args ...string) (T, error)

// Sync adapts a function that cannot fail into a [Factory].
// Its result is cached as soon as it returns.
func Sync[T any](fn func(args ...string) T) Factory[T] {
	return func(_ context.Context, args ...string) (T, error) {
		return fn(args...), nil
	}
}

// Store holds at most one in-flight operation
// and, once that resolves, the cached value.
//
// The zero value is an empty store ready for use.
type Store[T any] struct {
	mu    sync.RWMutex
	value T
	ok    bool // whether value is set

	pending bool

	// The flight group has a single key.
	// It's what makes concurrent callers share one pending operation.
	flight singleflight.Group
}

// Peek returns the cached value and true,
// or the zero value and false if nothing has been resolved yet.
func (s *Store[T]) Peek() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.ok
}

// Pending reports whether an operation for this store is in flight.
func (s *Store[T]) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

func (s *Store[T]) setPending(p bool) {
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()
}

// do returns the cached value or runs factory to produce it.
func (s *Store[T]) do(ctx context.Context, factory Factory[T], args []string) (T, error) {
	if v, ok := s.Peek(); ok {
		return v, nil
	}

	// The shared operation must not be torn down
	// because the caller that happened to start it went away.
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan("", func() (any, error) {
		// Another flight may have finished between Peek and DoChan.
		if v, ok := s.Peek(); ok {
			return v, nil
		}

		s.setPending(true)
		defer s.setPending(false)

		v, err := factory(shared, args...)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}

		s.mu.Lock()
		s.value, s.ok = v, true
		s.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		// Val is a nil interface if the factory produced
		// the zero value of an interface type.
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, errtrace.Wrap(ctx.Err())
	}
}

// Cached wraps factory so that it runs at most once per store.
//
// store selects the [Store] for a call given the call's arguments.
// If store is nil, all calls share a single store
// regardless of their arguments.
func Cached[T any](factory Factory[T], store func(args []string) *Store[T]) Func[T] {
	if store == nil {
		var shared Store[T]
		store = func([]string) *Store[T] { return &shared }
	}

	return func(ctx context.Context, args ...string) (T, error) {
		v, err := store(args).do(ctx, factory, args)
		return v, errtrace.Wrap(err)
	}
}
