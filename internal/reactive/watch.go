package reactive

import "sync"

// WatchOptions configure [Watch].
type WatchOptions struct {
	// Immediate runs the callback once at registration
	// with the current value.
	Immediate bool
}

// Watcher is a registered [Watch].
type Watcher[K comparable] struct {
	get func() K
	fn  func(K)

	// mu is held while reading a value and handing it to fn,
	// so fn sees values in the order they were read.
	mu      sync.Mutex
	last    K
	stopped bool
	cancel  func()
}

// Watch calls fn with the value returned by get
// every time one of deps notifies and that value
// differs from the one fn last saw.
//
// The value at registration is the baseline:
// fn doesn't run for it unless opts.Immediate is set.
//
// Calls to fn are serialized and follow the order in which values were read.
// fn must not synchronously change deps or Stop the watcher.
func Watch[K comparable](get func() K, deps []Dep, fn func(K), opts WatchOptions) *Watcher[K] {
	w := &Watcher[K]{get: get, fn: fn}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Subscribe before taking the baseline.
	// Notifications that race with registration wait for mu,
	// and then compare against the baseline.
	w.cancel = subscribeAll(deps, w.check)
	w.last = get()
	if opts.Immediate {
		fn(w.last)
	}
	return w
}

func (w *Watcher[K]) check() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	v := w.get()
	if v == w.last {
		return
	}
	w.last = v
	w.fn(v)
}

// Stop unsubscribes the watcher.
// It waits for an in-progress call to fn to return.
// Changes after Stop returns do not reach fn.
func (w *Watcher[K]) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.cancel()
}
