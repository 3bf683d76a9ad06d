// Package reactive provides observable cells and watchers over them.
//
// A [Source] is anything that holds a value and can tell subscribers
// when it may have changed.
// [Cell] is the mutable source; [Static] and [Derived] adapt
// constants and getter functions into sources.
// [Watch] runs a callback whenever the value computed from a set of sources
// changes.
package reactive

import "sync"

// Source is a value that may change over time.
type Source[T any] interface {
	// Get returns the current value.
	Get() T

	// Subscribe registers fn to be called after the value may have changed.
	// The returned function removes the subscription.
	Subscribe(fn func()) (cancel func())
}

// Static returns a [Source] that always holds v.
func Static[T any](v T) Source[T] {
	return staticSource[T]{v}
}

type staticSource[T any] struct{ v T }

func (s staticSource[T]) Get() T                 { return s.v }
func (staticSource[T]) Subscribe(func()) func() { return func() {} }

// Derived returns a [Source] that calls get for its value,
// and notifies its subscribers whenever any of deps does.
func Derived[T any](get func() T, deps ...Dep) Source[T] {
	return &derivedSource[T]{get: get, deps: deps}
}

// Dep is anything that can be subscribed to.
// Every [Source] is a Dep.
type Dep interface {
	Subscribe(fn func()) (cancel func())
}

type derivedSource[T any] struct {
	get  func() T
	deps []Dep
}

func (s *derivedSource[T]) Get() T { return s.get() }

func (s *derivedSource[T]) Subscribe(fn func()) func() {
	return subscribeAll(s.deps, fn)
}

func subscribeAll(deps []Dep, fn func()) func() {
	cancels := make([]func(), 0, len(deps))
	for _, d := range deps {
		cancels = append(cancels, d.Subscribe(fn))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Cell is a mutable [Source].
// Subscribers are notified when Set changes the value.
//
// A Cell is safe for concurrent use.
type Cell[T comparable] struct {
	mu     sync.RWMutex
	value  T
	subs   map[int]func()
	nextID int
}

var _ Source[string] = (*Cell[string])(nil)

// NewCell builds a cell holding v.
func NewCell[T comparable](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Get returns the value in the cell.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value in the cell.
// Subscribers are notified only if the new value differs from the old one.
// Notifications run on the calling goroutine after the cell is unlocked.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	if c.value == v {
		c.mu.Unlock()
		return
	}
	c.value = v
	subs := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Subscribe registers fn to be called when the value changes.
func (c *Cell[T]) Subscribe(fn func()) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs == nil {
		c.subs = make(map[int]func())
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}
