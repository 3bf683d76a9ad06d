package memo

import (
	"fmt"
	"sync"
)

// DefaultKey is the store key used when a call carries no key.
const DefaultKey = "default"

// Registry is a collection of [Store]s addressed by string keys.
//
// A Registry is meant to be created once at process start
// and shared by everything that memoizes through it.
// Stores are never evicted.
//
// The zero value is an empty registry ready for use.
type Registry struct {
	mu     sync.Mutex
	stores map[string]any // key => *Store[T]
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return new(Registry)
}

// StoreFor returns the store for key in registry r,
// creating it if it doesn't exist.
// An empty key refers to [DefaultKey].
//
// StoreFor panics if key was previously used
// for a store of a different type.
func StoreFor[T any](r *Registry, key string) *Store[T] {
	if key == "" {
		key = DefaultKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stores == nil {
		r.stores = make(map[string]any)
	}

	if s, ok := r.stores[key]; ok {
		st, ok := s.(*Store[T])
		if !ok {
			panic(fmt.Sprintf("memo: store %q holds %T, not %T", key, s, st))
		}
		return st
	}

	st := new(Store[T])
	r.stores[key] = st
	return st
}

// Keys reports the keys of all stores in the registry.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.stores))
	for k := range r.stores {
		keys = append(keys, k)
	}
	return keys
}

// KeyedBy returns a store selector for [Cached]
// that picks the store named by the first argument of each call,
// or [DefaultKey] if there are no arguments.
//
// namespace is prepended to the key so that unrelated factories
// sharing a registry don't collide.
func KeyedBy[T any](r *Registry, namespace string) func(args []string) *Store[T] {
	return func(args []string) *Store[T] {
		key := DefaultKey
		if len(args) > 0 && args[0] != "" {
			key = args[0]
		}
		if namespace != "" {
			key = namespace + "/" + key
		}
		return StoreFor[T](r, key)
	}
}
