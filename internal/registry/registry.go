// Package registry provides write-once bidirectional maps between
// compile-time symbolic keys and database-assigned stable identifiers.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyInitialized indicates a second Initialize call on the same registry.
	ErrAlreadyInitialized = errors.New("registry: already initialized")
	// ErrNotInitialized indicates a lookup before Initialize.
	ErrNotInitialized = errors.New("registry: not initialized")
	// ErrUnknownKey indicates the symbolic key has no registered identifier.
	ErrUnknownKey = errors.New("registry: unknown key")
	// ErrUnknownID indicates the identifier has no registered symbolic key.
	ErrUnknownID = errors.New("registry: unknown id")
)

type tables[K comparable] struct {
	forward map[K]uuid.UUID
	reverse map[uuid.UUID]K
}

// Registry maps symbolic keys of type K to persisted UUIDs, one-to-one in
// both directions. It is initialized exactly once at process start and is
// immutable afterwards, so lookups after Initialize are lock-free.
type Registry[K comparable] struct {
	mu      sync.Mutex
	entries atomic.Pointer[tables[K]]
}

// New returns an uninitialized registry. Construct one per symbolic key type
// and hand it to consumers explicitly; there is no package-level instance.
func New[K comparable]() *Registry[K] {
	return &Registry[K]{}
}

// Initialize installs the key/id mapping. It fails when called a second time
// or when the mapping is not one-to-one. Concurrent callers are serialized;
// only the first wins.
func (r *Registry[K]) Initialize(mappings map[K]uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries.Load() != nil {
		return ErrAlreadyInitialized
	}

	t := &tables[K]{
		forward: make(map[K]uuid.UUID, len(mappings)),
		reverse: make(map[uuid.UUID]K, len(mappings)),
	}
	for key, id := range mappings {
		if id == uuid.Nil {
			return fmt.Errorf("registry: nil id for key %v", key)
		}
		if dup, ok := t.reverse[id]; ok {
			return fmt.Errorf("registry: id %s mapped to both %v and %v", id, dup, key)
		}
		t.forward[key] = id
		t.reverse[id] = key
	}

	r.entries.Store(t)
	return nil
}

// Resolve returns the stable identifier registered for key.
func (r *Registry[K]) Resolve(key K) (uuid.UUID, error) {
	t := r.entries.Load()
	if t == nil {
		return uuid.Nil, ErrNotInitialized
	}
	id, ok := t.forward[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrUnknownKey, key)
	}
	return id, nil
}

// ResolveReverse returns the symbolic key registered for id.
func (r *Registry[K]) ResolveReverse(id uuid.UUID) (K, error) {
	var zero K
	t := r.entries.Load()
	if t == nil {
		return zero, ErrNotInitialized
	}
	key, ok := t.reverse[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}
	return key, nil
}

// Initialized reports whether Initialize has completed.
func (r *Registry[K]) Initialized() bool {
	return r.entries.Load() != nil
}

// Len returns the number of registered pairs, zero before Initialize.
func (r *Registry[K]) Len() int {
	t := r.entries.Load()
	if t == nil {
		return 0
	}
	return len(t.forward)
}
