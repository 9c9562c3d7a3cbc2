// Package reactive provides version counters and memoized derived values.
// A Memo recomputes only when the version of one of its declared inputs
// changed since the last read.
package reactive

import (
	"sync"
	"sync/atomic"
)

// Source is anything with a monotonically increasing version.
type Source interface {
	Version() uint64
}

// Counter is a Source bumped by its owner on every mutation.
type Counter struct {
	v atomic.Uint64
}

// Version returns the current version.
func (c *Counter) Version() uint64 {
	return c.v.Load()
}

// Bump advances the version and returns the new value.
func (c *Counter) Bump() uint64 {
	return c.v.Add(1)
}

// Memo caches the result of compute until an input version changes.
type Memo[T any] struct {
	mu      sync.Mutex
	compute func() T
	deps    []Source
	seen    []uint64
	valid   bool
	value   T
	version Counter
}

// NewMemo creates a Memo over the given inputs.
func NewMemo[T any](compute func() T, deps ...Source) *Memo[T] {
	return &Memo[T]{
		compute: compute,
		deps:    deps,
		seen:    make([]uint64, len(deps)),
	}
}

// Get returns the cached value, recomputing it first if any input changed.
func (m *Memo[T]) Get() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh()
	return m.value
}

// Version refreshes the memo and returns how many times it has recomputed.
// This lets a Memo be the input of another Memo.
func (m *Memo[T]) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh()
	return m.version.Version()
}

func (m *Memo[T]) refresh() {
	current := make([]uint64, len(m.deps))
	stale := !m.valid
	for i, d := range m.deps {
		current[i] = d.Version()
		if current[i] != m.seen[i] {
			stale = true
		}
	}
	if !stale {
		return
	}
	m.value = m.compute()
	m.seen = current
	m.valid = true
	m.version.Bump()
}
