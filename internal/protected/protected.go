// Package protected implements the mutable-under-lock wrapper used to share
// counters and small state records between the readout worker, the parser,
// and the controlling thread without data races.
package protected

import "sync"

// Protected guards a value of type T behind a mutex. The writer-side
// obtains an exclusive accessor with Access; reader-side callers take a
// point-in-time Copy.
type Protected[T any] struct {
	mu  sync.Mutex
	val T
}

// New wraps an initial value.
func New[T any](initial T) *Protected[T] {
	return &Protected[T]{val: initial}
}

// Accessor is returned by Access and holds the lock until Release is
// called; Ref gives mutable access to the guarded value.
type Accessor[T any] struct {
	p *Protected[T]
}

// Ref returns a pointer to the guarded value, valid until Release.
func (a Accessor[T]) Ref() *T { return &a.p.val }

// Release unlocks the Protected. Callers must call Release exactly once
// per Access.
func (a Accessor[T]) Release() { a.p.mu.Unlock() }

// Access locks p and returns an Accessor for in-place mutation.
func (p *Protected[T]) Access() Accessor[T] {
	p.mu.Lock()
	return Accessor[T]{p: p}
}

// Copy returns a snapshot of the guarded value.
func (p *Protected[T]) Copy() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.val
}

// Set replaces the guarded value wholesale.
func (p *Protected[T]) Set(v T) {
	p.mu.Lock()
	p.val = v
	p.mu.Unlock()
}

// With runs fn with exclusive access to the guarded value and releases the
// lock afterward — the common case, avoiding a bare Access/Release pair at
// every call site.
func (p *Protected[T]) With(fn func(*T)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.val)
}
