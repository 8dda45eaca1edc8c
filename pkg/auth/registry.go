package auth

import (
	"fmt"
	"sync"
)

// Registry is the ordered collection of observers attached to one mechanism.
//
// Usernames are unique within a registry. Insertion order is preserved and is
// the order in which observers are notified.
//
// Thread safety: safe for concurrent use. Lookups take a read lock and may
// run concurrently; Attach and Detach are serialized.
type Registry struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Attach appends o to the registry.
// Returns ErrDuplicateAttach if the username is already present.
func (r *Registry) Attach(o Observer) error {
	if o == nil {
		return fmt.Errorf("attach nil observer: %w", ErrInvalidCredentials)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(o.Username()) >= 0 {
		return fmt.Errorf("attach %q: %w", o.Username(), ErrDuplicateAttach)
	}
	r.observers = append(r.observers, o)
	return nil
}

// Detach removes the first observer whose username matches o's.
// Reports whether an observer was removed.
func (r *Registry) Detach(o Observer) bool {
	if o == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(o.Username())
	if i < 0 {
		return false
	}
	r.observers = append(r.observers[:i], r.observers[i+1:]...)
	return true
}

// Lookup returns the attached observer with the given username.
func (r *Registry) Lookup(username string) (Observer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexLocked(username)
	if i < 0 {
		return nil, false
	}
	return r.observers[i], true
}

// UID returns the id of the attached observer with the given username.
func (r *Registry) UID(username string) (int, bool) {
	o, ok := r.Lookup(username)
	if !ok {
		return 0, false
	}
	return o.UID(), true
}

// Snapshot returns a copy of the attached observers in registry order.
// Mutating the returned slice does not affect the registry.
func (r *Registry) Snapshot() []Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.observers) == 0 {
		return nil
	}
	out := make([]Observer, len(r.observers))
	copy(out, r.observers)
	return out
}

// Len returns the number of attached observers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}

func (r *Registry) indexLocked(username string) int {
	for i, o := range r.observers {
		if o.Username() == username {
			return i
		}
	}
	return -1
}
