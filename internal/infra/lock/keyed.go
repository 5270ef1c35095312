// Package lock provides mutexes keyed by an identifier.
package lock

import "sync"

// Keyed hands out one mutex per key. Entries are reference counted and dropped
// once nobody holds or waits for them, so the table only grows with the number
// of keys in use right now.
type Keyed[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed returns an empty lock table.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{entries: make(map[K]*entry)}
}

// Lock blocks until key is held and returns the matching unlock function.
// Calling unlock more than once is a no-op.
func (l *Keyed[K]) Lock(key K) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once

	return func() {
		once.Do(func() {
			e.mu.Unlock()

			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
}

// Len reports how many keys are held or waited for.
func (l *Keyed[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
