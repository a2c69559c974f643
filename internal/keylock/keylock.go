// Package keylock provides mutual exclusion keyed by chat or user identity.
package keylock

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Map hands out one mutex per key. Mutexes are created on first use and kept
// for the lifetime of the process; the key space is bounded by registered chats.
type Map[K comparable] struct {
	locks *xsync.MapOf[K, *sync.Mutex]
}

func New[K comparable]() *Map[K] {
	return &Map[K]{locks: xsync.NewMapOf[K, *sync.Mutex]()}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (m *Map[K]) Lock(key K) (unlock func()) {
	mu, _ := m.locks.LoadOrCompute(key, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}
