package keymutex

import "sync"

// KeyMutex serializes work per string key. Raid and chat mutations are
// single-writer per key; different keys proceed concurrently.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *KeyMutex {
	return &KeyMutex{locks: map[string]*sync.Mutex{}}
}

// Lock acquires the mutex for key and returns its unlock func.
func (m *KeyMutex) Lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
