package lock

import "sync"

// KeyedLock hands out one advisory lock per string key. TryAcquire never
// blocks; a caller that loses the race is expected to skip its work, not
// queue behind the holder.
type KeyedLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		held: make(map[string]struct{}),
	}
}

// TryAcquire takes the lock for key if it is free and reports whether it did.
func (l *KeyedLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.held[key]; exists {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees the lock for key. Releasing a key that is not held is a no-op.
func (l *KeyedLock) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, key)
}
