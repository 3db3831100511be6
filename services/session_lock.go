package services

import "sync"

// sessionLocks serializes turns of the same chat session inside this process.
// Entries are reference counted and dropped when no goroutine holds or
// waits for them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[uint]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[uint]*sessionLock)}
}

// Lock blocks until the session is free and returns its unlock function
func (l *sessionLocks) Lock(sessionID uint) func() {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, sessionID)
			}
			l.mu.Unlock()
		})
	}
}

// size reports how many sessions currently have a lock entry
func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
