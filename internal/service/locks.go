package service

import "sync"

// LockRegistry serializes structural mutations (reparent, reorder,
// dependency create/delete, soft delete) per project, closing the
// check-then-act race where two concurrent mutations each validate
// against a pre-write snapshot. Services mutating the same projects
// must share one registry, or their mutations only contend on SQLite's
// busy handler instead of a single exclusion scope.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the project's mutex and returns its release func.
func (l *LockRegistry) Lock(projectID string) func() {
	l.mu.Lock()
	m, ok := l.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[projectID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func lockRegistryOrNew(l *LockRegistry) *LockRegistry {
	if l == nil {
		return NewLockRegistry()
	}
	return l
}
