package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockRegistry_SerializesPerProject(t *testing.T) {
	reg := NewLockRegistry()

	const writers = 8
	const rounds = 200
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				unlock := reg.Lock("p1")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	// Unsynchronized increments would lose updates under the race
	// detector; the registry is the only thing guarding the counter.
	assert.Equal(t, writers*rounds, counter)
}

func TestLockRegistry_ProjectsAreIndependent(t *testing.T) {
	reg := NewLockRegistry()

	unlock := reg.Lock("p1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		u := reg.Lock("p2")
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("holding one project's lock blocked another project")
	}
}

func TestLockRegistry_SharedAcrossServices(t *testing.T) {
	reg := NewLockRegistry()

	// Both service constructors keep the injected registry instead of
	// building their own, so a task mutation and a dependency mutation
	// on the same project contend on one mutex.
	tasks := NewTaskService(nil, nil, nil, nil, nil, nil, nil, reg).(*taskService)
	deps := NewDependencyService(nil, nil, reg).(*dependencyService)

	assert.Same(t, reg, tasks.locks)
	assert.Same(t, reg, deps.locks)
}
