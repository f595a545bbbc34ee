package service

import (
	"context"
	"sync"

	"github.com/mkowalczyk/gantry/internal/repository"
	"github.com/mkowalczyk/gantry/internal/schedule"
)

// scheduleService caches computed schedules per project. Every task or
// dependency mutation that can move the schedule calls Invalidate, so
// a cached result is always coherent with the stored graph.
type scheduleService struct {
	tasks repository.TaskRepo
	deps  repository.DependencyRepo

	mu    sync.RWMutex
	cache map[string]*schedule.Result
}

func NewScheduleService(tasks repository.TaskRepo, deps repository.DependencyRepo) ScheduleService {
	return &scheduleService{
		tasks: tasks,
		deps:  deps,
		cache: make(map[string]*schedule.Result),
	}
}

func (s *scheduleService) Get(ctx context.Context, projectID string) (*schedule.Result, error) {
	s.mu.RLock()
	cached := s.cache[projectID]
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	deps, err := s.deps.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	result, err := schedule.Compute(tasks, deps)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[projectID] = result
	s.mu.Unlock()
	return result, nil
}

func (s *scheduleService) Invalidate(projectID string) {
	s.mu.Lock()
	delete(s.cache, projectID)
	s.mu.Unlock()
}
