package service

import (
	"context"

	"github.com/mkowalczyk/gantry/internal/depgraph"
	"github.com/mkowalczyk/gantry/internal/domain"
)

// dependencyService serializes edge mutations per project and keeps
// the schedule cache coherent with graph changes.
type dependencyService struct {
	graph *depgraph.Manager
	sched ScheduleService
	locks *LockRegistry
}

// NewDependencyService wires the graph manager behind the shared lock
// registry; pass the same registry the task service uses so structural
// mutations on one project serialize across both.
func NewDependencyService(graph *depgraph.Manager, sched ScheduleService, locks *LockRegistry) DependencyService {
	return &dependencyService{graph: graph, sched: sched, locks: lockRegistryOrNew(locks)}
}

func (s *dependencyService) Create(ctx context.Context, projectID, predecessorID, successorID string, depType domain.DependencyType, lag float64, lagUnit domain.LagUnit, actor string) (*domain.Dependency, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	dep, err := s.graph.Create(ctx, projectID, predecessorID, successorID, depType, lag, lagUnit, actor)
	if err != nil {
		return nil, err
	}
	if s.sched != nil {
		s.sched.Invalidate(projectID)
	}
	return dep, nil
}

func (s *dependencyService) Delete(ctx context.Context, projectID, predecessorID, successorID string, actor string) error {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	if err := s.graph.Delete(ctx, predecessorID, successorID, actor); err != nil {
		return err
	}
	if s.sched != nil {
		s.sched.Invalidate(projectID)
	}
	return nil
}

func (s *dependencyService) ListForProject(ctx context.Context, projectID string) ([]domain.Dependency, error) {
	return s.graph.ListForProject(ctx, projectID)
}
