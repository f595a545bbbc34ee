// Package depgraph maintains the precedence graph: typed finish/start
// dependency edges with lag, kept acyclic on every insertion.
package depgraph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkowalczyk/gantry/internal/activity"
	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/repository"
)

// Manager validates and applies dependency-graph mutations.
type Manager struct {
	deps  repository.DependencyRepo
	tasks repository.TaskRepo
	uow   db.UnitOfWork
	clock clock.Clock
	sink  activity.Sink
}

func NewManager(deps repository.DependencyRepo, tasks repository.TaskRepo, uow db.UnitOfWork, clk clock.Clock, sink activity.Sink) *Manager {
	if sink == nil {
		sink = activity.NoopSink{}
	}
	return &Manager{deps: deps, tasks: tasks, uow: uow, clock: clk, sink: sink}
}

// Create inserts a dependency edge after checking the full chain of
// structural rules: no self-dependency, both tasks live and in the
// project, no duplicate (predecessor, successor, type) tuple, and no
// cycle once the edge is added. The cycle check runs over the
// project's complete edge set plus the candidate.
func (m *Manager) Create(ctx context.Context, projectID, predecessorID, successorID string, depType domain.DependencyType, lag float64, lagUnit domain.LagUnit, actor string) (*domain.Dependency, error) {
	if predecessorID == successorID {
		return nil, fmt.Errorf("task %s cannot depend on itself: %w", predecessorID, domain.ErrValidation)
	}
	if !domain.ValidDependencyTypes[string(depType)] {
		return nil, fmt.Errorf("unknown dependency type %q: %w", depType, domain.ErrValidation)
	}
	if lagUnit == "" {
		lagUnit = domain.LagDays
	}

	candidate := domain.Dependency{
		ID:            uuid.New().String(),
		ProjectID:     projectID,
		PredecessorID: predecessorID,
		SuccessorID:   successorID,
		Type:          depType,
		Lag:           lag,
		LagUnit:       lagUnit,
		CreatedAt:     m.clock.Now(),
	}

	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		tasks := repository.NewSQLiteTaskRepo(tx)
		deps := repository.NewSQLiteDependencyRepo(tx)

		for _, id := range []string{predecessorID, successorID} {
			task, err := tasks.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if task.IsDeleted() {
				return fmt.Errorf("task %s is deleted: %w", id, domain.ErrNotFound)
			}
			if task.ProjectID != projectID {
				return fmt.Errorf("task %s belongs to a different project: %w", id, domain.ErrNotFound)
			}
		}

		existingPair, err := deps.FindByPair(ctx, predecessorID, successorID)
		if err != nil {
			return err
		}
		for _, d := range existingPair {
			if d.Type == depType {
				return fmt.Errorf("dependency %s->%s (%s) already exists: %w",
					predecessorID, successorID, depType, domain.ErrConflict)
			}
		}

		existing, err := deps.ListByProject(ctx, projectID)
		if err != nil {
			return err
		}
		if wouldCreateCycle(existing, candidate) {
			return fmt.Errorf("dependency %s->%s would close a cycle: %w",
				predecessorID, successorID, domain.ErrCycle)
		}

		return deps.Create(ctx, &candidate)
	})
	if err != nil {
		return nil, err
	}

	m.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  projectID,
		EntityType: "dependency",
		EntityID:   candidate.ID,
		Action:     "create",
		Actor:      actor,
		After:      &candidate,
		Timestamp:  m.clock.Now(),
	})
	return &candidate, nil
}

// Delete removes every edge (any type) between the pair. It fails with
// ErrNotFound when no edge exists.
func (m *Manager) Delete(ctx context.Context, predecessorID, successorID string, actor string) error {
	var removed []domain.Dependency

	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		deps := repository.NewSQLiteDependencyRepo(tx)

		found, err := deps.FindByPair(ctx, predecessorID, successorID)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("no dependency %s->%s: %w", predecessorID, successorID, domain.ErrNotFound)
		}
		for _, d := range found {
			if err := deps.Delete(ctx, d.ID); err != nil {
				return err
			}
		}
		removed = found
		return nil
	})
	if err != nil {
		return err
	}

	for _, d := range removed {
		dep := d
		m.sink.Record(ctx, domain.ActivityEvent{
			ProjectID:  dep.ProjectID,
			EntityType: "dependency",
			EntityID:   dep.ID,
			Action:     "delete",
			Actor:      actor,
			Before:     &dep,
			Timestamp:  m.clock.Now(),
		})
	}
	return nil
}

// ListForProject returns all edges of the project.
func (m *Manager) ListForProject(ctx context.Context, projectID string) ([]domain.Dependency, error) {
	return m.deps.ListByProject(ctx, projectID)
}
