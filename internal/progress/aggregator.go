// Package progress rolls completion percentages up the WBS. Only leaf
// tasks take direct progress writes; every ancestor carries the
// estimate-weighted average of its children.
package progress

import (
	"context"
	"fmt"
	"math"

	"github.com/mkowalczyk/gantry/internal/activity"
	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/repository"
)

// Aggregator recomputes parent progress from child progress.
type Aggregator struct {
	tasks    repository.TaskRepo
	uow      db.UnitOfWork
	clock    clock.Clock
	sink     activity.Sink
	maxDepth int
}

func NewAggregator(tasks repository.TaskRepo, uow db.UnitOfWork, clk clock.Clock, sink activity.Sink, maxDepth int) *Aggregator {
	if sink == nil {
		sink = activity.NoopSink{}
	}
	return &Aggregator{tasks: tasks, uow: uow, clock: clk, sink: sink, maxDepth: maxDepth}
}

// EnsureLeaf fails with ErrValidation when the task has non-deleted
// children, i.e. its progress is computed and cannot be set directly.
// It takes the repo explicitly so callers can pass a tx-scoped one.
func EnsureLeaf(ctx context.Context, tasks repository.TaskRepo, task *domain.Task) error {
	id := task.ID
	children, err := tasks.ListChildren(ctx, task.ProjectID, &id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("task %s has %d children, parent progress is computed: %w",
			task.ID, len(children), domain.ErrValidation)
	}
	return nil
}

func (a *Aggregator) EnsureLeaf(ctx context.Context, task *domain.Task) error {
	return EnsureLeaf(ctx, a.tasks, task)
}

// WeightedAverage computes the aggregate progress of a child set:
// each child weighs its estimate value (1 when absent), and the result
// rounds half up.
func WeightedAverage(children []*domain.Task) int {
	var weighted, total float64
	for _, c := range children {
		w := c.EstimateWeight()
		weighted += float64(c.Progress) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return int(math.Floor(weighted/total + 0.5))
}

type parentUpdate struct {
	task     *domain.Task
	previous int
}

// RecomputeParent recomputes parentID's progress from its non-deleted
// children and walks the chain upward until the root, all inside one
// transaction. A parent whose value does not change is not rewritten
// (and the walk above it stops, since nothing upstream can change
// either).
//
// A parent with no remaining children keeps its last computed value
// and 0 is returned; the caller decides whether that is meaningful.
func (a *Aggregator) RecomputeParent(ctx context.Context, parentID string, actor string) (int, error) {
	var updates []parentUpdate
	result := 0

	err := a.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		tasks := repository.NewSQLiteTaskRepo(tx)

		currentID := parentID
		for hop := 0; hop < a.maxDepth; hop++ {
			parent, err := tasks.GetByID(ctx, currentID)
			if err != nil {
				return err
			}
			if parent.IsDeleted() {
				return fmt.Errorf("task %s is deleted: %w", currentID, domain.ErrNotFound)
			}

			id := parent.ID
			children, err := tasks.ListChildren(ctx, parent.ProjectID, &id)
			if err != nil {
				return err
			}
			if len(children) == 0 {
				// Lost its last child: freeze the stored value.
				return nil
			}

			aggregate := WeightedAverage(children)
			if hop == 0 {
				result = aggregate
			}
			if aggregate == parent.Progress {
				return nil
			}

			previous := parent.Progress
			parent.Progress = aggregate
			parent.UpdatedAt = a.clock.Now()
			if _, err := tasks.UpdateWithVersionCheck(ctx, parent, parent.Version); err != nil {
				return err
			}
			updates = append(updates, parentUpdate{task: parent, previous: previous})

			if parent.ParentTaskID == nil {
				return nil
			}
			currentID = *parent.ParentTaskID
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, u := range updates {
		a.sink.Record(ctx, domain.ActivityEvent{
			ProjectID:  u.task.ProjectID,
			EntityType: "task",
			EntityID:   u.task.ID,
			Action:     "progress_recomputed",
			Actor:      actor,
			Before:     map[string]any{"progress": u.previous},
			After:      map[string]any{"progress": u.task.Progress},
			Timestamp:  a.clock.Now(),
		})
	}
	return result, nil
}

// RecomputeForLeaves rolls up after a batch of leaf updates: the set of
// distinct affected parents is computed first and each is recomputed
// once, so a parent with many touched children is aggregated a single
// time.
func (a *Aggregator) RecomputeForLeaves(ctx context.Context, leafIDs []string, actor string) error {
	seen := make(map[string]bool)
	var parents []string
	for _, id := range leafIDs {
		task, err := a.tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if task.ParentTaskID == nil || seen[*task.ParentTaskID] {
			continue
		}
		seen[*task.ParentTaskID] = true
		parents = append(parents, *task.ParentTaskID)
	}
	for _, parentID := range parents {
		if _, err := a.RecomputeParent(ctx, parentID, actor); err != nil {
			return err
		}
	}
	return nil
}
