// Package hierarchy maintains the WBS containment graph: parent/child
// structure, depth limits, reparenting, and sibling ordering.
//
// Every traversal is iterative and carries an explicit hop ceiling, so
// no operation can loop forever even on a corrupted (cyclic) tree.
package hierarchy

import (
	"context"
	"fmt"

	"github.com/mkowalczyk/gantry/internal/activity"
	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/repository"
)

// DefaultMaxDepth is the hierarchy depth limit (root = level 0).
const DefaultMaxDepth = 5

// Manager validates and applies WBS structure mutations.
type Manager struct {
	tasks    repository.TaskRepo
	uow      db.UnitOfWork
	clock    clock.Clock
	sink     activity.Sink
	maxDepth int
}

func NewManager(tasks repository.TaskRepo, uow db.UnitOfWork, clk clock.Clock, sink activity.Sink, maxDepth int) *Manager {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	if sink == nil {
		sink = activity.NoopSink{}
	}
	return &Manager{tasks: tasks, uow: uow, clock: clk, sink: sink, maxDepth: maxDepth}
}

// MaxDepth returns the configured depth limit.
func (m *Manager) MaxDepth() int {
	return m.maxDepth
}

// NextOrderIndex returns one greater than the maximum order index among
// non-deleted siblings under parentTaskID, or 0 when there are none.
func (m *Manager) NextOrderIndex(ctx context.Context, projectID string, parentTaskID *string) (int, error) {
	return m.tasks.NextOrderIndex(ctx, projectID, parentTaskID)
}

// LevelOf walks the parent chain from taskID toward the root, counting
// hops. The walk stops at the root or after maxDepth hops.
func (m *Manager) LevelOf(ctx context.Context, taskID string) (int, error) {
	return levelOf(ctx, m.tasks, taskID, m.maxDepth)
}

// IsDescendant walks the parent chain from candidateID upward for at
// most maxDepth hops and reports whether ancestorID is encountered.
// A task is never its own descendant.
func (m *Manager) IsDescendant(ctx context.Context, candidateID, ancestorID string) (bool, error) {
	return isDescendant(ctx, m.tasks, candidateID, ancestorID, m.maxDepth)
}

// DeepestChildDepth returns the length of the longest child chain
// beneath taskID (0 when the task has no non-deleted children).
func (m *Manager) DeepestChildDepth(ctx context.Context, taskID string) (int, error) {
	task, err := m.tasks.GetByID(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return deepestChildDepth(ctx, m.tasks, task, m.maxDepth)
}

// ValidateReparent checks that moving taskID under newParentID (nil for
// root) closes no cycle and keeps every descendant within the depth
// limit. The task itself must exist and not be deleted.
func (m *Manager) ValidateReparent(ctx context.Context, taskID string, newParentID *string) error {
	task, err := m.activeTask(ctx, m.tasks, taskID)
	if err != nil {
		return err
	}
	return m.validateReparent(ctx, m.tasks, task, newParentID)
}

func (m *Manager) validateReparent(ctx context.Context, tasks repository.TaskRepo, task *domain.Task, newParentID *string) error {
	// Moving to root closes no cycle and the depth check is satisfied
	// when the subtree alone fits.
	if newParentID == nil {
		subtreeDepth, err := deepestChildDepth(ctx, tasks, task, m.maxDepth)
		if err != nil {
			return err
		}
		if subtreeDepth >= m.maxDepth {
			return fmt.Errorf("subtree of task %s is %d deep, limit %d: %w",
				task.ID, subtreeDepth, m.maxDepth, domain.ErrDepthExceeded)
		}
		return nil
	}

	if *newParentID == task.ID {
		return fmt.Errorf("task %s cannot be its own parent: %w", task.ID, domain.ErrCycle)
	}

	parent, err := m.activeTask(ctx, tasks, *newParentID)
	if err != nil {
		return err
	}
	if parent.ProjectID != task.ProjectID {
		return fmt.Errorf("parent %s belongs to a different project: %w", parent.ID, domain.ErrNotFound)
	}

	descendant, err := isDescendant(ctx, tasks, *newParentID, task.ID, m.maxDepth)
	if err != nil {
		return err
	}
	if descendant {
		return fmt.Errorf("task %s is an ancestor of %s: %w", task.ID, *newParentID, domain.ErrCycle)
	}

	parentLevel, err := levelOf(ctx, tasks, *newParentID, m.maxDepth)
	if err != nil {
		return err
	}
	subtreeDepth, err := deepestChildDepth(ctx, tasks, task, m.maxDepth)
	if err != nil {
		return err
	}
	if parentLevel+1+subtreeDepth >= m.maxDepth {
		return fmt.Errorf("reparent would place descendants at level %d, limit %d: %w",
			parentLevel+1+subtreeDepth, m.maxDepth, domain.ErrDepthExceeded)
	}
	return nil
}

// ReparentResult reports the outcome of a committed reparent.
type ReparentResult struct {
	TaskID     string
	NewLevel   int
	OrderIndex int
	Version    int
}

// Reparent atomically moves taskID under newParentID: it validates the
// move, assigns the next order index under the new parent, and bumps
// the task version under the expected-version check.
func (m *Manager) Reparent(ctx context.Context, taskID string, newParentID *string, expectedVersion int, actor string) (*ReparentResult, error) {
	var result ReparentResult
	var before, after *domain.Task

	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		tasks := repository.NewSQLiteTaskRepo(tx)

		task, err := m.activeTask(ctx, tasks, taskID)
		if err != nil {
			return err
		}
		snapshot := *task
		before = &snapshot

		if err := m.validateReparent(ctx, tasks, task, newParentID); err != nil {
			return err
		}

		orderIndex, err := tasks.NextOrderIndex(ctx, task.ProjectID, newParentID)
		if err != nil {
			return err
		}

		task.ParentTaskID = newParentID
		task.OrderIndex = orderIndex
		task.UpdatedAt = m.clock.Now()
		if _, err := tasks.UpdateWithVersionCheck(ctx, task, expectedVersion); err != nil {
			return err
		}

		newLevel, err := levelOf(ctx, tasks, taskID, m.maxDepth)
		if err != nil {
			return err
		}

		after = task
		result = ReparentResult{
			TaskID:     taskID,
			NewLevel:   newLevel,
			OrderIndex: orderIndex,
			Version:    task.Version,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  after.ProjectID,
		EntityType: "task",
		EntityID:   taskID,
		Action:     "reparent",
		Actor:      actor,
		Before:     before,
		After:      after,
		Timestamp:  m.clock.Now(),
	})
	return &result, nil
}

// OrderPair assigns a target order index to one sibling.
type OrderPair struct {
	TaskID     string
	OrderIndex int
}

// ReorderSiblings atomically applies the given order indexes. All tasks
// must be live siblings of the task named by the first pair; the whole
// batch commits or none of it does. Returns the number of updated
// tasks.
func (m *Manager) ReorderSiblings(ctx context.Context, pairs []OrderPair, actor string) (int, error) {
	if len(pairs) == 0 {
		return 0, fmt.Errorf("empty reorder batch: %w", domain.ErrValidation)
	}

	seenTask := make(map[string]bool, len(pairs))
	seenIndex := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		if p.OrderIndex < 0 {
			return 0, fmt.Errorf("order index %d is negative: %w", p.OrderIndex, domain.ErrValidation)
		}
		if seenTask[p.TaskID] {
			return 0, fmt.Errorf("task %s appears twice: %w", p.TaskID, domain.ErrValidation)
		}
		if seenIndex[p.OrderIndex] {
			return 0, fmt.Errorf("order index %d assigned twice: %w", p.OrderIndex, domain.ErrValidation)
		}
		seenTask[p.TaskID] = true
		seenIndex[p.OrderIndex] = true
	}

	var projectID string
	updated := 0

	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		tasks := repository.NewSQLiteTaskRepo(tx)

		first, err := m.activeTask(ctx, tasks, pairs[0].TaskID)
		if err != nil {
			return err
		}
		projectID = first.ProjectID
		now := m.clock.Now()

		for _, p := range pairs {
			task, err := m.activeTask(ctx, tasks, p.TaskID)
			if err != nil {
				return err
			}
			if task.ProjectID != first.ProjectID || !sameParent(task.ParentTaskID, first.ParentTaskID) {
				return fmt.Errorf("task %s is not a sibling of %s: %w",
					p.TaskID, first.ID, domain.ErrNotFound)
			}
			task.OrderIndex = p.OrderIndex
			task.UpdatedAt = now
			if _, err := tasks.UpdateWithVersionCheck(ctx, task, task.Version); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  projectID,
		EntityType: "task",
		EntityID:   pairs[0].TaskID,
		Action:     "reorder_siblings",
		Actor:      actor,
		After:      pairs,
		Metadata:   map[string]any{"count": updated},
		Timestamp:  m.clock.Now(),
	})
	return updated, nil
}

func (m *Manager) activeTask(ctx context.Context, tasks repository.TaskRepo, id string) (*domain.Task, error) {
	task, err := tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsDeleted() {
		return nil, fmt.Errorf("task %s is deleted: %w", id, domain.ErrNotFound)
	}
	return task, nil
}

func sameParent(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// levelOf counts hops from taskID to the root, stopping after maxDepth
// hops regardless of tree state.
func levelOf(ctx context.Context, tasks repository.TaskRepo, taskID string, maxDepth int) (int, error) {
	current, err := tasks.GetByID(ctx, taskID)
	if err != nil {
		return 0, err
	}
	level := 0
	for hops := 0; current.ParentTaskID != nil && hops < maxDepth; hops++ {
		current, err = tasks.GetByID(ctx, *current.ParentTaskID)
		if err != nil {
			return 0, err
		}
		level++
	}
	return level, nil
}

func isDescendant(ctx context.Context, tasks repository.TaskRepo, candidateID, ancestorID string, maxDepth int) (bool, error) {
	current, err := tasks.GetByID(ctx, candidateID)
	if err != nil {
		return false, err
	}
	for hops := 0; current.ParentTaskID != nil && hops < maxDepth; hops++ {
		if *current.ParentTaskID == ancestorID {
			return true, nil
		}
		current, err = tasks.GetByID(ctx, *current.ParentTaskID)
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

// deepestChildDepth finds the longest chain of non-deleted children
// beneath task using an explicit stack bounded by maxDepth levels.
func deepestChildDepth(ctx context.Context, tasks repository.TaskRepo, task *domain.Task, maxDepth int) (int, error) {
	type frame struct {
		id    string
		depth int
	}
	stack := []frame{{id: task.ID, depth: 0}}
	deepest := 0

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth > deepest {
			deepest = top.depth
		}
		if top.depth >= maxDepth {
			continue
		}

		id := top.id
		children, err := tasks.ListChildren(ctx, task.ProjectID, &id)
		if err != nil {
			return 0, err
		}
		for _, child := range children {
			stack = append(stack, frame{id: child.ID, depth: top.depth + 1})
		}
	}
	return deepest, nil
}
