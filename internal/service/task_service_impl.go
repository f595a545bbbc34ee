package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkowalczyk/gantry/internal/activity"
	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/hierarchy"
	"github.com/mkowalczyk/gantry/internal/progress"
	"github.com/mkowalczyk/gantry/internal/repository"
)

type taskService struct {
	tasks    repository.TaskRepo
	uow      db.UnitOfWork
	clock    clock.Clock
	sink     activity.Sink
	hier     *hierarchy.Manager
	agg      *progress.Aggregator
	sched    ScheduleService
	locks    *LockRegistry
	observer UseCaseObserver
}

// NewTaskService builds the concurrency controller over the hierarchy
// manager and progress aggregator. sched may be nil when no schedule
// cache is wired; locks may be nil when no other service mutates the
// same projects.
func NewTaskService(tasks repository.TaskRepo, uow db.UnitOfWork, clk clock.Clock, sink activity.Sink,
	hier *hierarchy.Manager, agg *progress.Aggregator, sched ScheduleService, locks *LockRegistry,
	observers ...UseCaseObserver) TaskService {
	if sink == nil {
		sink = activity.NoopSink{}
	}
	return &taskService{
		tasks:    tasks,
		uow:      uow,
		clock:    clk,
		sink:     sink,
		hier:     hier,
		agg:      agg,
		sched:    sched,
		locks:    lockRegistryOrNew(locks),
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *taskService) observe(ctx context.Context, name string, err error, fields map[string]any) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
		StartedAt: s.clock.Now(),
	})
}

func (s *taskService) invalidateSchedule(projectID string) {
	if s.sched != nil {
		s.sched.Invalidate(projectID)
	}
}

func (s *taskService) Create(ctx context.Context, projectID string, parentTaskID *string, title string, actor string) (*domain.Task, error) {
	task, err := s.create(ctx, projectID, parentTaskID, title)
	s.observe(ctx, "task_create", err, map[string]any{"project_id": projectID})
	if err != nil {
		return nil, err
	}

	s.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  projectID,
		EntityType: "task",
		EntityID:   task.ID,
		Action:     "create",
		Actor:      actor,
		After:      task,
		Timestamp:  s.clock.Now(),
	})
	s.invalidateSchedule(projectID)

	// The parent's child set changed: a task that was a leaf until now
	// switches from its direct value to the children's aggregate.
	if parentTaskID != nil {
		if _, err := s.agg.RecomputeParent(ctx, *parentTaskID, actor); err != nil {
			return nil, err
		}
	}
	return task, nil
}

func (s *taskService) create(ctx context.Context, projectID string, parentTaskID *string, title string) (*domain.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("task title is required: %w", domain.ErrValidation)
	}

	unlock := s.locks.Lock(projectID)
	defer unlock()

	if parentTaskID != nil {
		parent, err := s.activeTask(ctx, *parentTaskID)
		if err != nil {
			return nil, err
		}
		if parent.ProjectID != projectID {
			return nil, fmt.Errorf("parent %s belongs to a different project: %w", parent.ID, domain.ErrNotFound)
		}
		parentLevel, err := s.hier.LevelOf(ctx, *parentTaskID)
		if err != nil {
			return nil, err
		}
		if parentLevel+1 >= s.hier.MaxDepth() {
			return nil, fmt.Errorf("new task would sit at level %d, limit %d: %w",
				parentLevel+1, s.hier.MaxDepth(), domain.ErrDepthExceeded)
		}
	}

	orderIndex, err := s.tasks.NextOrderIndex(ctx, projectID, parentTaskID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	task := &domain.Task{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		ParentTaskID: parentTaskID,
		Title:        title,
		Status:       domain.TaskTodo,
		EstimateUnit: domain.EstimateHours,
		OrderIndex:   orderIndex,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *taskService) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	return s.tasks.ListByProject(ctx, projectID)
}

func (s *taskService) ListChildren(ctx context.Context, projectID string, parentTaskID *string) ([]*domain.Task, error) {
	return s.tasks.ListChildren(ctx, projectID, parentTaskID)
}

func (s *taskService) Update(ctx context.Context, taskID string, patch TaskPatch, token string, actor string) (*domain.Task, error) {
	task, before, err := s.update(ctx, taskID, patch, token)
	s.observe(ctx, "task_update", err, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, err
	}

	s.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  task.ProjectID,
		EntityType: "task",
		EntityID:   task.ID,
		Action:     "update",
		Actor:      actor,
		Before:     before,
		After:      task,
		Timestamp:  s.clock.Now(),
	})
	if patch.EstimateValue != nil || patch.EstimateUnit != nil || patch.StartDate != nil || patch.DueDate != nil {
		s.invalidateSchedule(task.ProjectID)
	}
	return task, nil
}

func (s *taskService) update(ctx context.Context, taskID string, patch TaskPatch, token string) (*domain.Task, *domain.Task, error) {
	expectedVersion, err := domain.ParseVersionToken(token)
	if err != nil {
		return nil, nil, err
	}

	task, err := s.activeTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	snapshot := *task

	if err := applyPatch(task, patch); err != nil {
		return nil, nil, err
	}
	task.UpdatedAt = s.clock.Now()
	if _, err := s.tasks.UpdateWithVersionCheck(ctx, task, expectedVersion); err != nil {
		return nil, nil, err
	}
	return task, &snapshot, nil
}

func applyPatch(task *domain.Task, patch TaskPatch) error {
	if patch.Title != nil {
		if *patch.Title == "" {
			return fmt.Errorf("task title cannot be empty: %w", domain.ErrValidation)
		}
		task.Title = *patch.Title
	}
	if patch.Status != nil {
		if !domain.ValidTaskStatuses[string(*patch.Status)] {
			return fmt.Errorf("unknown status %q: %w", *patch.Status, domain.ErrValidation)
		}
		task.Status = *patch.Status
	}
	if patch.EstimateValue != nil {
		if *patch.EstimateValue < 0 {
			return fmt.Errorf("estimate cannot be negative: %w", domain.ErrValidation)
		}
		task.EstimateValue = *patch.EstimateValue
	}
	if patch.EstimateUnit != nil {
		task.EstimateUnit = *patch.EstimateUnit
	}
	if patch.StartDate != nil {
		task.StartDate = *patch.StartDate
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	return nil
}

func (s *taskService) SetProgress(ctx context.Context, taskID string, pct int, token string, actor string) (*domain.Task, error) {
	task, before, err := s.setProgress(ctx, taskID, pct, token)
	s.observe(ctx, "task_set_progress", err, map[string]any{"task_id": taskID, "progress": pct})
	if err != nil {
		return nil, err
	}

	s.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  task.ProjectID,
		EntityType: "task",
		EntityID:   task.ID,
		Action:     "progress_set",
		Actor:      actor,
		Before:     map[string]any{"progress": before},
		After:      map[string]any{"progress": task.Progress},
		Timestamp:  s.clock.Now(),
	})

	if task.ParentTaskID != nil {
		if _, err := s.agg.RecomputeParent(ctx, *task.ParentTaskID, actor); err != nil {
			return nil, err
		}
	}
	return task, nil
}

func (s *taskService) setProgress(ctx context.Context, taskID string, pct int, token string) (*domain.Task, int, error) {
	expectedVersion, err := domain.ParseVersionToken(token)
	if err != nil {
		return nil, 0, err
	}
	if pct < 0 || pct > 100 {
		return nil, 0, fmt.Errorf("progress %d out of range [0,100]: %w", pct, domain.ErrValidation)
	}

	task, err := s.activeTask(ctx, taskID)
	if err != nil {
		return nil, 0, err
	}
	if err := progress.EnsureLeaf(ctx, s.tasks, task); err != nil {
		return nil, 0, err
	}

	before := task.Progress
	task.Progress = pct
	task.UpdatedAt = s.clock.Now()
	if _, err := s.tasks.UpdateWithVersionCheck(ctx, task, expectedVersion); err != nil {
		return nil, 0, err
	}
	return task, before, nil
}

func (s *taskService) Delete(ctx context.Context, taskID string, token string, actor string) error {
	task, err := s.delete(ctx, taskID, token)
	s.observe(ctx, "task_delete", err, map[string]any{"task_id": taskID})
	if err != nil {
		return err
	}

	s.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  task.ProjectID,
		EntityType: "task",
		EntityID:   task.ID,
		Action:     "soft_delete",
		Actor:      actor,
		Before:     task,
		Timestamp:  s.clock.Now(),
	})
	s.invalidateSchedule(task.ProjectID)

	if task.ParentTaskID != nil {
		if _, err := s.agg.RecomputeParent(ctx, *task.ParentTaskID, actor); err != nil {
			return err
		}
	}
	return nil
}

func (s *taskService) delete(ctx context.Context, taskID string, token string) (*domain.Task, error) {
	expectedVersion, err := domain.ParseVersionToken(token)
	if err != nil {
		return nil, err
	}

	task, err := s.activeTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(task.ProjectID)
	defer unlock()

	id := task.ID
	children, err := s.tasks.ListChildren(ctx, task.ProjectID, &id)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		return nil, fmt.Errorf("task %s has %d children, delete them first: %w",
			taskID, len(children), domain.ErrValidation)
	}

	if err := s.tasks.SoftDelete(ctx, taskID, expectedVersion, s.clock.Now()); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Reparent(ctx context.Context, taskID string, newParentID *string, token string, actor string) (*hierarchy.ReparentResult, error) {
	result, oldParent, projectID, err := s.reparent(ctx, taskID, newParentID, token, actor)
	s.observe(ctx, "task_reparent", err, map[string]any{"task_id": taskID})
	if err != nil {
		return nil, err
	}

	s.invalidateSchedule(projectID)

	// Both the old and the new subtree roots aggregate a changed child
	// set now.
	if oldParent != nil {
		if _, err := s.agg.RecomputeParent(ctx, *oldParent, actor); err != nil {
			return nil, err
		}
	}
	if newParentID != nil {
		if _, err := s.agg.RecomputeParent(ctx, *newParentID, actor); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *taskService) reparent(ctx context.Context, taskID string, newParentID *string, token string, actor string) (*hierarchy.ReparentResult, *string, string, error) {
	expectedVersion, err := domain.ParseVersionToken(token)
	if err != nil {
		return nil, nil, "", err
	}

	task, err := s.activeTask(ctx, taskID)
	if err != nil {
		return nil, nil, "", err
	}
	oldParent := task.ParentTaskID

	unlock := s.locks.Lock(task.ProjectID)
	defer unlock()

	result, err := s.hier.Reparent(ctx, taskID, newParentID, expectedVersion, actor)
	if err != nil {
		return nil, nil, "", err
	}
	return result, oldParent, task.ProjectID, nil
}

func (s *taskService) ReorderSiblings(ctx context.Context, pairs []hierarchy.OrderPair, actor string) (int, error) {
	if len(pairs) == 0 {
		return 0, fmt.Errorf("empty reorder batch: %w", domain.ErrValidation)
	}

	first, err := s.activeTask(ctx, pairs[0].TaskID)
	if err != nil {
		s.observe(ctx, "task_reorder", err, nil)
		return 0, err
	}

	unlock := s.locks.Lock(first.ProjectID)
	defer unlock()

	updated, err := s.hier.ReorderSiblings(ctx, pairs, actor)
	s.observe(ctx, "task_reorder", err, map[string]any{"count": len(pairs)})
	return updated, err
}

func (s *taskService) activeTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsDeleted() {
		return nil, fmt.Errorf("task %s is deleted: %w", id, domain.ErrNotFound)
	}
	return task, nil
}
