package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/progress"
	"github.com/mkowalczyk/gantry/internal/repository"
)

// BatchSetProgress writes progress on many leaves. Non-atomic mode
// attempts every item and reports per-item failures; atomic mode
// applies all items in one transaction and rolls everything back on
// the first failure. Parent roll-up happens once per distinct parent
// after the writes.
func (s *taskService) BatchSetProgress(ctx context.Context, items []ProgressItem, mode BatchMode, actor string) (*BatchResult, error) {
	result, err := s.batchSetProgress(ctx, items, mode, actor)
	s.observe(ctx, "task_batch_set_progress", err, map[string]any{"items": len(items), "mode": string(mode)})
	return result, err
}

func (s *taskService) batchSetProgress(ctx context.Context, items []ProgressItem, mode BatchMode, actor string) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty batch: %w", domain.ErrValidation)
	}

	switch mode {
	case BatchNonAtomic:
		result := &BatchResult{}
		var succeeded []string
		for _, item := range items {
			if _, _, err := s.setProgress(ctx, item.TaskID, item.Progress, item.Token); err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, BatchItemError{TaskID: item.TaskID, Err: err})
				continue
			}
			result.SuccessCount++
			succeeded = append(succeeded, item.TaskID)
		}
		if err := s.agg.RecomputeForLeaves(ctx, succeeded, actor); err != nil {
			return nil, err
		}
		return result, nil

	case BatchAtomic:
		err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			tasks := repository.NewSQLiteTaskRepo(tx)
			now := s.clock.Now()
			for _, item := range items {
				if err := applyProgressItem(ctx, tasks, item, now); err != nil {
					return fmt.Errorf("task %s: %w", item.TaskID, err)
				}
			}
			return nil
		})
		if err != nil {
			return &BatchResult{
				ErrorCount: len(items),
				Errors:     []BatchItemError{{Err: err}},
			}, nil
		}
		ids := make([]string, len(items))
		for i, item := range items {
			ids[i] = item.TaskID
		}
		if err := s.agg.RecomputeForLeaves(ctx, ids, actor); err != nil {
			return nil, err
		}
		return &BatchResult{SuccessCount: len(items)}, nil

	default:
		return nil, fmt.Errorf("unknown batch mode %q: %w", mode, domain.ErrValidation)
	}
}

func applyProgressItem(ctx context.Context, tasks repository.TaskRepo, item ProgressItem, now time.Time) error {
	expectedVersion, err := domain.ParseVersionToken(item.Token)
	if err != nil {
		return err
	}
	if item.Progress < 0 || item.Progress > 100 {
		return fmt.Errorf("progress %d out of range [0,100]: %w", item.Progress, domain.ErrValidation)
	}

	task, err := tasks.GetByID(ctx, item.TaskID)
	if err != nil {
		return err
	}
	if task.IsDeleted() {
		return fmt.Errorf("task is deleted: %w", domain.ErrNotFound)
	}
	if err := progress.EnsureLeaf(ctx, tasks, task); err != nil {
		return err
	}

	task.Progress = item.Progress
	task.UpdatedAt = now
	_, err = tasks.UpdateWithVersionCheck(ctx, task, expectedVersion)
	return err
}

// BatchUpdate applies field patches to many tasks under the same
// atomic/non-atomic semantics as BatchSetProgress.
func (s *taskService) BatchUpdate(ctx context.Context, items []UpdateItem, mode BatchMode, actor string) (*BatchResult, error) {
	result, err := s.batchUpdate(ctx, items, mode, actor)
	s.observe(ctx, "task_batch_update", err, map[string]any{"items": len(items), "mode": string(mode)})
	return result, err
}

func (s *taskService) batchUpdate(ctx context.Context, items []UpdateItem, mode BatchMode, actor string) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty batch: %w", domain.ErrValidation)
	}

	switch mode {
	case BatchNonAtomic:
		result := &BatchResult{}
		for _, item := range items {
			if _, err := s.Update(ctx, item.TaskID, item.Patch, item.Token, actor); err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, BatchItemError{TaskID: item.TaskID, Err: err})
				continue
			}
			result.SuccessCount++
		}
		return result, nil

	case BatchAtomic:
		var projectID string
		err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			tasks := repository.NewSQLiteTaskRepo(tx)
			now := s.clock.Now()
			for _, item := range items {
				expectedVersion, err := domain.ParseVersionToken(item.Token)
				if err != nil {
					return fmt.Errorf("task %s: %w", item.TaskID, err)
				}
				task, err := tasks.GetByID(ctx, item.TaskID)
				if err != nil {
					return fmt.Errorf("task %s: %w", item.TaskID, err)
				}
				if task.IsDeleted() {
					return fmt.Errorf("task %s is deleted: %w", item.TaskID, domain.ErrNotFound)
				}
				if err := applyPatch(task, item.Patch); err != nil {
					return fmt.Errorf("task %s: %w", item.TaskID, err)
				}
				task.UpdatedAt = now
				if _, err := tasks.UpdateWithVersionCheck(ctx, task, expectedVersion); err != nil {
					return fmt.Errorf("task %s: %w", item.TaskID, err)
				}
				projectID = task.ProjectID
			}
			return nil
		})
		if err != nil {
			return &BatchResult{
				ErrorCount: len(items),
				Errors:     []BatchItemError{{Err: err}},
			}, nil
		}
		if projectID != "" {
			s.invalidateSchedule(projectID)
		}
		return &BatchResult{SuccessCount: len(items)}, nil

	default:
		return nil, fmt.Errorf("unknown batch mode %q: %w", mode, domain.ErrValidation)
	}
}
