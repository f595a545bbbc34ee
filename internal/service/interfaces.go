package service

import (
	"context"
	"time"

	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/hierarchy"
	"github.com/mkowalczyk/gantry/internal/importer"
	"github.com/mkowalczyk/gantry/internal/schedule"
)

type ProjectService interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Delete(ctx context.Context, id string) error
}

// TaskPatch names the writable task fields; nil pointers leave a field
// unchanged. Progress is deliberately absent: it goes through
// SetProgress, which enforces the leaf rule.
type TaskPatch struct {
	Title         *string
	Status        *domain.TaskStatus
	EstimateValue *float64
	EstimateUnit  *domain.EstimateUnit
	StartDate     **time.Time
	DueDate       **time.Time
}

// BatchMode selects failure semantics for multi-item operations.
type BatchMode string

const (
	// BatchNonAtomic attempts every item independently and collects
	// per-item failures.
	BatchNonAtomic BatchMode = "non_atomic"
	// BatchAtomic applies all items in one transaction; any failure
	// rolls back the whole batch.
	BatchAtomic BatchMode = "atomic"
)

// BatchItemError reports one failed item of a batch.
type BatchItemError struct {
	TaskID string
	Err    error
}

// BatchResult summarizes a batch operation.
type BatchResult struct {
	SuccessCount int
	ErrorCount   int
	Errors       []BatchItemError
}

// ProgressItem is one leaf progress write in a batch.
type ProgressItem struct {
	TaskID   string
	Progress int
	Token    string
}

// UpdateItem is one field update in a batch.
type UpdateItem struct {
	TaskID string
	Token  string
	Patch  TaskPatch
}

// TaskService is the concurrency controller in front of every task
// mutation: each single-record write takes an expected-version token,
// and structural mutations additionally serialize per project.
type TaskService interface {
	Create(ctx context.Context, projectID string, parentTaskID *string, title string, actor string) (*domain.Task, error)
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)
	ListChildren(ctx context.Context, projectID string, parentTaskID *string) ([]*domain.Task, error)

	Update(ctx context.Context, taskID string, patch TaskPatch, token string, actor string) (*domain.Task, error)
	SetProgress(ctx context.Context, taskID string, pct int, token string, actor string) (*domain.Task, error)
	Delete(ctx context.Context, taskID string, token string, actor string) error

	Reparent(ctx context.Context, taskID string, newParentID *string, token string, actor string) (*hierarchy.ReparentResult, error)
	ReorderSiblings(ctx context.Context, pairs []hierarchy.OrderPair, actor string) (int, error)

	BatchSetProgress(ctx context.Context, items []ProgressItem, mode BatchMode, actor string) (*BatchResult, error)
	BatchUpdate(ctx context.Context, items []UpdateItem, mode BatchMode, actor string) (*BatchResult, error)
}

type DependencyService interface {
	Create(ctx context.Context, projectID, predecessorID, successorID string, depType domain.DependencyType, lag float64, lagUnit domain.LagUnit, actor string) (*domain.Dependency, error)
	Delete(ctx context.Context, projectID, predecessorID, successorID string, actor string) error
	ListForProject(ctx context.Context, projectID string) ([]domain.Dependency, error)
}

// ScheduleService computes and caches the project critical path.
type ScheduleService interface {
	Get(ctx context.Context, projectID string) (*schedule.Result, error)
	Invalidate(projectID string)
}

// ImportResult summarizes a completed project import.
type ImportResult struct {
	Project         *domain.Project
	TaskCount       int
	DependencyCount int
}

// ImportService loads a whole project from a YAML file.
type ImportService interface {
	ImportProject(ctx context.Context, filePath string) (*ImportResult, error)
	ImportProjectFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error)
}
