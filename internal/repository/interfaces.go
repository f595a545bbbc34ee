package repository

import (
	"context"
	"time"

	"github.com/mkowalczyk/gantry/internal/domain"
)

// TaskFilter is a typed query filter for task listings. The zero value
// matches all non-deleted tasks of a project.
type TaskFilter struct {
	ProjectID string

	// ParentTaskID restricts to direct children of the given parent
	// when set. RootsOnly restricts to tasks without a parent; the two
	// are mutually exclusive.
	ParentTaskID *string
	RootsOnly    bool

	Status         *domain.TaskStatus
	IncludeDeleted bool
}

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
}

type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, f TaskFilter) ([]*domain.Task, error)
	// ListChildren returns the non-deleted direct children of
	// parentTaskID (nil for root tasks), ordered by order_index.
	ListChildren(ctx context.Context, projectID string, parentTaskID *string) ([]*domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error)
	// NextOrderIndex returns one greater than the maximum order_index
	// among non-deleted siblings, or 0 when there are none.
	NextOrderIndex(ctx context.Context, projectID string, parentTaskID *string) (int, error)
	// UpdateWithVersionCheck writes t only if the stored version equals
	// expectedVersion, bumping it by 1. Returns the new version, or
	// domain.ErrConflict / domain.ErrNotFound.
	UpdateWithVersionCheck(ctx context.Context, t *domain.Task, expectedVersion int) (int, error)
	// SoftDelete marks the task deleted under the same version check.
	SoftDelete(ctx context.Context, id string, expectedVersion int, at time.Time) error
}

type DependencyRepo interface {
	Create(ctx context.Context, d *domain.Dependency) error
	Delete(ctx context.Context, id string) error
	// FindByPair returns all edges (any type) between the two tasks.
	FindByPair(ctx context.Context, predecessorID, successorID string) ([]domain.Dependency, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Dependency, error)
}

type ActivityRepo interface {
	Record(ctx context.Context, e *domain.ActivityEvent) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error)
}
