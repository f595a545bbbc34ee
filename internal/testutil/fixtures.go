package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/mkowalczyk/gantry/internal/domain"
)

// Project options

type ProjectOption func(*domain.Project)

func WithTargetDate(d time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.TargetDate = &d
	}
}

func WithStartDate(d time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.StartDate = d
	}
}

func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	now := time.Now().UTC()
	p := &domain.Project{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: now.AddDate(0, 0, -7),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Task options

type TaskOption func(*domain.Task)

func WithParent(id string) TaskOption {
	return func(t *domain.Task) {
		t.ParentTaskID = &id
	}
}

func WithEstimate(value float64, unit domain.EstimateUnit) TaskOption {
	return func(t *domain.Task) {
		t.EstimateValue = value
		t.EstimateUnit = unit
	}
}

func WithProgress(pct int) TaskOption {
	return func(t *domain.Task) {
		t.Progress = pct
	}
}

func WithStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
	}
}

func WithOrderIndex(i int) TaskOption {
	return func(t *domain.Task) {
		t.OrderIndex = i
	}
}

func WithDeletedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.DeletedAt = &at
	}
}

func NewTestTask(projectID, title string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	task := &domain.Task{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Title:        title,
		Status:       domain.TaskTodo,
		EstimateUnit: domain.EstimateHours,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, opt := range opts {
		opt(task)
	}
	return task
}

// Dependency options

type DependencyOption func(*domain.Dependency)

func WithDependencyType(dt domain.DependencyType) DependencyOption {
	return func(d *domain.Dependency) {
		d.Type = dt
	}
}

func WithLag(lag float64, unit domain.LagUnit) DependencyOption {
	return func(d *domain.Dependency) {
		d.Lag = lag
		d.LagUnit = unit
	}
}

func NewTestDependency(projectID, predecessorID, successorID string, opts ...DependencyOption) *domain.Dependency {
	d := &domain.Dependency{
		ID:            uuid.New().String(),
		ProjectID:     projectID,
		PredecessorID: predecessorID,
		SuccessorID:   successorID,
		Type:          domain.FinishStart,
		LagUnit:       domain.LagDays,
		CreatedAt:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}
