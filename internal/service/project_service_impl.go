package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mkowalczyk/gantry/internal/activity"
	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/repository"
)

type projectService struct {
	projects repository.ProjectRepo
	clock    clock.Clock
	sink     activity.Sink
}

func NewProjectService(projects repository.ProjectRepo, clk clock.Clock, sink activity.Sink) ProjectService {
	if sink == nil {
		sink = activity.NoopSink{}
	}
	return &projectService{projects: projects, clock: clk, sink: sink}
}

func (s *projectService) Create(ctx context.Context, p *domain.Project) error {
	if p.Name == "" {
		return fmt.Errorf("project name is required: %w", domain.ErrValidation)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := s.clock.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.projects.Create(ctx, p); err != nil {
		return err
	}
	s.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  p.ID,
		EntityType: "project",
		EntityID:   p.ID,
		Action:     "create",
		Actor:      "",
		After:      p,
		Timestamp:  now,
	})
	return nil
}

func (s *projectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *projectService) List(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

func (s *projectService) Delete(ctx context.Context, id string) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  id,
		EntityType: "project",
		EntityID:   id,
		Action:     "delete",
		Timestamp:  s.clock.Now(),
	})
	return nil
}
