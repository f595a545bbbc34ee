package service

import (
	"context"
	"fmt"

	"github.com/mkowalczyk/gantry/internal/activity"
	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/depgraph"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/importer"
	"github.com/mkowalczyk/gantry/internal/repository"
)

type importService struct {
	uow      db.UnitOfWork
	clock    clock.Clock
	sink     activity.Sink
	maxDepth int
}

func NewImportService(uow db.UnitOfWork, clk clock.Clock, sink activity.Sink, maxDepth int) ImportService {
	if sink == nil {
		sink = activity.NoopSink{}
	}
	return &importService{uow: uow, clock: clk, sink: sink, maxDepth: maxDepth}
}

func (s *importService) ImportProject(ctx context.Context, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadImportSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading import file: %w", err)
	}
	return s.ImportProjectFromSchema(ctx, schema)
}

// ImportProjectFromSchema validates, converts, and persists a whole
// project in one transaction. Any failure rolls back everything.
func (s *importService) ImportProjectFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error) {
	if errs := importer.ValidateImportSchema(schema, s.maxDepth); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}

	generated, err := importer.Convert(schema, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("converting import schema: %w", err)
	}

	if depgraph.HasCycle(generated.Dependencies) {
		return nil, fmt.Errorf("imported dependencies contain a cycle: %w", domain.ErrCycle)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		projects := repository.NewSQLiteProjectRepo(tx)
		tasks := repository.NewSQLiteTaskRepo(tx)
		deps := repository.NewSQLiteDependencyRepo(tx)

		if err := projects.Create(ctx, generated.Project); err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		for _, t := range generated.Tasks {
			if err := tasks.Create(ctx, t); err != nil {
				return fmt.Errorf("creating task %q: %w", t.Title, err)
			}
		}
		for i := range generated.Dependencies {
			if err := deps.Create(ctx, &generated.Dependencies[i]); err != nil {
				return fmt.Errorf("creating dependency: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Record(ctx, domain.ActivityEvent{
		ProjectID:  generated.Project.ID,
		EntityType: "project",
		EntityID:   generated.Project.ID,
		Action:     "import",
		After:      generated.Project,
		Metadata: map[string]any{
			"tasks":        len(generated.Tasks),
			"dependencies": len(generated.Dependencies),
		},
		Timestamp: s.clock.Now(),
	})

	return &ImportResult{
		Project:         generated.Project,
		TaskCount:       len(generated.Tasks),
		DependencyCount: len(generated.Dependencies),
	}, nil
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s: %w", msg, domain.ErrValidation)
}
