package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/hierarchy"
	"github.com/mkowalczyk/gantry/internal/importer"
	"github.com/mkowalczyk/gantry/internal/repository"
	"github.com/mkowalczyk/gantry/internal/testutil"
)

type importFixture struct {
	ctx      context.Context
	projects *repository.SQLiteProjectRepo
	tasks    *repository.SQLiteTaskRepo
	deps     *repository.SQLiteDependencyRepo
	svc      ImportService
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	return &importFixture{
		ctx:      context.Background(),
		projects: repository.NewSQLiteProjectRepo(database),
		tasks:    repository.NewSQLiteTaskRepo(database),
		deps:     repository.NewSQLiteDependencyRepo(database),
		svc:      NewImportService(uow, clock.System{}, nil, hierarchy.DefaultMaxDepth),
	}
}

const importYAML = `
project:
  name: Relaunch
  start_date: 2026-09-01
tasks:
  - ref: plan
    title: Plan
    estimate: 8
  - ref: scope
    parent_ref: plan
    title: Scope
    progress: 25
  - ref: build
    title: Build
    estimate: 3
    estimate_unit: days
dependencies:
  - predecessor_ref: plan
    successor_ref: build
    lag: 1
`

func TestImportProject_FromFile(t *testing.T) {
	f := newImportFixture(t)

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(importYAML), 0o644))

	result, err := f.svc.ImportProject(f.ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Relaunch", result.Project.Name)
	assert.Equal(t, 3, result.TaskCount)
	assert.Equal(t, 1, result.DependencyCount)

	tasks, err := f.tasks.ListByProject(f.ctx, result.Project.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	// The parent persists with its child's aggregate.
	for _, task := range tasks {
		switch task.Title {
		case "Plan":
			assert.Equal(t, 25, task.Progress)
		case "Scope":
			assert.Equal(t, 25, task.Progress)
		}
	}

	edges, err := f.deps.ListByProject(f.ctx, result.Project.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestImportProject_FileMissing(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.ImportProject(f.ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestImportProjectFromSchema_ValidationFails(t *testing.T) {
	f := newImportFixture(t)

	schema, err := importer.ParseImportSchema([]byte(`
project:
  name: ""
  start_date: 2026-09-01
tasks:
  - ref: a
    title: A
`))
	require.NoError(t, err)

	_, err = f.svc.ImportProjectFromSchema(f.ctx, schema)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Nothing persisted.
	projects, err := f.projects.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestImportProjectFromSchema_CycleRejected(t *testing.T) {
	f := newImportFixture(t)

	schema, err := importer.ParseImportSchema([]byte(`
project:
  name: Cyclic
  start_date: 2026-09-01
tasks:
  - ref: a
    title: A
  - ref: b
    title: B
dependencies:
  - predecessor_ref: a
    successor_ref: b
  - predecessor_ref: b
    successor_ref: a
`))
	require.NoError(t, err)

	_, err = f.svc.ImportProjectFromSchema(f.ctx, schema)
	assert.ErrorIs(t, err, domain.ErrCycle)

	projects, err := f.projects.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}
