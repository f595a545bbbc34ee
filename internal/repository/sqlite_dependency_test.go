package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/testutil"
)

func seedDependencyFixture(t *testing.T) (context.Context, *SQLiteDependencyRepo, *domain.Project, *domain.Task, *domain.Task) {
	t.Helper()
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	deps := NewSQLiteDependencyRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Edges")
	require.NoError(t, projects.Create(ctx, proj))
	a := testutil.NewTestTask(proj.ID, "A")
	b := testutil.NewTestTask(proj.ID, "B")
	require.NoError(t, tasks.Create(ctx, a))
	require.NoError(t, tasks.Create(ctx, b))

	return ctx, deps, proj, a, b
}

func TestDependencyRepo_CreateAndFindByPair(t *testing.T) {
	ctx, deps, proj, a, b := seedDependencyFixture(t)

	dep := testutil.NewTestDependency(proj.ID, a.ID, b.ID,
		testutil.WithLag(2, domain.LagDays))
	require.NoError(t, deps.Create(ctx, dep))

	found, err := deps.FindByPair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, domain.FinishStart, found[0].Type)
	assert.Equal(t, 2.0, found[0].Lag)

	// The reversed pair is a different edge set.
	reversed, err := deps.FindByPair(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, reversed)
}

func TestDependencyRepo_DuplicateTupleConflicts(t *testing.T) {
	ctx, deps, proj, a, b := seedDependencyFixture(t)

	require.NoError(t, deps.Create(ctx, testutil.NewTestDependency(proj.ID, a.ID, b.ID)))

	err := deps.Create(ctx, testutil.NewTestDependency(proj.ID, a.ID, b.ID))
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Same pair, different type is a distinct edge.
	ss := testutil.NewTestDependency(proj.ID, a.ID, b.ID,
		testutil.WithDependencyType(domain.StartStart))
	require.NoError(t, deps.Create(ctx, ss))

	found, err := deps.FindByPair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestDependencyRepo_ListByProject(t *testing.T) {
	ctx, deps, proj, a, b := seedDependencyFixture(t)

	require.NoError(t, deps.Create(ctx, testutil.NewTestDependency(proj.ID, a.ID, b.ID)))

	list, err := deps.ListByProject(ctx, proj.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other, err := deps.ListByProject(ctx, "other-project")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDependencyRepo_Delete(t *testing.T) {
	ctx, deps, proj, a, b := seedDependencyFixture(t)

	dep := testutil.NewTestDependency(proj.ID, a.ID, b.ID)
	require.NoError(t, deps.Create(ctx, dep))
	require.NoError(t, deps.Delete(ctx, dep.ID))

	err := deps.Delete(ctx, dep.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
