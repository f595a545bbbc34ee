package depgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalczyk/gantry/internal/clock"
	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/repository"
	"github.com/mkowalczyk/gantry/internal/testutil"
)

type fixture struct {
	ctx     context.Context
	tasks   *repository.SQLiteTaskRepo
	deps    *repository.SQLiteDependencyRepo
	manager *Manager
	project *domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	projects := repository.NewSQLiteProjectRepo(database)
	tasks := repository.NewSQLiteTaskRepo(database)
	deps := repository.NewSQLiteDependencyRepo(database)
	uow := testutil.NewTestUoW(database)
	ctx := context.Background()

	proj := testutil.NewTestProject("Graph")
	require.NoError(t, projects.Create(ctx, proj))

	return &fixture{
		ctx:     ctx,
		tasks:   tasks,
		deps:    deps,
		manager: NewManager(deps, tasks, uow, clock.System{}, nil),
		project: proj,
	}
}

func (f *fixture) addTask(t *testing.T, title string, opts ...testutil.TaskOption) *domain.Task {
	t.Helper()
	task := testutil.NewTestTask(f.project.ID, title, opts...)
	require.NoError(t, f.tasks.Create(f.ctx, task))
	return task
}

func TestCreate_InsertsEdge(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B")

	dep, err := f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.FinishStart, 2, domain.LagDays, "tester")
	require.NoError(t, err)
	assert.Equal(t, domain.FinishStart, dep.Type)
	assert.Equal(t, 2.0, dep.Lag)

	edges, err := f.manager.ListForProject(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestCreate_DefaultsLagUnitToDays(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B")

	dep, err := f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.StartStart, 0, "", "tester")
	require.NoError(t, err)
	assert.Equal(t, domain.LagDays, dep.LagUnit)
}

func TestCreate_SelfDependencyRejected(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")

	_, err := f.manager.Create(f.ctx, f.project.ID, a.ID, a.ID, domain.FinishStart, 0, domain.LagDays, "tester")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_UnknownTypeRejected(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B")

	_, err := f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, "XX", 0, domain.LagDays, "tester")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_DuplicateTupleConflicts(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B")

	_, err := f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.FinishStart, 0, domain.LagDays, "tester")
	require.NoError(t, err)

	_, err = f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.FinishStart, 1, domain.LagDays, "tester")
	assert.ErrorIs(t, err, domain.ErrConflict)

	// A different type between the same pair is allowed.
	_, err = f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.StartStart, 0, domain.LagDays, "tester")
	assert.NoError(t, err)
}

func TestCreate_CycleRejectedAndSetUnchanged(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B")
	c := f.addTask(t, "C")

	_, err := f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.FinishStart, 0, domain.LagDays, "tester")
	require.NoError(t, err)
	_, err = f.manager.Create(f.ctx, f.project.ID, b.ID, c.ID, domain.FinishStart, 0, domain.LagDays, "tester")
	require.NoError(t, err)

	_, err = f.manager.Create(f.ctx, f.project.ID, c.ID, a.ID, domain.FinishStart, 0, domain.LagDays, "tester")
	assert.ErrorIs(t, err, domain.ErrCycle)

	edges, err := f.manager.ListForProject(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestCreate_DeletedTaskNotFound(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B")

	require.NoError(t, f.tasks.SoftDelete(f.ctx, b.ID, 1, a.CreatedAt))

	_, err := f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.FinishStart, 0, domain.LagDays, "tester")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_RemovesAllTypesBetweenPair(t *testing.T) {
	f := newFixture(t)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B")

	_, err := f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.FinishStart, 0, domain.LagDays, "tester")
	require.NoError(t, err)
	_, err = f.manager.Create(f.ctx, f.project.ID, a.ID, b.ID, domain.StartStart, 0, domain.LagDays, "tester")
	require.NoError(t, err)

	require.NoError(t, f.manager.Delete(f.ctx, a.ID, b.ID, "tester"))

	edges, err := f.manager.ListForProject(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	err = f.manager.Delete(f.ctx, a.ID, b.ID, "tester")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWouldCreateCycle(t *testing.T) {
	edge := func(pred, succ string) domain.Dependency {
		return domain.Dependency{PredecessorID: pred, SuccessorID: succ}
	}

	existing := []domain.Dependency{edge("a", "b"), edge("b", "c")}

	assert.True(t, wouldCreateCycle(existing, edge("c", "a")))
	assert.False(t, wouldCreateCycle(existing, edge("a", "c")))
	assert.False(t, wouldCreateCycle(nil, edge("a", "b")))

	// Diamond shapes are fine; they share a node, not a cycle.
	diamond := []domain.Dependency{edge("a", "b"), edge("a", "c")}
	assert.False(t, wouldCreateCycle(diamond, edge("b", "d")))
}

func TestHasCycle(t *testing.T) {
	edge := func(pred, succ string) domain.Dependency {
		return domain.Dependency{PredecessorID: pred, SuccessorID: succ}
	}

	assert.False(t, HasCycle(nil))
	assert.False(t, HasCycle([]domain.Dependency{edge("a", "b"), edge("b", "c"), edge("a", "c")}))
	assert.True(t, HasCycle([]domain.Dependency{edge("a", "b"), edge("b", "c"), edge("c", "a")}))
	assert.True(t, HasCycle([]domain.Dependency{edge("a", "a")}))
}
