package hierarchy

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
	ctx      context.Context
	tasks    *repository.SQLiteTaskRepo
	projects *repository.SQLiteProjectRepo
	manager  *Manager
	project  *domain.Project
}

func newFixture(t *testing.T, maxDepth int) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	projects := repository.NewSQLiteProjectRepo(database)
	tasks := repository.NewSQLiteTaskRepo(database)
	uow := testutil.NewTestUoW(database)
	ctx := context.Background()

	proj := testutil.NewTestProject("Hierarchy")
	require.NoError(t, projects.Create(ctx, proj))

	return &fixture{
		ctx:      ctx,
		tasks:    tasks,
		projects: projects,
		manager:  NewManager(tasks, uow, clock.System{}, nil, maxDepth),
		project:  proj,
	}
}

func (f *fixture) addTask(t *testing.T, title string, opts ...testutil.TaskOption) *domain.Task {
	t.Helper()
	task := testutil.NewTestTask(f.project.ID, title, opts...)
	require.NoError(t, f.tasks.Create(f.ctx, task))
	return task
}

// addChain creates a parent chain of the given length and returns it
// root first.
func (f *fixture) addChain(t *testing.T, length int) []*domain.Task {
	t.Helper()
	chain := make([]*domain.Task, 0, length)
	var parent *domain.Task
	for i := 0; i < length; i++ {
		var opts []testutil.TaskOption
		if parent != nil {
			opts = append(opts, testutil.WithParent(parent.ID))
		}
		parent = f.addTask(t, "Chain", opts...)
		chain = append(chain, parent)
	}
	return chain
}

func TestLevelOf(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	chain := f.addChain(t, 3)

	for want, task := range chain {
		level, err := f.manager.LevelOf(f.ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, want, level)
	}
}

func TestIsDescendant(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	chain := f.addChain(t, 3)
	other := f.addTask(t, "Unrelated")

	got, err := f.manager.IsDescendant(f.ctx, chain[2].ID, chain[0].ID)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = f.manager.IsDescendant(f.ctx, chain[0].ID, chain[2].ID)
	require.NoError(t, err)
	assert.False(t, got)

	// A task is never its own descendant.
	got, err = f.manager.IsDescendant(f.ctx, chain[0].ID, chain[0].ID)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = f.manager.IsDescendant(f.ctx, other.ID, chain[0].ID)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestDeepestChildDepth(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	chain := f.addChain(t, 3)
	leaf := f.addTask(t, "Leaf")

	depth, err := f.manager.DeepestChildDepth(f.ctx, chain[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	depth, err = f.manager.DeepestChildDepth(f.ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestReparent_MovesAndAssignsOrderIndex(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	a := f.addTask(t, "A")
	b := f.addTask(t, "B", testutil.WithOrderIndex(1))
	existing := f.addTask(t, "Existing child", testutil.WithParent(a.ID))
	_ = existing

	result, err := f.manager.Reparent(f.ctx, b.ID, &a.ID, 1, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewLevel)
	assert.Equal(t, 1, result.OrderIndex)
	assert.Equal(t, 2, result.Version)

	moved, err := f.tasks.GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentTaskID)
	assert.Equal(t, a.ID, *moved.ParentTaskID)
}

func TestReparent_SelfIsCycle(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	a := f.addTask(t, "A")

	_, err := f.manager.Reparent(f.ctx, a.ID, &a.ID, 1, "tester")
	assert.ErrorIs(t, err, domain.ErrCycle)
}

func TestReparent_UnderOwnDescendantIsCycle(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	chain := f.addChain(t, 3)

	_, err := f.manager.Reparent(f.ctx, chain[0].ID, &chain[2].ID, 1, "tester")
	assert.ErrorIs(t, err, domain.ErrCycle)

	// The rejected move leaves the tree untouched.
	root, err := f.tasks.GetByID(f.ctx, chain[0].ID)
	require.NoError(t, err)
	assert.Nil(t, root.ParentTaskID)
	assert.Equal(t, 1, root.Version)
}

func TestReparent_DepthLimit(t *testing.T) {
	f := newFixture(t, 3)
	chain := f.addChain(t, 2) // levels 0 and 1
	subtree := f.addChain(t, 2)

	// Moving a 2-deep subtree under level 1 would need levels 2 and 3;
	// the limit is 3, so level 3 is out of range.
	_, err := f.manager.Reparent(f.ctx, subtree[0].ID, &chain[1].ID, 1, "tester")
	assert.ErrorIs(t, err, domain.ErrDepthExceeded)

	// A leaf fits at level 2.
	leaf := f.addTask(t, "Leaf")
	_, err = f.manager.Reparent(f.ctx, leaf.ID, &chain[1].ID, 1, "tester")
	assert.NoError(t, err)
}

func TestReparent_ToRoot(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	parent := f.addTask(t, "Parent")
	child := f.addTask(t, "Child", testutil.WithParent(parent.ID))

	result, err := f.manager.Reparent(f.ctx, child.ID, nil, 1, "tester")
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewLevel)
	// One root exists already, so the moved task lands after it.
	assert.Equal(t, 1, result.OrderIndex)
}

func TestReparent_CrossProjectParentNotFound(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	a := f.addTask(t, "A")

	otherProj := testutil.NewTestProject("Other")
	require.NoError(t, f.projects.Create(f.ctx, otherProj))
	foreign := testutil.NewTestTask(otherProj.ID, "Foreign")
	require.NoError(t, f.tasks.Create(f.ctx, foreign))

	_, err := f.manager.Reparent(f.ctx, a.ID, &foreign.ID, 1, "tester")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReorderSiblings_AtomicPermutation(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	x := f.addTask(t, "X", testutil.WithOrderIndex(0))
	y := f.addTask(t, "Y", testutil.WithOrderIndex(1))
	z := f.addTask(t, "Z", testutil.WithOrderIndex(2))

	updated, err := f.manager.ReorderSiblings(f.ctx, []OrderPair{
		{TaskID: x.ID, OrderIndex: 2},
		{TaskID: y.ID, OrderIndex: 0},
		{TaskID: z.ID, OrderIndex: 1},
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	roots, err := f.tasks.ListChildren(f.ctx, f.project.ID, nil)
	require.NoError(t, err)
	require.Len(t, roots, 3)
	assert.Equal(t, "Y", roots[0].Title)
	assert.Equal(t, "Z", roots[1].Title)
	assert.Equal(t, "X", roots[2].Title)
}

func TestReorderSiblings_RejectsNonSiblings(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	parent := f.addTask(t, "Parent")
	child := f.addTask(t, "Child", testutil.WithParent(parent.ID))
	root := f.addTask(t, "Root", testutil.WithOrderIndex(1))

	_, err := f.manager.ReorderSiblings(f.ctx, []OrderPair{
		{TaskID: child.ID, OrderIndex: 0},
		{TaskID: root.ID, OrderIndex: 1},
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Nothing committed.
	fetched, err := f.tasks.GetByID(f.ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.Version)
}

func TestReorderSiblings_ValidationErrors(t *testing.T) {
	f := newFixture(t, DefaultMaxDepth)
	x := f.addTask(t, "X")

	_, err := f.manager.ReorderSiblings(f.ctx, nil, "tester")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.manager.ReorderSiblings(f.ctx, []OrderPair{
		{TaskID: x.ID, OrderIndex: 0},
		{TaskID: x.ID, OrderIndex: 1},
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.manager.ReorderSiblings(f.ctx, []OrderPair{
		{TaskID: x.ID, OrderIndex: -1},
	}, "tester")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
