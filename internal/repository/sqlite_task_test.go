package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/testutil"
)

func TestTaskRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Migration")
	require.NoError(t, projects.Create(ctx, proj))

	due := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	task := testutil.NewTestTask(proj.ID, "Write runbook",
		testutil.WithEstimate(8, domain.EstimateHours))
	task.DueDate = &due
	require.NoError(t, tasks.Create(ctx, task))

	fetched, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write runbook", fetched.Title)
	assert.Equal(t, domain.TaskTodo, fetched.Status)
	assert.Equal(t, 8.0, fetched.EstimateValue)
	assert.Equal(t, 1, fetched.Version)
	require.NotNil(t, fetched.DueDate)
	assert.Equal(t, "2026-09-30", fetched.DueDate.Format("2006-01-02"))
	assert.Nil(t, fetched.ParentTaskID)
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	tasks := NewSQLiteTaskRepo(db)

	_, err := tasks.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskRepo_ListChildren_OrdersByOrderIndex(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Ordering")
	require.NoError(t, projects.Create(ctx, proj))

	parent := testutil.NewTestTask(proj.ID, "Parent")
	require.NoError(t, tasks.Create(ctx, parent))

	c2 := testutil.NewTestTask(proj.ID, "Second", testutil.WithParent(parent.ID), testutil.WithOrderIndex(1))
	c1 := testutil.NewTestTask(proj.ID, "First", testutil.WithParent(parent.ID), testutil.WithOrderIndex(0))
	require.NoError(t, tasks.Create(ctx, c2))
	require.NoError(t, tasks.Create(ctx, c1))

	children, err := tasks.ListChildren(ctx, proj.ID, &parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "First", children[0].Title)
	assert.Equal(t, "Second", children[1].Title)

	roots, err := tasks.ListChildren(ctx, proj.ID, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, parent.ID, roots[0].ID)
}

func TestTaskRepo_List_ExcludesDeletedByDefault(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Deletion")
	require.NoError(t, projects.Create(ctx, proj))

	live := testutil.NewTestTask(proj.ID, "Live")
	gone := testutil.NewTestTask(proj.ID, "Gone", testutil.WithDeletedAt(time.Now().UTC()))
	require.NoError(t, tasks.Create(ctx, live))
	require.NoError(t, tasks.Create(ctx, gone))

	list, err := tasks.List(ctx, TaskFilter{ProjectID: proj.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Live", list[0].Title)

	all, err := tasks.List(ctx, TaskFilter{ProjectID: proj.ID, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskRepo_NextOrderIndex(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Indexes")
	require.NoError(t, projects.Create(ctx, proj))

	next, err := tasks.NextOrderIndex(ctx, proj.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	first := testutil.NewTestTask(proj.ID, "First", testutil.WithOrderIndex(0))
	require.NoError(t, tasks.Create(ctx, first))

	next, err = tasks.NextOrderIndex(ctx, proj.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	// Deleted siblings do not reserve positions.
	gone := testutil.NewTestTask(proj.ID, "Gone",
		testutil.WithOrderIndex(5), testutil.WithDeletedAt(time.Now().UTC()))
	require.NoError(t, tasks.Create(ctx, gone))

	next, err = tasks.NextOrderIndex(ctx, proj.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestTaskRepo_UpdateWithVersionCheck_BumpsVersion(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Versions")
	require.NoError(t, projects.Create(ctx, proj))
	task := testutil.NewTestTask(proj.ID, "Original")
	require.NoError(t, tasks.Create(ctx, task))

	task.Title = "Renamed"
	task.UpdatedAt = time.Now().UTC()
	newVersion, err := tasks.UpdateWithVersionCheck(ctx, task, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, newVersion)

	fetched, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fetched.Title)
	assert.Equal(t, 2, fetched.Version)
}

func TestTaskRepo_UpdateWithVersionCheck_StaleVersionConflicts(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Conflicts")
	require.NoError(t, projects.Create(ctx, proj))
	task := testutil.NewTestTask(proj.ID, "Contended")
	require.NoError(t, tasks.Create(ctx, task))

	task.Title = "Winner"
	_, err := tasks.UpdateWithVersionCheck(ctx, task, 1)
	require.NoError(t, err)

	// Second writer still holds version 1.
	stale := *task
	stale.Title = "Loser"
	_, err = tasks.UpdateWithVersionCheck(ctx, &stale, 1)
	assert.ErrorIs(t, err, domain.ErrConflict)

	fetched, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Winner", fetched.Title)
}

func TestTaskRepo_UpdateWithVersionCheck_DeletedIsNotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("Tombstones")
	require.NoError(t, projects.Create(ctx, proj))
	task := testutil.NewTestTask(proj.ID, "Doomed")
	require.NoError(t, tasks.Create(ctx, task))

	require.NoError(t, tasks.SoftDelete(ctx, task.ID, 1, time.Now().UTC()))

	task.Title = "Too late"
	_, err := tasks.UpdateWithVersionCheck(ctx, task, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskRepo_SoftDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("SoftDelete")
	require.NoError(t, projects.Create(ctx, proj))
	task := testutil.NewTestTask(proj.ID, "Ephemeral")
	require.NoError(t, tasks.Create(ctx, task))

	require.NoError(t, tasks.SoftDelete(ctx, task.ID, 1, time.Now().UTC()))

	// Row survives but is excluded from live listings.
	fetched, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, fetched.IsDeleted())
	assert.Equal(t, 2, fetched.Version)

	list, err := tasks.ListByProject(ctx, proj.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Deleting again fails: the guarded UPDATE sees no live row.
	err = tasks.SoftDelete(ctx, task.ID, 2, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskRepo_SoftDelete_StaleVersionConflicts(t *testing.T) {
	db := testutil.NewTestDB(t)
	projects := NewSQLiteProjectRepo(db)
	tasks := NewSQLiteTaskRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("DeleteConflicts")
	require.NoError(t, projects.Create(ctx, proj))
	task := testutil.NewTestTask(proj.ID, "Contended")
	require.NoError(t, tasks.Create(ctx, task))

	task.Title = "Renamed"
	_, err := tasks.UpdateWithVersionCheck(ctx, task, 1)
	require.NoError(t, err)

	err = tasks.SoftDelete(ctx, task.ID, 1, time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrConflict)
}
