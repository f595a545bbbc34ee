package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkowalczyk/gantry/internal/domain"
)

func task(id string, days float64) *domain.Task {
	return &domain.Task{
		ID:            id,
		ProjectID:     "proj",
		Title:         id,
		EstimateValue: days,
		EstimateUnit:  domain.EstimateDays,
	}
}

func edge(pred, succ string, depType domain.DependencyType, lagDays float64) domain.Dependency {
	return domain.Dependency{
		ProjectID:     "proj",
		PredecessorID: pred,
		SuccessorID:   succ,
		Type:          depType,
		Lag:           lagDays,
		LagUnit:       domain.LagDays,
	}
}

func TestCompute_LinearChain(t *testing.T) {
	tasks := []*domain.Task{task("a", 2), task("b", 3), task("c", 1)}
	deps := []domain.Dependency{
		edge("a", "b", domain.FinishStart, 0),
		edge("b", "c", domain.FinishStart, 0),
	}

	result, err := Compute(tasks, deps)
	require.NoError(t, err)

	assert.InDelta(t, 0, result.Tasks["a"].EarliestStart, floatEpsilon)
	assert.InDelta(t, 2, result.Tasks["b"].EarliestStart, floatEpsilon)
	assert.InDelta(t, 5, result.Tasks["c"].EarliestStart, floatEpsilon)
	assert.InDelta(t, 6, result.ProjectLength, floatEpsilon)

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, result.Tasks[id].Critical, id)
		assert.InDelta(t, 0, result.Tasks[id].TotalFloat, floatEpsilon)
	}
	assert.Equal(t, []string{"a", "b", "c"}, result.CriticalPath)
}

func TestCompute_ParallelBranchGetsFloat(t *testing.T) {
	// a -> b(4) -> d and a -> c(1) -> d; the c branch has 3 days float.
	tasks := []*domain.Task{task("a", 1), task("b", 4), task("c", 1), task("d", 1)}
	deps := []domain.Dependency{
		edge("a", "b", domain.FinishStart, 0),
		edge("a", "c", domain.FinishStart, 0),
		edge("b", "d", domain.FinishStart, 0),
		edge("c", "d", domain.FinishStart, 0),
	}

	result, err := Compute(tasks, deps)
	require.NoError(t, err)

	assert.InDelta(t, 6, result.ProjectLength, floatEpsilon)
	assert.True(t, result.Tasks["b"].Critical)
	assert.False(t, result.Tasks["c"].Critical)
	assert.InDelta(t, 3, result.Tasks["c"].TotalFloat, floatEpsilon)
	assert.Equal(t, []string{"a", "b", "d"}, result.CriticalPath)
}

func TestCompute_FinishStartLagShiftsSuccessor(t *testing.T) {
	tasks := []*domain.Task{task("a", 2), task("b", 1)}
	deps := []domain.Dependency{edge("a", "b", domain.FinishStart, 3)}

	result, err := Compute(tasks, deps)
	require.NoError(t, err)
	assert.InDelta(t, 5, result.Tasks["b"].EarliestStart, floatEpsilon)
	assert.InDelta(t, 6, result.ProjectLength, floatEpsilon)
}

func TestCompute_StartStart(t *testing.T) {
	tasks := []*domain.Task{task("a", 4), task("b", 2)}
	deps := []domain.Dependency{edge("a", "b", domain.StartStart, 1)}

	result, err := Compute(tasks, deps)
	require.NoError(t, err)
	// b can start one day after a starts, not after a finishes.
	assert.InDelta(t, 1, result.Tasks["b"].EarliestStart, floatEpsilon)
	assert.InDelta(t, 4, result.ProjectLength, floatEpsilon)
}

func TestCompute_FinishFinish(t *testing.T) {
	tasks := []*domain.Task{task("a", 4), task("b", 1)}
	deps := []domain.Dependency{edge("a", "b", domain.FinishFinish, 0)}

	result, err := Compute(tasks, deps)
	require.NoError(t, err)
	// b must finish when a finishes: EF(b) = 4, so ES(b) = 3.
	assert.InDelta(t, 3, result.Tasks["b"].EarliestStart, floatEpsilon)
	assert.InDelta(t, 4, result.Tasks["b"].EarliestFinish, floatEpsilon)
}

func TestCompute_StartFinish(t *testing.T) {
	tasks := []*domain.Task{task("a", 2), task("b", 1)}
	deps := []domain.Dependency{edge("a", "b", domain.StartFinish, 3)}

	result, err := Compute(tasks, deps)
	require.NoError(t, err)
	// b must finish 3 days after a starts: EF(b) = 3, ES(b) = 2.
	assert.InDelta(t, 2, result.Tasks["b"].EarliestStart, floatEpsilon)
	assert.InDelta(t, 3, result.Tasks["b"].EarliestFinish, floatEpsilon)
}

func TestCompute_HourEstimatesConvertToDays(t *testing.T) {
	a := &domain.Task{ID: "a", ProjectID: "proj", EstimateValue: 8, EstimateUnit: domain.EstimateHours}
	b := &domain.Task{ID: "b", ProjectID: "proj", EstimateValue: 4, EstimateUnit: domain.EstimateHours}
	deps := []domain.Dependency{edge("a", "b", domain.FinishStart, 0)}

	result, err := Compute([]*domain.Task{a, b}, deps)
	require.NoError(t, err)
	assert.InDelta(t, 1, result.Tasks["a"].Duration, floatEpsilon)
	assert.InDelta(t, 1.5, result.ProjectLength, floatEpsilon)
}

func TestCompute_IgnoresDeletedTasksAndDanglingEdges(t *testing.T) {
	now := time.Now().UTC()
	gone := task("gone", 5)
	gone.DeletedAt = &now

	tasks := []*domain.Task{task("a", 1), gone}
	deps := []domain.Dependency{
		edge("a", "gone", domain.FinishStart, 0),
		edge("unknown", "a", domain.FinishStart, 0),
	}

	result, err := Compute(tasks, deps)
	require.NoError(t, err)
	assert.Len(t, result.Tasks, 1)
	assert.InDelta(t, 1, result.ProjectLength, floatEpsilon)
}

func TestCompute_CorruptCycleFails(t *testing.T) {
	tasks := []*domain.Task{task("a", 1), task("b", 1)}
	deps := []domain.Dependency{
		edge("a", "b", domain.FinishStart, 0),
		edge("b", "a", domain.FinishStart, 0),
	}

	_, err := Compute(tasks, deps)
	assert.ErrorIs(t, err, domain.ErrCycle)
}

func TestCompute_EmptyProject(t *testing.T) {
	result, err := Compute(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Order)
	assert.InDelta(t, 0, result.ProjectLength, floatEpsilon)
	assert.Empty(t, result.CriticalPath)
}

func TestCompute_DeterministicOrder(t *testing.T) {
	tasks := []*domain.Task{task("c", 1), task("a", 1), task("b", 1)}

	result, err := Compute(tasks, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result.Order)
}
