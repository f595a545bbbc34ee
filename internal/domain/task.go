package domain

import "time"

// Task is a node in both project graphs: the WBS containment hierarchy
// (via ParentTaskID) and the precedence graph (via dependencies).
type Task struct {
	ID           string
	ProjectID    string
	ParentTaskID *string
	Title        string
	Status       TaskStatus

	EstimateValue float64
	EstimateUnit  EstimateUnit

	StartDate *time.Time
	DueDate   *time.Time

	// Progress is 0-100. Writable directly only on leaf tasks; parents
	// carry the weighted aggregate of their children.
	Progress int

	// OrderIndex totally orders siblings under the same parent.
	OrderIndex int

	// Version increases by exactly 1 on every successful write.
	Version int

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// workdayHours converts hour estimates to schedule days.
const workdayHours = 8.0

// IsDeleted reports whether the task is soft-deleted.
func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// DurationDays returns the task's schedule duration in fractional days,
// derived from its estimate. Tasks without an estimate take zero time.
func (t *Task) DurationDays() float64 {
	if t.EstimateValue <= 0 {
		return 0
	}
	if t.EstimateUnit == EstimateHours {
		return t.EstimateValue / workdayHours
	}
	return t.EstimateValue
}

// EstimateWeight is the task's weight in parent progress aggregation:
// its estimate value when present and nonzero, otherwise 1.
func (t *Task) EstimateWeight() float64 {
	if t.EstimateValue > 0 {
		return t.EstimateValue
	}
	return 1
}
