package domain

import "time"

// Dependency is a typed finish/start precedence edge between two tasks
// of the same project. (ProjectID, PredecessorID, SuccessorID, Type) is
// unique; a task never depends on itself.
type Dependency struct {
	ID            string
	ProjectID     string
	PredecessorID string
	SuccessorID   string
	Type          DependencyType
	Lag           float64
	LagUnit       LagUnit
	CreatedAt     time.Time
}

// LagDays returns the edge's lag in fractional days. Lag may be
// negative (lead time).
func (d *Dependency) LagDays() float64 {
	if d.LagUnit == LagHours {
		return d.Lag / workdayHours
	}
	return d.Lag
}
