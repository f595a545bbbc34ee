package domain

import "time"

// ActivityEvent records one committed mutation for the project audit
// trail. Before and After carry entity snapshots (or nil).
type ActivityEvent struct {
	ID         string
	ProjectID  string
	EntityType string
	EntityID   string
	Action     string
	Actor      string
	Before     any
	After      any
	Metadata   map[string]any
	Timestamp  time.Time
}
