package domain

import "errors"

var (
	// ErrNotFound indicates a referenced task, project, or dependency
	// is missing or soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a request that can never succeed:
	// out-of-range progress, a self-dependency, an empty batch, or a
	// direct progress write on a non-leaf task.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a version mismatch or a duplicate
	// dependency tuple.
	ErrConflict = errors.New("conflict")

	// ErrCycle indicates the mutation would close a cycle in the
	// hierarchy or the dependency graph.
	ErrCycle = errors.New("cycle detected")

	// ErrDepthExceeded indicates the hierarchy would exceed the
	// configured maximum depth.
	ErrDepthExceeded = errors.New("hierarchy depth exceeded")

	// ErrPreconditionRequired indicates a mutation arrived without the
	// expected-version token it requires.
	ErrPreconditionRequired = errors.New("expected version token required")
)
