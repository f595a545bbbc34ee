// Package activity delivers audit events for committed mutations.
// Recording is fire-and-forget: a sink failure never fails the
// mutation that produced the event.
package activity

import (
	"context"
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/mkowalczyk/gantry/internal/domain"
	"github.com/mkowalczyk/gantry/internal/repository"
)

// Sink receives activity events. Record has no error return; the
// mutation has already committed by the time it runs, so a sink
// failure must not surface to the caller.
type Sink interface {
	Record(ctx context.Context, event domain.ActivityEvent)
}

// NoopSink drops all events.
type NoopSink struct{}

func (NoopSink) Record(context.Context, domain.ActivityEvent) {}

// LogSink writes events to a slog logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(w io.Writer, level slog.Level) *LogSink {
	return &LogSink{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

func (s *LogSink) Record(ctx context.Context, event domain.ActivityEvent) {
	s.logger.InfoContext(ctx, "activity",
		"project_id", event.ProjectID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"action", event.Action,
		"actor", event.Actor,
	)
}

// RepoSink persists events through an ActivityRepo. Write failures are
// logged and swallowed.
type RepoSink struct {
	repo   repository.ActivityRepo
	logger *slog.Logger
}

func NewRepoSink(repo repository.ActivityRepo, logger *slog.Logger) *RepoSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepoSink{repo: repo, logger: logger}
}

func (s *RepoSink) Record(ctx context.Context, event domain.ActivityEvent) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if err := s.repo.Record(ctx, &event); err != nil {
		s.logger.WarnContext(ctx, "activity record failed",
			"entity_id", event.EntityID,
			"action", event.Action,
			"error", err)
	}
}

// Fanout delivers each event to every sink in order.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, event domain.ActivityEvent) {
	for _, s := range f {
		s.Record(ctx, event)
	}
}
