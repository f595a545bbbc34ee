package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkowalczyk/gantry/internal/db"
	"github.com/mkowalczyk/gantry/internal/domain"
)

// SQLiteActivityRepo persists activity events. Before/After/Metadata
// are stored as JSON text columns.
type SQLiteActivityRepo struct {
	db db.DBTX
}

func NewSQLiteActivityRepo(db db.DBTX) *SQLiteActivityRepo {
	return &SQLiteActivityRepo{db: db}
}

func (r *SQLiteActivityRepo) Record(ctx context.Context, e *domain.ActivityEvent) error {
	beforeJSON, err := marshalNullable(e.Before)
	if err != nil {
		return fmt.Errorf("encoding before snapshot: %w", err)
	}
	afterJSON, err := marshalNullable(e.After)
	if err != nil {
		return fmt.Errorf("encoding after snapshot: %w", err)
	}
	metadataJSON, err := marshalNullable(e.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	query := `INSERT INTO activity_log (id, project_id, entity_type, entity_id, action, actor,
		before_json, after_json, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID,
		e.ProjectID,
		e.EntityType,
		e.EntityID,
		e.Action,
		e.Actor,
		beforeJSON,
		afterJSON,
		metadataJSON,
		e.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting activity event: %w", err)
	}
	return nil
}

func (r *SQLiteActivityRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error) {
	query := `SELECT id, project_id, entity_type, entity_id, action, actor,
		before_json, after_json, metadata_json, created_at
		FROM activity_log WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var events []*domain.ActivityEvent
	for rows.Next() {
		var e domain.ActivityEvent
		var beforeJSON, afterJSON, metadataJSON sql.NullString
		var createdAtStr string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.EntityType, &e.EntityID, &e.Action, &e.Actor,
			&beforeJSON, &afterJSON, &metadataJSON, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning activity event: %w", err)
		}
		e.Before = unmarshalNullable(beforeJSON)
		e.After = unmarshalNullable(afterJSON)
		if md, ok := unmarshalNullable(metadataJSON).(map[string]any); ok {
			e.Metadata = md
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, createdAtStr)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity: %w", err)
	}
	return events, nil
}

func marshalNullable(v any) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalNullable(s sql.NullString) any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil
	}
	return v
}
