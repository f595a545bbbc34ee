package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent; ALTER
// TABLE duplicates from re-runs are tolerated.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		start_date  TEXT NOT NULL,
		target_date TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id             TEXT PRIMARY KEY,
		project_id     TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		parent_task_id TEXT REFERENCES tasks(id),
		title          TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'todo'
		               CHECK(status IN ('todo','doing','blocked','review','done')),
		estimate_value REAL NOT NULL DEFAULT 0,
		estimate_unit  TEXT NOT NULL DEFAULT 'hours'
		               CHECK(estimate_unit IN ('hours','days')),
		start_date     TEXT,
		due_date       TEXT,
		progress       INTEGER NOT NULL DEFAULT 0 CHECK(progress BETWEEN 0 AND 100),
		order_index    INTEGER NOT NULL DEFAULT 0 CHECK(order_index >= 0),
		version        INTEGER NOT NULL DEFAULT 1 CHECK(version >= 1),
		deleted_at     TEXT,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id)`,

	`CREATE TABLE IF NOT EXISTS dependencies (
		id             TEXT PRIMARY KEY,
		project_id     TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		predecessor_id TEXT NOT NULL REFERENCES tasks(id),
		successor_id   TEXT NOT NULL REFERENCES tasks(id),
		type           TEXT NOT NULL DEFAULT 'FS' CHECK(type IN ('FS','SS','FF','SF')),
		lag            REAL NOT NULL DEFAULT 0,
		lag_unit       TEXT NOT NULL DEFAULT 'days' CHECK(lag_unit IN ('hours','days')),
		created_at     TEXT NOT NULL,
		UNIQUE(project_id, predecessor_id, successor_id, type)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_dependencies_project ON dependencies(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_dependencies_successor ON dependencies(successor_id)`,

	`CREATE TABLE IF NOT EXISTS activity_log (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL,
		entity_type   TEXT NOT NULL,
		entity_id     TEXT NOT NULL,
		action        TEXT NOT NULL,
		actor         TEXT NOT NULL DEFAULT '',
		before_json   TEXT,
		after_json    TEXT,
		metadata_json TEXT,
		created_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_activity_project ON activity_log(project_id, created_at)`,
}
