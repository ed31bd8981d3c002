package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// SQLite driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/curatedhealth/vitalflow/internal/workflow"
)

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	execution_id TEXT PRIMARY KEY,
	workflow_id  TEXT NOT NULL,
	tenant_id    TEXT NOT NULL,
	state        BLOB NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_workflow ON checkpoints(workflow_id);
`

var _ workflow.CheckpointStore = (*SQLite)(nil)

// SQLite is a durable checkpoint store backed by a SQLite database.
// Checkpoints are stored as JSON-serialized execution state, one row per
// execution, upserted on every step.
type SQLite struct {
	db   *sql.DB
	path string
}

// SQLiteConfig holds connection options for the SQLite store.
type SQLiteConfig struct {
	Path            string        // Database file path
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum connection lifetime
	BusyTimeout     time.Duration // SQLite busy timeout
}

// DefaultSQLiteConfig returns sensible defaults for a checkpoint database.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:            path,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		BusyTimeout:     5 * time.Second,
	}
}

// OpenSQLite opens (creating if necessary) a checkpoint database with
// default settings.
func OpenSQLite(path string) (*SQLite, error) {
	return OpenSQLiteWithConfig(DefaultSQLiteConfig(path))
}

// OpenSQLiteWithConfig opens a checkpoint database with custom settings.
// WAL mode and a busy timeout are enabled for concurrent step writes.
func OpenSQLiteWithConfig(cfg SQLiteConfig) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d",
		cfg.Path,
		int(cfg.BusyTimeout.Milliseconds()),
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to checkpoint database: %w", err)
	}

	if _, err := db.Exec(checkpointSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply checkpoint schema: %w", err)
	}

	return &SQLite{db: db, path: cfg.Path}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save upserts the JSON-serialized state under the execution ID.
func (s *SQLite) Save(ctx context.Context, executionID string, state *workflow.ExecutionState) error {
	if executionID == "" {
		return fmt.Errorf("execution id cannot be empty")
	}
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize execution state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (execution_id, workflow_id, tenant_id, state, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(execution_id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`,
		executionID, state.WorkflowID, state.TenantID, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the latest checkpoint for an execution.
func (s *SQLite) Load(ctx context.Context, executionID string) (*workflow.ExecutionState, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE execution_id = ?`, executionID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no checkpoint for execution %q", executionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var state workflow.ExecutionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to deserialize execution state: %w", err)
	}
	return &state, nil
}

// List returns the execution IDs checkpointed for a workflow, most
// recently updated first.
func (s *SQLite) List(ctx context.Context, workflowID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT execution_id FROM checkpoints WHERE workflow_id = ? ORDER BY updated_at DESC`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes an execution's checkpoint. Deleting an unknown
// execution is not an error.
func (s *SQLite) Delete(ctx context.Context, executionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE execution_id = ?`, executionID,
	); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
