package route

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists execution history. Route definitions are not stored;
// they come from configuration.
type Repository interface {
	CreateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, routeName string, limit int) ([]Execution, error)
}

// timeLayout sorts lexically in time order for UTC timestamps.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Execution listing limits.
const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, route, kind, status, started_at, completed_at, duration_ms,
			hops_total, hops_written, hops_skipped, hops_failed, hops`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateExecution inserts a finished execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	hopsJSON, err := json.Marshal(exec.Hops)
	if err != nil {
		return fmt.Errorf("marshalling hops: %w", err)
	}

	query := `
		INSERT INTO route_executions (
			id, route, kind, status, started_at, completed_at, duration_ms,
			hops_total, hops_written, hops_skipped, hops_failed, hops
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		exec.Route,
		string(exec.Kind),
		string(exec.Status),
		exec.StartedAt.UTC().Format(timeLayout),
		exec.CompletedAt.UTC().Format(timeLayout),
		exec.DurationMS,
		exec.HopsTotal,
		exec.HopsWritten,
		exec.HopsSkipped,
		exec.HopsFailed,
		string(hopsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM route_executions WHERE id = ?`

	exec, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions returns the most recent executions, newest first. An empty
// routeName lists every route.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, routeName string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + executionColumns + ` FROM route_executions`
	args := []any{}
	if routeName != "" {
		query += ` WHERE route = ?`
		args = append(args, routeName)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	executions := []Execution{}
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(scanner rowScanner) (*Execution, error) {
	var e Execution
	var kind, status, startedAt, completedAt string
	var hopsJSON sql.NullString

	err := scanner.Scan(
		&e.ID,
		&e.Route,
		&kind,
		&status,
		&startedAt,
		&completedAt,
		&e.DurationMS,
		&e.HopsTotal,
		&e.HopsWritten,
		&e.HopsSkipped,
		&e.HopsFailed,
		&hopsJSON,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = Kind(kind)
	e.Status = ExecutionStatus(status)
	if t, parseErr := time.Parse(timeLayout, startedAt); parseErr == nil {
		e.StartedAt = t
	}
	if t, parseErr := time.Parse(timeLayout, completedAt); parseErr == nil {
		e.CompletedAt = t
	}

	if hopsJSON.Valid && hopsJSON.String != "" && hopsJSON.String != "null" {
		if jsonErr := json.Unmarshal([]byte(hopsJSON.String), &e.Hops); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling hops: %w", jsonErr)
		}
	}
	if e.Hops == nil {
		e.Hops = []HopResult{}
	}

	return &e, nil
}
