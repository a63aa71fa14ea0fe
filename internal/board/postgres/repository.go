// Package postgres provides a Postgres-backed task repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardkit/boardpulse/internal/board"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for task rows.
type Config struct {
	DSN      string
	Table    string
	MaxConns int32
	MinConns int32
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Repository reads and writes tasks in a Postgres table. Subtask sequences
// are stored as a JSONB column so replacements stay whole-array, matching
// the remote store contract.
type Repository struct {
	pool  pool
	table string
}

// NewRepository creates a Postgres-backed Repository using the provided config.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("board.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return NewRepositoryWithPool(p, cfg.Table)
}

// NewRepositoryWithPool wires an existing pool (or a mock) to the repository.
func NewRepositoryWithPool(p pool, table string) (*Repository, error) {
	if table == "" {
		table = "tasks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Repository{pool: p, table: table}, nil
}

// Get loads one task or returns board.ErrNotFound.
func (r *Repository) Get(ctx context.Context, category, taskID string) (board.Task, error) {
	query := fmt.Sprintf(
		`SELECT title, subtasks FROM %s WHERE category = $1 AND id = $2`,
		r.table,
	)
	var (
		title string
		raw   []byte
	)
	err := r.pool.QueryRow(ctx, query, category, taskID).Scan(&title, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.Task{}, board.ErrNotFound
	}
	if err != nil {
		return board.Task{}, fmt.Errorf("select task: %w", err)
	}
	subtasks, err := decodeSubtasks(raw)
	if err != nil {
		return board.Task{}, err
	}
	return board.Task{ID: taskID, Category: category, Title: title, Subtasks: subtasks}, nil
}

// Put inserts or fully replaces a task.
func (r *Repository) Put(ctx context.Context, task board.Task) error {
	raw, err := json.Marshal(task.Subtasks)
	if err != nil {
		return fmt.Errorf("marshal subtasks: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (category, id, title, subtasks)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (category, id) DO UPDATE
		SET title = EXCLUDED.title, subtasks = EXCLUDED.subtasks`,
		r.table,
	)
	if _, err := r.pool.Exec(ctx, query, task.Category, task.ID, task.Title, raw); err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// Delete removes a task; deleting an absent task returns board.ErrNotFound.
func (r *Repository) Delete(ctx context.Context, category, taskID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE category = $1 AND id = $2`, r.table)
	tag, err := r.pool.Exec(ctx, query, category, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return board.ErrNotFound
	}
	return nil
}

// List returns all tasks in a category ordered by ID.
func (r *Repository) List(ctx context.Context, category string) ([]board.Task, error) {
	query := fmt.Sprintf(
		`SELECT id, title, subtasks FROM %s WHERE category = $1 ORDER BY id`,
		r.table,
	)
	rows, err := r.pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []board.Task
	for rows.Next() {
		var (
			id    string
			title string
			raw   []byte
		)
		if err := rows.Scan(&id, &title, &raw); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		subtasks, err := decodeSubtasks(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, board.Task{ID: id, Category: category, Title: title, Subtasks: subtasks})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close(context.Context) error {
	r.pool.Close()
	return nil
}

func decodeSubtasks(raw []byte) ([]board.Subtask, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var subtasks []board.Subtask
	if err := json.Unmarshal(raw, &subtasks); err != nil {
		return nil, fmt.Errorf("unmarshal subtasks: %w", err)
	}
	return subtasks, nil
}
