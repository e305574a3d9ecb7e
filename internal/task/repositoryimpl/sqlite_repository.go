package repositoryimpl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/cerr"
)

var sqliteSchema = []string{
	`PRAGMA journal_mode=WAL`,
	`CREATE TABLE IF NOT EXISTS tasks (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL CHECK (trim(title) <> ''),
    description    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'In Progress', 'Completed')),
    is_ai_enhanced INTEGER NOT NULL DEFAULT 0,
    created_at     INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS tasks_created_at_idx ON tasks (created_at DESC, id DESC)`,
}

var _ task.Repository = (*SQLiteRepository)(nil)

// SQLiteRepository stores created_at as unix microseconds so ordering and
// precision match the postgres implementation.
type SQLiteRepository struct {
	db     *sql.DB
	schema *schemaGuard
	now    func() time.Time
}

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &SQLiteRepository{
		db:  db,
		now: time.Now,
	}
	r.schema = newSchemaGuard(r.ensureSchema)
	return r, nil
}

func (r *SQLiteRepository) ensureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure tasks schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Bootstrap(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return task.ErrStoreUnavailable(fmt.Errorf("failed to ping sqlite: %w", err))
	}
	return r.schema.Ensure(ctx)
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.Bootstrap(ctx)
}

func (r *SQLiteRepository) Close() {
	_ = r.db.Close()
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*task.Task, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to list tasks: %w", err))
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to scan task: %w", err))
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to list tasks: %w", err))
	}
	return tasks, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, p task.CreateParams) (*task.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	t := task.New(p, r.now())
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?) RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, string(t.Status), t.IsAIEnhanced, t.CreatedAt.UnixMicro(),
	)
	created, err := scanSQLiteTask(row)
	if err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to insert task: %w", err))
	}
	return created, nil
}

func (r *SQLiteRepository) SetStatus(ctx context.Context, id string, status task.Status) (*task.Task, error) {
	if !status.Valid() {
		return nil, task.ErrInvalidStatus(string(status))
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ? RETURNING `+taskColumns,
		string(status), id,
	)
	updated, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrNotFound()
	}
	if err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to update task %s: %w", id, err))
	}
	return updated, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return task.ErrStoreUnavailable(fmt.Errorf("failed to delete task %s: %w", id, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return task.ErrStoreUnavailable(fmt.Errorf("failed to delete task %s: %w", id, err))
	}
	if n == 0 {
		return task.ErrNotFound()
	}
	return nil
}

func scanSQLiteTask(row rowScanner) (*task.Task, error) {
	var (
		t         task.Task
		status    string
		createdAt int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.IsAIEnhanced, &createdAt); err != nil {
		return nil, err
	}
	s, err := task.NormalizeStatus(status)
	if err != nil {
		return nil, cerr.NewError(cerr.DataLoss, "stored task is corrupt", fmt.Errorf("task %s: %w", t.ID, err))
	}
	t.Status = s
	t.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &t, nil
}
