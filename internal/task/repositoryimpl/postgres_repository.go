package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/cerr"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL CHECK (btrim(title) <> ''),
    description    TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'In Progress', 'Completed')),
    is_ai_enhanced BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	// Tables created by the earlier Node backend use a SERIAL id, a naive
	// TIMESTAMP and nullable columns. Convert them in place.
	`DO $$
BEGIN
    IF EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_schema = current_schema() AND table_name = 'tasks'
          AND column_name = 'id' AND data_type <> 'text'
    ) THEN
        ALTER TABLE tasks ALTER COLUMN id DROP DEFAULT;
        ALTER TABLE tasks ALTER COLUMN id TYPE TEXT USING id::text;
    END IF;
    IF EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_schema = current_schema() AND table_name = 'tasks'
          AND column_name = 'created_at' AND data_type = 'timestamp without time zone'
    ) THEN
        ALTER TABLE tasks ALTER COLUMN created_at TYPE TIMESTAMPTZ USING created_at::timestamptz;
    END IF;
END
$$`,
	`UPDATE tasks SET
    description    = COALESCE(description, ''),
    status         = COALESCE(status, 'Pending'),
    is_ai_enhanced = COALESCE(is_ai_enhanced, FALSE),
    created_at     = COALESCE(created_at, now())
WHERE description IS NULL OR status IS NULL OR is_ai_enhanced IS NULL OR created_at IS NULL`,
	`ALTER TABLE tasks
    ALTER COLUMN description SET DEFAULT '',
    ALTER COLUMN description SET NOT NULL,
    ALTER COLUMN status SET DEFAULT 'Pending',
    ALTER COLUMN status SET NOT NULL,
    ALTER COLUMN is_ai_enhanced SET DEFAULT FALSE,
    ALTER COLUMN is_ai_enhanced SET NOT NULL,
    ALTER COLUMN created_at SET DEFAULT now(),
    ALTER COLUMN created_at SET NOT NULL`,
	`CREATE INDEX IF NOT EXISTS tasks_created_at_idx ON tasks (created_at DESC, id DESC)`,
}

const taskColumns = `id, title, description, status, is_ai_enhanced, created_at`

var _ task.Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	pool   *pgxpool.Pool
	schema *schemaGuard
	now    func() time.Time
}

// NewPostgresRepository builds the pool without dialing. Connectivity is
// first checked by Bootstrap.
func NewPostgresRepository(ctx context.Context, connString string, connectTimeout time.Duration) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	if connectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = connectTimeout
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return NewPostgresRepositoryWithPool(pool), nil
}

func NewPostgresRepositoryWithPool(pool *pgxpool.Pool) *PostgresRepository {
	r := &PostgresRepository{
		pool: pool,
		now:  time.Now,
	}
	r.schema = newSchemaGuard(r.ensureSchema)
	return r
}

func (r *PostgresRepository) ensureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure tasks schema: %w", err)
		}
	}
	return nil
}

// Bootstrap checks connectivity and creates the schema.
func (r *PostgresRepository) Bootstrap(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return task.ErrStoreUnavailable(fmt.Errorf("failed to ping postgres: %w", err))
	}
	return r.schema.Ensure(ctx)
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.Bootstrap(ctx)
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) List(ctx context.Context) ([]*task.Task, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to list tasks: %w", err))
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*task.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to scan tasks: %w", err))
	}
	return tasks, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p task.CreateParams) (*task.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	t := task.New(p, r.now())
	row := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, string(t.Status), t.IsAIEnhanced, t.CreatedAt,
	)
	created, err := scanTask(row)
	if err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to insert task: %w", err))
	}
	return created, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status task.Status) (*task.Task, error) {
	if !status.Valid() {
		return nil, task.ErrInvalidStatus(string(status))
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE tasks SET status = $2 WHERE id = $1 RETURNING `+taskColumns,
		id, string(status),
	)
	updated, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, task.ErrNotFound()
	}
	if err != nil {
		return nil, task.ErrStoreUnavailable(fmt.Errorf("failed to update task %s: %w", id, err))
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if err := r.schema.Ensure(ctx); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return task.ErrStoreUnavailable(fmt.Errorf("failed to delete task %s: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t      task.Task
		status string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.IsAIEnhanced, &t.CreatedAt); err != nil {
		return nil, err
	}
	s, err := task.NormalizeStatus(status)
	if err != nil {
		return nil, cerr.NewError(cerr.DataLoss, "stored task is corrupt", fmt.Errorf("task %s: %w", t.ID, err))
	}
	t.Status = s
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}
