package repositoryimpl

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/cerr"
)

func newTestPostgresRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	url := os.Getenv("TASKFLOW_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TASKFLOW_TEST_POSTGRES_URL is not set")
	}
	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, url, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	require.NoError(t, repo.Bootstrap(ctx))
	_, err = repo.pool.Exec(ctx, `TRUNCATE tasks`)
	require.NoError(t, err)
	repo.now = newSteppingClock().Now
	return repo
}

func TestPostgresRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) task.Repository {
		return newTestPostgresRepository(t)
	})
}

func TestPostgresRepository_UnreachableDegrades(t *testing.T) {
	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, "postgres://nobody@127.0.0.1:1/taskflow?sslmode=disable", 200*time.Millisecond)
	require.NoError(t, err)
	defer repo.Close()

	err = repo.Bootstrap(ctx)
	assert.True(t, cerr.IsCode(err, cerr.Internal))

	_, err = repo.List(ctx)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
	_, err = repo.Create(ctx, task.CreateParams{Title: "t"})
	assert.True(t, cerr.IsCode(err, cerr.Internal))

	// Validation still happens before the store is touched.
	_, err = repo.Create(ctx, task.CreateParams{Title: " "})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	_, err = repo.SetStatus(ctx, "x", "Archived")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestPostgresRepository_MigratesLegacyTable(t *testing.T) {
	ctx := context.Background()
	base := newTestPostgresRepository(t)
	t.Cleanup(func() {
		_, _ = base.pool.Exec(context.Background(), `DROP TABLE IF EXISTS tasks`)
	})

	// The table layout the earlier Node backend created.
	for _, stmt := range []string{
		`DROP TABLE tasks`,
		`CREATE TABLE tasks (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT DEFAULT 'Pending',
			is_ai_enhanced BOOLEAN DEFAULT false,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT INTO tasks (title, description, status, created_at) VALUES
			('old pending', NULL, 'Pending', '2024-01-01 10:00:00'),
			('old running', 'd', 'in_progress', '2024-01-02 10:00:00')`,
		`INSERT INTO tasks (title, status, is_ai_enhanced, created_at) VALUES ('old null', NULL, NULL, '2024-01-03 10:00:00')`,
	} {
		_, err := base.pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	repo := NewPostgresRepositoryWithPool(base.pool)
	require.NoError(t, repo.Bootstrap(ctx))

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "old null", tasks[0].Title)
	assert.Equal(t, task.StatusPending, tasks[0].Status)
	assert.False(t, tasks[0].IsAIEnhanced)
	assert.Equal(t, task.StatusInProgress, tasks[1].Status)
	assert.Equal(t, "", tasks[2].Description)
	assert.Equal(t, "1", tasks[2].ID)

	created, err := repo.Create(ctx, task.CreateParams{Title: "new"})
	require.NoError(t, err)
	updated, err := repo.SetStatus(ctx, "2", task.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, updated.Status)

	tasks, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, created.ID, tasks[0].ID)

	// Running the bootstrap again on the converted table is a no-op.
	require.NoError(t, NewPostgresRepositoryWithPool(base.pool).Bootstrap(ctx))
}
