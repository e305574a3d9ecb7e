package repositoryimpl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/cerr"
)

// steppingClock hands out strictly increasing instants so creation order is
// deterministic even on coarse system clocks.
type steppingClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{cur: time.Date(2025, 6, 1, 9, 0, 0, 123456789, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) task.Repository) {
	ctx := context.Background()

	t.Run("create defaults to pending", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, task.CreateParams{Title: "Write report", Description: "draft"})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Write report", created.Title)
		assert.Equal(t, "draft", created.Description)
		assert.Equal(t, task.StatusPending, created.Status)
		assert.False(t, created.IsAIEnhanced)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, time.UTC, created.CreatedAt.Location())
		assert.Equal(t, created.CreatedAt, created.CreatedAt.Truncate(time.Microsecond))

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, created, tasks[0])
	})

	t.Run("blank title is rejected without a write", func(t *testing.T) {
		repo := newRepo(t)
		for _, title := range []string{"", "   ", "\t\n"} {
			_, err := repo.Create(ctx, task.CreateParams{Title: title})
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "title %q", title)
		}
		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("ai flag is stored", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, task.CreateParams{Title: "t", IsAIEnhanced: true})
		require.NoError(t, err)
		assert.True(t, created.IsAIEnhanced)
	})

	t.Run("list is newest first", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Create(ctx, task.CreateParams{Title: "A"})
		require.NoError(t, err)
		b, err := repo.Create(ctx, task.CreateParams{Title: "B"})
		require.NoError(t, err)
		c, err := repo.Create(ctx, task.CreateParams{Title: "C"})
		require.NoError(t, err)

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, []string{c.ID, b.ID, a.ID}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	})

	t.Run("set status", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, task.CreateParams{Title: "t"})
		require.NoError(t, err)

		updated, err := repo.SetStatus(ctx, created.ID, task.StatusInProgress)
		require.NoError(t, err)
		assert.Equal(t, task.StatusInProgress, updated.Status)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Equal(t, created.Title, updated.Title)

		updated, err = repo.SetStatus(ctx, created.ID, task.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCompleted, updated.Status)
	})

	t.Run("invalid status leaves row unchanged", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, task.CreateParams{Title: "t"})
		require.NoError(t, err)

		for _, s := range []task.Status{"Archived", "pending", ""} {
			_, err = repo.SetStatus(ctx, created.ID, s)
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "status %q", s)
		}

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, task.StatusPending, tasks[0].Status)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		repo := newRepo(t)
		kept, err := repo.Create(ctx, task.CreateParams{Title: "keep"})
		require.NoError(t, err)

		_, err = repo.SetStatus(ctx, "01J00000000000000000000000", task.StatusCompleted)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))
		err = repo.Delete(ctx, "01J00000000000000000000000")
		assert.True(t, cerr.IsCode(err, cerr.NotFound))

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*task.Task{kept}, tasks)
	})

	t.Run("delete is permanent", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, task.CreateParams{Title: "t"})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, created.ID))
		err = repo.Delete(ctx, created.ID)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))
		_, err = repo.SetStatus(ctx, created.ID, task.StatusCompleted)
		assert.True(t, cerr.IsCode(err, cerr.NotFound))

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("concurrent status updates settle on one value", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, task.CreateParams{Title: "t"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for _, s := range []task.Status{task.StatusInProgress, task.StatusCompleted, task.StatusPending, task.StatusCompleted} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.SetStatus(ctx, created.ID, s)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.True(t, tasks[0].Status.Valid())
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(ctx))
	})
}
