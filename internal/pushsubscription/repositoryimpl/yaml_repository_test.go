package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskflow/internal/pushsubscription"
	"github.com/kazz187/taskflow/pkg/cerr"
	"github.com/kazz187/taskflow/pkg/storage"
)

func newTestRepository(t *testing.T) (*YAMLRepository, storage.Storage) {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewYAMLRepository(s), s
}

func TestYAMLRepository(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sub := &pushsubscription.Subscription{
		ID:        "01A",
		Endpoint:  "https://push.example/a",
		P256dhKey: "p",
		AuthKey:   "a",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Save(ctx, sub))

	got, err := repo.Get(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, sub, got)

	sub.AuthKey = "a2"
	require.NoError(t, repo.Save(ctx, sub))
	got, err = repo.FindByEndpoint(ctx, "https://push.example/a")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AuthKey)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "01A"))
	_, err = repo.Get(ctx, "01A")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
	assert.True(t, cerr.IsCode(repo.Delete(ctx, "01A"), cerr.NotFound))
	_, err = repo.FindByEndpoint(ctx, "https://push.example/a")
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestYAMLRepository_ListSkipsCorruptDocuments(t *testing.T) {
	ctx := context.Background()
	repo, s := newTestRepository(t)
	require.NoError(t, repo.Save(ctx, &pushsubscription.Subscription{ID: "ok", Endpoint: "e"}))
	require.NoError(t, s.Write(ctx, "push_subscriptions/bad.yaml", []byte("endpoint: [unclosed")))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ok", all[0].ID)
}

func TestYAMLRepository_SaveRequiresID(t *testing.T) {
	repo, _ := newTestRepository(t)
	err := repo.Save(context.Background(), &pushsubscription.Subscription{Endpoint: "e"})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}
