package client

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	server "github.com/kazz187/taskflow/internal"
	"github.com/kazz187/taskflow/internal/config"
	"github.com/kazz187/taskflow/internal/enhance"
	"github.com/kazz187/taskflow/internal/event"
	"github.com/kazz187/taskflow/internal/eventbus"
	"github.com/kazz187/taskflow/internal/pushnotification"
	pushsubrepo "github.com/kazz187/taskflow/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskflow/internal/task"
	taskrepo "github.com/kazz187/taskflow/internal/task/repositoryimpl"
	"github.com/kazz187/taskflow/pkg/storage"
)

// testStack is a full server on SQLite behind httptest. eventsDown makes
// /events answer 503 to exercise reconnects.
type testStack struct {
	server     *httptest.Server
	bus        *eventbus.Bus
	client     *Client
	eventsDown atomic.Bool
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	repo, err := taskrepo.NewSQLiteRepository(filepath.Join(t.TempDir(), "taskflow.db"))
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	subs := pushsubrepo.NewYAMLRepository(store)
	vapid := &config.VAPIDEnv{}
	sender := pushnotification.NewSender(vapid, subs)

	bus := eventbus.New()
	env := &config.Env{BaseEnv: config.BaseEnv{CORSAllowedOrigins: []string{"*"}}}
	srv := server.NewServer(
		env,
		task.NewServer(repo, bus),
		event.NewServer(bus),
		enhance.NewServer(enhance.NewEnhancer(nil, time.Second)),
		pushnotification.NewServer(vapid, subs, sender),
		server.NewHealthChecker(repo),
	)

	st := &testStack{bus: bus}
	h := srv.Handler()
	st.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/events" && st.eventsDown.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(st.server.Close)

	st.client, err = New(st.server.URL, st.server.Client())
	require.NoError(t, err)
	return st
}
