package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskflow/internal/config"
	"github.com/kazz187/taskflow/internal/enhance"
	"github.com/kazz187/taskflow/internal/event"
	"github.com/kazz187/taskflow/internal/eventbus"
	"github.com/kazz187/taskflow/internal/pushnotification"
	pushsubrepo "github.com/kazz187/taskflow/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/storage"
)

// pingRepository is an empty store whose Ping result can be flipped.
type pingRepository struct {
	down atomic.Bool
}

func (r *pingRepository) List(context.Context) ([]*task.Task, error) { return nil, nil }
func (r *pingRepository) Create(_ context.Context, p task.CreateParams) (*task.Task, error) {
	return task.New(p, time.Now()), nil
}
func (r *pingRepository) SetStatus(context.Context, string, task.Status) (*task.Task, error) {
	return nil, task.ErrNotFound()
}
func (r *pingRepository) Delete(context.Context, string) error { return task.ErrNotFound() }
func (r *pingRepository) Close()                               {}
func (r *pingRepository) Ping(context.Context) error {
	if r.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func newTestServer(t *testing.T, origins ...string) (*httptest.Server, *pingRepository) {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	repo := &pingRepository{}
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	subs := pushsubrepo.NewYAMLRepository(store)
	vapid := &config.VAPIDEnv{}
	bus := eventbus.New()

	env := &config.Env{BaseEnv: config.BaseEnv{CORSAllowedOrigins: origins}}
	srv := NewServer(
		env,
		task.NewServer(repo, bus),
		event.NewServer(bus),
		enhance.NewServer(enhance.NewEnhancer(nil, time.Second)),
		pushnotification.NewServer(vapid, subs, pushnotification.NewSender(vapid, subs)),
		NewHealthChecker(repo),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, repo
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestServer_Banner(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, banner, readBody(t, resp))
}

func TestServer_Health(t *testing.T) {
	ts, repo := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"SERVING_STATUS_SERVING"}`, readBody(t, resp))

	repo.down.Store(true)
	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"SERVING_STATUS_NOT_SERVING"}`, readBody(t, resp))
}

func grpcHealthCheck(t *testing.T, ts *httptest.Server, service string) (int, map[string]any) {
	t.Helper()
	body := `{"service":"` + service + `"}`
	resp, err := http.Post(ts.URL+"/grpc.health.v1.Health/Check", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &out))
	return resp.StatusCode, out
}

func TestServer_GRPCHealth(t *testing.T) {
	ts, repo := newTestServer(t)

	code, out := grpcHealthCheck(t, ts, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SERVING_STATUS_SERVING", out["status"])

	code, out = grpcHealthCheck(t, ts, TaskServiceName)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SERVING_STATUS_SERVING", out["status"])

	repo.down.Store(true)
	_, out = grpcHealthCheck(t, ts, TaskServiceName)
	assert.Equal(t, "SERVING_STATUS_NOT_SERVING", out["status"])

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &health))
	assert.Equal(t, out["status"], health["status"])

	code, out = grpcHealthCheck(t, ts, "nope.v1.Nothing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", out["code"])
}

func TestServer_UnknownRouteIsJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nothing/here")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"code":"NotFound","message":"not found"}`, readBody(t, resp))
}

func TestServer_TasksMounted(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/tasks")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, readBody(t, resp))

	resp, err = http.Post(ts.URL+"/tasks", "application/json", strings.NewReader(`{"title":""}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"code":"InvalidArgument","message":"title is required"}`, readBody(t, resp))
}

func TestServer_CORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, "http://localhost:5173")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/tasks/abc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch)

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
