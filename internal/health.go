package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"

	"github.com/kazz187/taskflow/internal/task"
)

// TaskServiceName is the service name the gRPC health endpoint reports on,
// in addition to the empty name for the whole process.
const TaskServiceName = "taskflow.v1.TaskService"

const healthCheckTimeout = 2 * time.Second

// HealthChecker reports SERVING only while the task store answers.
type HealthChecker struct {
	repo task.Repository
}

var _ grpchealth.Checker = (*HealthChecker)(nil)

func NewHealthChecker(repo task.Repository) *HealthChecker {
	return &HealthChecker{repo: repo}
}

func (hc *HealthChecker) status(ctx context.Context) grpchealth.Status {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := hc.repo.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health check: task store not serving", "error", err)
		return grpchealth.StatusNotServing
	}
	return grpchealth.StatusServing
}

func (hc *HealthChecker) Check(ctx context.Context, req *grpchealth.CheckRequest) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != TaskServiceName {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("unknown service %q", req.Service))
	}
	return &grpchealth.CheckResponse{Status: hc.status(ctx)}, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := hc.status(r.Context())
	code := http.StatusOK
	if st != grpchealth.StatusServing {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: statusName(st)})
}

// statusName renders st the way the connect health endpoint encodes its
// ServingStatus enum in JSON, so /health and Check report the same string.
func statusName(st grpchealth.Status) string {
	switch st {
	case grpchealth.StatusServing:
		return "SERVING_STATUS_SERVING"
	case grpchealth.StatusNotServing:
		return "SERVING_STATUS_NOT_SERVING"
	default:
		return "SERVING_STATUS_UNKNOWN"
	}
}
