package task

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskflow/internal/eventbus"
	"github.com/kazz187/taskflow/pkg/cerr"
	"github.com/kazz187/taskflow/pkg/clog"
)

type Server struct {
	repo      Repository
	publisher eventbus.Publisher
}

func NewServer(repo Repository, publisher eventbus.Publisher) *Server {
	return &Server{
		repo:      repo,
		publisher: publisher,
	}
}

// Routes mounts the task endpoints. The router must run
// cerr.NewJSONResponseChiMiddleware.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.ListTasks)
	r.Post("/", s.CreateTask)
	r.Patch("/{id}", s.UpdateTaskStatus)
	r.Delete("/{id}", s.DeleteTask)
}

func (s *Server) ListTasks(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, ErrStoreUnavailable(err))
		return
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	clog.AddAttribute(ctx, "task_count", len(tasks))
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, err := parseCreateRequest(w, r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	// Once accepted the write completes even if the caller goes away.
	t, err := s.repo.Create(context.WithoutCancel(ctx), params)
	if err != nil {
		cerr.SetJSONError(ctx, ErrStoreUnavailable(err))
		return
	}
	clog.AddAttribute(ctx, "task_id", t.ID)

	s.publisher.Publish(eventbus.NewEvent(eventbus.TypeTaskCreated, t.ID, t.Clone()))
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (s *Server) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	clog.AddAttribute(ctx, "task_id", id)
	status, err := parseUpdateStatusRequest(w, r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t, err := s.repo.SetStatus(context.WithoutCancel(ctx), id, status)
	if err != nil {
		cerr.SetJSONError(ctx, ErrStoreUnavailable(err))
		return
	}

	s.publisher.Publish(eventbus.NewEvent(eventbus.TypeTaskUpdated, t.ID, t.Clone()))
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) DeleteTask(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	clog.AddAttribute(ctx, "task_id", id)

	if err := s.repo.Delete(context.WithoutCancel(ctx), id); err != nil {
		cerr.SetJSONError(ctx, ErrStoreUnavailable(err))
		return
	}

	s.publisher.Publish(eventbus.NewEvent(eventbus.TypeTaskDeleted, id, id))
	cerr.SetNoContent(ctx)
}
