package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskflow/internal/config"
	"github.com/kazz187/taskflow/internal/enhance"
	"github.com/kazz187/taskflow/internal/event"
	"github.com/kazz187/taskflow/internal/pushnotification"
	"github.com/kazz187/taskflow/internal/task"
	"github.com/kazz187/taskflow/pkg/cerr"
	"github.com/kazz187/taskflow/pkg/clog"
)

const banner = "TaskFlow backend running"

type Server struct {
	server                 *http.Server
	env                    *config.Env
	taskServer             *task.Server
	eventServer            *event.Server
	enhanceServer          *enhance.Server
	pushNotificationServer *pushnotification.Server
	healthChecker          *HealthChecker
}

func NewServer(
	env *config.Env,
	taskServer *task.Server,
	eventServer *event.Server,
	enhanceServer *enhance.Server,
	pushNotificationServer *pushnotification.Server,
	healthChecker *HealthChecker,
) *Server {
	return &Server{
		env:                    env,
		taskServer:             taskServer,
		eventServer:            eventServer,
		enhanceServer:          enhanceServer,
		pushNotificationServer: pushNotificationServer,
		healthChecker:          healthChecker,
	}
}

// Handler builds the full HTTP surface. The WebSocket endpoint sits outside
// the JSON response middleware because it takes over the connection.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(clog.SlogChiMiddleware(clog.WithChiFilter(clog.DefaultHealthCheckFilter)))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(banner))
	})
	r.Method(http.MethodGet, "/health", s.healthChecker)
	r.Method(http.MethodGet, "/events", s.eventServer)

	r.Group(func(r chi.Router) {
		r.Use(cerr.NewJSONResponseChiMiddleware())
		r.Route("/tasks", s.taskServer.Routes)
		r.Route("/ai", s.enhanceServer.Routes)
		r.Route("/push", s.pushNotificationServer.Routes)
		r.NotFound(func(_ http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
		r.MethodNotAllowed(func(_ http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.Unimplemented, "method not allowed", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle(grpchealth.NewHandler(s.healthChecker))
	mux.Handle("/", r)

	return cors.New(cors.Options{
		AllowedOrigins: s.env.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: !s.env.AllowsAnyOrigin(),
	}).Handler(mux)
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of
// every request, so cancelling it also ends open event streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
