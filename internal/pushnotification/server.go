package pushnotification

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskflow/internal/config"
	"github.com/kazz187/taskflow/internal/pushsubscription"
	"github.com/kazz187/taskflow/pkg/cerr"
)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	sender   *Sender
	now      func() time.Time
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, sender *Sender) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		repo:     repo,
		sender:   sender,
		now:      time.Now,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/vapid-public-key", s.GetVapidPublicKey)
	r.Post("/subscriptions", s.RegisterPushSubscription)
	r.Delete("/subscriptions", s.UnregisterPushSubscription)
	r.Post("/test", s.SendTestNotification)
}

type vapidPublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type subscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// registerRequest mirrors the browser's PushSubscription.toJSON().
type registerRequest struct {
	Endpoint string           `json:"endpoint"`
	Keys     subscriptionKeys `json:"keys"`
}

type unregisterRequest struct {
	Endpoint string `json:"endpoint"`
}

func (s *Server) GetVapidPublicKey(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.vapidEnv.VAPIDPublicKey == "" {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "VAPID keys not configured", nil)
		return
	}
	cerr.SetJSONResponse(ctx, vapidPublicKeyResponse{PublicKey: s.vapidEnv.VAPIDPublicKey})
}

// RegisterPushSubscription is idempotent per endpoint: registering again
// refreshes the keys of the existing record.
func (s *Server) RegisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerRequest
	if err := cerr.DecodeJSONBody(w, r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	switch {
	case req.Endpoint == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	case req.Keys.P256dh == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "keys.p256dh is required", nil)
		return
	case req.Keys.Auth == "":
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "keys.auth is required", nil)
		return
	}

	now := s.now().UTC()
	sub, err := s.repo.FindByEndpoint(ctx, req.Endpoint)
	switch {
	case err == nil:
		sub.P256dhKey = req.Keys.P256dh
		sub.AuthKey = req.Keys.Auth
		sub.UpdatedAt = now
	case cerr.IsCode(err, cerr.NotFound):
		sub = &pushsubscription.Subscription{
			ID:        ulid.Make().String(),
			Endpoint:  req.Endpoint,
			P256dhKey: req.Keys.P256dh,
			AuthKey:   req.Keys.Auth,
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, map[string]string{"id": sub.ID})
}

func (s *Server) UnregisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req unregisterRequest
	if err := cerr.DecodeJSONBody(w, r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	sub, err := s.repo.FindByEndpoint(ctx, req.Endpoint)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Delete(ctx, sub.ID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetNoContent(ctx)
}

func (s *Server) SendTestNotification(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.sender.SendToAll(ctx, &NotificationPayload{
		Title: "TaskFlow Test",
		Body:  "Push notifications are working!",
	})
	cerr.SetNoContent(ctx)
}
