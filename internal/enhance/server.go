package enhance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskflow/pkg/cerr"
	"github.com/kazz187/taskflow/pkg/clog"
)

type Server struct {
	enhancer *Enhancer
}

func NewServer(enhancer *Enhancer) *Server {
	return &Server{enhancer: enhancer}
}

func (s *Server) Routes(r chi.Router) {
	r.Post("/enhance", s.Enhance)
	r.Get("/status", s.GetStatus)
	r.Post("/test", s.Test)
}

type enhanceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Enhance only rejects unreadable bodies. Provider trouble is reported as
// enhanced=false with the description echoed back.
func (s *Server) Enhance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req enhanceRequest
	if err := cerr.DecodeJSONBody(w, r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var title, description string
	if req.Title != nil {
		title = *req.Title
	}
	if req.Description != nil {
		description = *req.Description
	}

	res := s.enhancer.Enhance(ctx, title, description)
	clog.AddAttribute(ctx, "ai_enhanced", res.Enhanced)
	cerr.SetJSONResponse(ctx, res)
}

func (s *Server) GetStatus(_ http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.enhancer.Status())
}

type testResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) Test(_ http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	text, err := s.enhancer.Probe(ctx)
	if err != nil {
		clog.AddError(ctx, err)
		cerr.SetJSONResponse(ctx, testResponse{Error: err.Error()})
		return
	}
	cerr.SetJSONResponse(ctx, testResponse{OK: true, Text: text})
}
