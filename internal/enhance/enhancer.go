package enhance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kazz187/taskflow/pkg/panicerr"
)

// Rewriter is a provider that turns a task description into a better one.
// It may fail in any way; Enhancer absorbs that.
type Rewriter interface {
	Name() string
	Model() string
	Rewrite(ctx context.Context, title, description string) (string, error)
}

var ErrNotConfigured = errors.New("ai provider not configured")

type Result struct {
	Description string `json:"description"`
	Enhanced    bool   `json:"enhanced"`
}

type Status struct {
	Configured bool   `json:"configured"`
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
}

type Enhancer struct {
	rewriter Rewriter
	timeout  time.Duration
}

// NewEnhancer accepts a nil rewriter, in which case every call returns the
// input unchanged.
func NewEnhancer(rewriter Rewriter, timeout time.Duration) *Enhancer {
	return &Enhancer{
		rewriter: rewriter,
		timeout:  timeout,
	}
}

// Enhance never fails. Errors, panics, timeouts and blank answers all yield
// the original description with Enhanced=false.
func (e *Enhancer) Enhance(ctx context.Context, title, description string) Result {
	original := Result{Description: description}
	if e.rewriter == nil {
		return original
	}
	out, err := e.rewrite(ctx, title, description)
	if err != nil {
		slog.WarnContext(ctx, "ai rewrite failed, keeping original description",
			"provider", e.rewriter.Name(), "error", err)
		return original
	}
	out = strings.TrimSpace(out)
	if out == "" {
		slog.InfoContext(ctx, "ai rewrite returned nothing, keeping original description", "provider", e.rewriter.Name())
		return original
	}
	return Result{Description: out, Enhanced: out != description}
}

// Probe sends a trivial prompt and surfaces the provider error, for the
// status page only.
func (e *Enhancer) Probe(ctx context.Context) (string, error) {
	if e.rewriter == nil {
		return "", ErrNotConfigured
	}
	return e.rewrite(ctx, "Connectivity check", "Reply with OK")
}

func (e *Enhancer) rewrite(ctx context.Context, title, description string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return panicerr.Try(func() (string, error) {
		return e.rewriter.Rewrite(ctx, title, description)
	})
}

func (e *Enhancer) Status() Status {
	if e.rewriter == nil {
		return Status{Provider: "none"}
	}
	return Status{
		Configured: true,
		Provider:   e.rewriter.Name(),
		Model:      e.rewriter.Model(),
	}
}
