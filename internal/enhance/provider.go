package enhance

import (
	"fmt"
	"net/http"

	"github.com/kazz187/taskflow/internal/config"
)

// NewRewriterFromEnv returns nil for AI_PROVIDER=none.
func NewRewriterFromEnv(env *config.AIEnv, httpClient *http.Client) (Rewriter, error) {
	switch env.Provider {
	case "", "none":
		return nil, nil
	case "claude":
		return NewClaudeRewriter(), nil
	case "gemini":
		return NewGeminiRewriter(httpClient, env.GeminiBaseURL, env.GeminiAPIKey, env.GeminiModel)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", env.Provider)
	}
}
