package enhance

import (
	"context"
	"errors"
	"fmt"

	claudeagent "github.com/kazz187/claude-agent-sdk-go"
)

var _ Rewriter = (*ClaudeRewriter)(nil)

// ClaudeRewriter runs a single-turn query through the local Claude CLI.
type ClaudeRewriter struct{}

func NewClaudeRewriter() *ClaudeRewriter {
	return &ClaudeRewriter{}
}

func (c *ClaudeRewriter) Name() string  { return "claude" }
func (c *ClaudeRewriter) Model() string { return "default" }

func (c *ClaudeRewriter) Rewrite(ctx context.Context, title, description string) (string, error) {
	maxTurns := 1
	opts := &claudeagent.ClaudeAgentOptions{
		SystemPrompt: systemPrompt,
		MaxTurns:     &maxTurns,
	}
	result, err := claudeagent.RunQuerySync(ctx, buildPrompt(title, description), opts)
	if err != nil {
		return "", fmt.Errorf("claude query failed: %w", err)
	}
	if result.Result == nil {
		return "", errors.New("claude query returned no result")
	}
	if result.Result.IsError {
		return "", fmt.Errorf("claude query reported an error: %s", result.Result.Result)
	}
	return result.Result.Result, nil
}
