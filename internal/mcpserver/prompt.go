package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	maxProblemLen = 500
	maxContextLen = 300
)

// StartPrompt is the starter prompt that kicks off a thinking session.
type StartPrompt struct{}

func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("sequential-thinking",
		mcp.WithPromptDescription("Start a structured sequential thinking session for a problem"),
		mcp.WithArgument("problem",
			mcp.RequiredArgument(),
			mcp.ArgumentDescription("The problem or question to think through"),
		),
		mcp.WithArgument("context",
			mcp.ArgumentDescription("Additional context for the problem"),
		),
	)
}

func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	problem := strings.TrimSpace(req.Params.Arguments["problem"])
	if problem == "" {
		return nil, fmt.Errorf("missing required argument: problem")
	}
	problem = truncate(problem, maxProblemLen)
	extra := truncate(strings.TrimSpace(req.Params.Arguments["context"]), maxContextLen)

	var b strings.Builder
	fmt.Fprintf(&b, "Think through this problem step by step using the sequentialthinking tool: %s", problem)
	if extra != "" {
		fmt.Fprintf(&b, "\n\nContext: %s", extra)
	}

	return mcp.NewGetPromptResult(
		"Sequential thinking session",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(b.String())),
			mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(
				"I'll work through this step by step. Starting with thought 1, estimating at least 5 thoughts total, and revising or branching as the analysis develops.")),
		},
	), nil
}

// truncate cuts s to limit characters on a rune boundary.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
