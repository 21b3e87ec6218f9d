package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"seqthink/internal/engine"
	"seqthink/internal/model"
)

// ThinkTool exposes the engine as the sequentialthinking MCP tool.
type ThinkTool struct {
	eng *engine.Engine
	log *zap.Logger
}

func NewThinkTool(eng *engine.Engine, log *zap.Logger) *ThinkTool {
	if log == nil {
		log = zap.NewNop()
	}
	return &ThinkTool{eng: eng, log: log}
}

func (t *ThinkTool) Definition() mcp.Tool {
	return mcp.NewTool("sequentialthinking",
		mcp.WithDescription("Process a thought in a structured reasoning sequence. Supports revisions of earlier thoughts and branching into alternative paths."),
		mcp.WithString("thought",
			mcp.Required(),
			mcp.Description("The content of the current thinking step"),
		),
		mcp.WithNumber("thoughtNumber",
			mcp.Required(),
			mcp.Description("Current thought number in the sequence, starting at 1"),
		),
		mcp.WithNumber("totalThoughts",
			mcp.Required(),
			mcp.Description("Estimated total thoughts needed (minimum 5)"),
		),
		mcp.WithBoolean("nextThoughtNeeded",
			mcp.Required(),
			mcp.Description("Whether another thought step is expected after this one"),
		),
		mcp.WithBoolean("isRevision",
			mcp.Description("Whether this thought revises a previous one"),
		),
		mcp.WithNumber("revisesThought",
			mcp.Description("Number of the thought being revised; requires isRevision"),
		),
		mcp.WithNumber("branchFromThought",
			mcp.Description("Thought number this branch diverges from; requires branchId"),
		),
		mcp.WithString("branchId",
			mcp.Description("Identifier of the branch; requires branchFromThought"),
		),
		mcp.WithBoolean("needsMoreThoughts",
			mcp.Description("Whether more thoughts are needed beyond the current estimate"),
		),
	)
}

func (t *ThinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sub, err := parseSubmission(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := t.eng.Process(ctx, sub)
	if out.Error != nil {
		t.log.Warn("thought not accepted",
			zap.String("status", string(out.Status)),
			zap.Int("index", sub.Index),
			zap.String("error", *out.Error))
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode outcome: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func parseSubmission(req mcp.CallToolRequest) (model.Submission, error) {
	var sub model.Submission

	text, err := req.RequireString("thought")
	if err != nil {
		return sub, err
	}
	index, err := req.RequireInt("thoughtNumber")
	if err != nil {
		return sub, err
	}
	total, err := req.RequireInt("totalThoughts")
	if err != nil {
		return sub, err
	}
	next, err := req.RequireBool("nextThoughtNeeded")
	if err != nil {
		return sub, err
	}

	sub.Text = text
	sub.Index = index
	sub.EstimatedTotal = total
	sub.ContinuationExpected = next
	sub.IsRevision = req.GetBool("isRevision", false)
	sub.NeedsMoreSteps = req.GetBool("needsMoreThoughts", false)
	sub.BranchID = req.GetString("branchId", "")

	args := req.GetArguments()
	sub.RevisesIndex, err = optionalInt(args, "revisesThought")
	if err != nil {
		return sub, err
	}
	sub.BranchOrigin, err = optionalInt(args, "branchFromThought")
	if err != nil {
		return sub, err
	}
	return sub, nil
}

// optionalInt distinguishes an absent argument from a present one so the
// validator can tell "no revision target" apart from "revises thought 0".
func optionalInt(args map[string]any, key string) (*int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i, nil
	case int:
		return &n, nil
	case json.Number:
		i64, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
		i := int(i64)
		return &i, nil
	default:
		return nil, fmt.Errorf("argument %q must be a number, got %T", key, v)
	}
}
