// Package mcpserver wires the session engine into an MCP server. This is
// the composition surface only: all sequencing semantics live in the core
// packages, the handlers just translate between the wire shape and the
// engine.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"seqthink/internal/engine"
)

// Version is set at build time via ldflags.
var Version = "dev"

const serverInstructions = `Sequential thinking tool for structured, revisable reasoning.

Submit thoughts one at a time with the sequentialthinking tool. Number them
starting at 1 and estimate at least 5 total. Revise an earlier thought with
isRevision + revisesThought; explore an alternative path with
branchFromThought + branchId. Set nextThoughtNeeded=false on the final
thought.`

// New creates the MCP server with the thinking tool and starter prompt
// registered.
func New(eng *engine.Engine, log *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"seqthink",
		Version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	tool := NewThinkTool(eng, log)
	s.AddTool(tool.Definition(), tool.Handle)

	prompt := NewStartPrompt()
	s.AddPrompt(prompt.Definition(), prompt.Handle)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
