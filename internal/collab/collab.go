// Package collab defines the boundary to the external reasoning engine.
// The core treats the collaborator as a black box: it receives one request
// and returns synthesized guidance text or fails.
package collab

import (
	"context"
	"fmt"
	"strings"

	"seqthink/internal/insight"
	"seqthink/internal/model"
)

// Request carries everything the reasoning step may use for one thought.
type Request struct {
	Record *model.ThoughtRecord
	Digest insight.Digest
	// ReferencedText is the text of the record named by revisesIndex or
	// branchOrigin, resolved by the coordinator while it still holds the
	// session lock. Empty for standard thoughts.
	ReferencedText string
}

// Collaborator is the external reasoning engine. Reason blocks until the
// engine answers, the context is cancelled, or the call fails. There is no
// contract beyond "returns text or fails"; retries are the caller's concern.
type Collaborator interface {
	Reason(ctx context.Context, req Request) (string, error)
}

// BuildPrompt renders a request into the prompt handed to the reasoning
// engine: a step header, revision/branch context quoting the referenced
// record, the contextual insight digest, and the thought text.
func BuildPrompt(req Request) string {
	rec := req.Record

	var b strings.Builder
	fmt.Fprintf(&b, "Process Thought #%d:\n", rec.Index)

	switch rec.Kind() {
	case model.KindRevision:
		fmt.Fprintf(&b, "**REVISION of Thought #%d** (Original: %q)\n", *rec.RevisesIndex, req.ReferencedText)
	case model.KindBranch:
		fmt.Fprintf(&b, "**BRANCH (ID: %s) from Thought #%d** (Origin: %q)\n", rec.BranchID, *rec.BranchOrigin, req.ReferencedText)
	}

	if !req.Digest.Empty() {
		fmt.Fprintf(&b, "\nContext from prior thoughts: %s\n", req.Digest.String())
	}

	fmt.Fprintf(&b, "\nThought Content: %q", rec.Text)
	return b.String()
}

// Guidance returns the suffix appended to every synthesized response,
// steering the caller toward the next step or the final review.
func Guidance(continuationExpected bool) string {
	if continuationExpected {
		return "\n\nGuidance: Look for revision/branch recommendations in the response. Formulate the next logical thought."
	}
	return "\n\nThis is the final thought. Review the synthesis."
}
