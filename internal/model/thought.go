// Package model defines the thought record data types.
package model

import (
	"fmt"
	"time"
)

// MainBranch is the implicit branch every session starts on.
const MainBranch = "main"

// DefaultMinEstimatedTotal is the floor applied to estimatedTotal when the
// caller supplies a lower value.
const DefaultMinEstimatedTotal = 5

// Kind classifies a thought record by how it extends the chain.
type Kind string

const (
	KindStandard Kind = "standard"
	KindRevision Kind = "revision"
	KindBranch   Kind = "branch"
)

// Submission is one raw tool call before validation. Field names follow the
// inbound wire shape.
type Submission struct {
	Text                 string `json:"text"`
	Index                int    `json:"index"`
	EstimatedTotal       int    `json:"estimatedTotal"`
	ContinuationExpected bool   `json:"continuationExpected"`
	IsRevision           bool   `json:"isRevision,omitempty"`
	RevisesIndex         *int   `json:"revisesIndex,omitempty"`
	BranchOrigin         *int   `json:"branchOrigin,omitempty"`
	BranchID             string `json:"branchId,omitempty"`
	NeedsMoreSteps       bool   `json:"needsMoreSteps,omitempty"`
}

// ThoughtRecord is one validated step in the chain. Records are immutable
// once appended, except for Response which is attached after the external
// reasoning step completes.
type ThoughtRecord struct {
	Index                int       `json:"index"`
	Text                 string    `json:"text"`
	EstimatedTotal       int       `json:"estimatedTotal"`
	ContinuationExpected bool      `json:"continuationExpected"`
	IsRevision           bool      `json:"isRevision"`
	RevisesIndex         *int      `json:"revisesIndex,omitempty"`
	BranchOrigin         *int      `json:"branchOrigin,omitempty"`
	BranchID             string    `json:"branchId"`
	NeedsMoreSteps       bool      `json:"needsMoreSteps"`
	Response             string    `json:"response,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

// Kind reports whether the record is a standard step, a revision of an
// earlier step, or the start of a branch.
func (r *ThoughtRecord) Kind() Kind {
	switch {
	case r.IsRevision:
		return KindRevision
	case r.BranchOrigin != nil && r.BranchID != MainBranch:
		return KindBranch
	default:
		return KindStandard
	}
}

// FormatForLog returns a type-specific one-line description of the record.
func (r *ThoughtRecord) FormatForLog() string {
	switch r.Kind() {
	case KindRevision:
		return fmt.Sprintf("Revision %d/%d (revising #%d)", r.Index, r.EstimatedTotal, *r.RevisesIndex)
	case KindBranch:
		return fmt.Sprintf("Branch %d/%d (from #%d, id %s)", r.Index, r.EstimatedTotal, *r.BranchOrigin, r.BranchID)
	default:
		return fmt.Sprintf("Thought %d/%d", r.Index, r.EstimatedTotal)
	}
}
