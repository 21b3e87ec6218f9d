package session

import (
	"fmt"
	"strings"
	"time"

	"seqthink/internal/model"
)

// ValidationError is a caller error: the submission is malformed or
// referentially inconsistent with the current session memory. It never
// corresponds to a store mutation.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Reason)
}

func invalid(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks a raw submission against the structural and referential
// rules and returns a normalized record ready to append. It is a pure
// function of the submission and the current memory snapshot; it never
// mutates the store.
//
// Checks run in order and short-circuit on the first failure: text, index,
// revision consistency, branch consistency, branch resolution, index
// ordering, revision reference. An estimatedTotal below minEstimate is
// silently raised rather than rejected.
func Validate(sub model.Submission, mem *Memory, minEstimate int) (*model.ThoughtRecord, error) {
	if minEstimate <= 0 {
		minEstimate = model.DefaultMinEstimatedTotal
	}

	text := strings.TrimSpace(sub.Text)
	if text == "" {
		return nil, invalid("text", "thought text must not be empty")
	}

	total := sub.EstimatedTotal
	if total < minEstimate {
		total = minEstimate
	}

	if sub.Index < 1 {
		return nil, invalid("index", "index must be at least 1, got %d", sub.Index)
	}

	if err := checkRevisionFields(sub); err != nil {
		return nil, err
	}

	branchID := strings.TrimSpace(sub.BranchID)
	if err := checkBranchFields(sub, branchID); err != nil {
		return nil, err
	}

	// Resolve the target branch. No branchId means main; a known branchId
	// continues that branch; an unknown one starts a new branch at the
	// given origin.
	target := model.MainBranch
	if branchID != "" {
		target = branchID
		if b, ok := mem.branches[branchID]; ok {
			if b.origin != *sub.BranchOrigin {
				return nil, invalid("branch", "branch %q already diverges from #%d, not #%d", branchID, b.origin, *sub.BranchOrigin)
			}
		} else if _, ok := mem.ownerOf(*sub.BranchOrigin); !ok {
			return nil, invalid("branch", "branchOrigin #%d does not exist", *sub.BranchOrigin)
		}
	}

	if b, ok := mem.branches[target]; ok {
		if last := b.lastIndex(); sub.Index <= last {
			return nil, invalid("order", "index %d must exceed the last index %d on branch %q", sub.Index, last, target)
		}
	}

	if sub.IsRevision {
		if err := checkRevisionReference(sub, mem, target, branchID); err != nil {
			return nil, err
		}
	}

	return &model.ThoughtRecord{
		Index:                sub.Index,
		Text:                 text,
		EstimatedTotal:       total,
		ContinuationExpected: sub.ContinuationExpected,
		IsRevision:           sub.IsRevision,
		RevisesIndex:         sub.RevisesIndex,
		BranchOrigin:         sub.BranchOrigin,
		BranchID:             target,
		NeedsMoreSteps:       sub.NeedsMoreSteps,
		Timestamp:            time.Now().UTC(),
	}, nil
}

func checkRevisionFields(sub model.Submission) error {
	if sub.RevisesIndex != nil && !sub.IsRevision {
		return invalid("revision", "revisesIndex requires isRevision")
	}
	if sub.IsRevision && sub.RevisesIndex == nil {
		return invalid("revision", "isRevision requires revisesIndex")
	}
	if sub.RevisesIndex != nil {
		if *sub.RevisesIndex < 1 {
			return invalid("revision", "revisesIndex must be at least 1, got %d", *sub.RevisesIndex)
		}
		if *sub.RevisesIndex >= sub.Index {
			return invalid("revision", "revisesIndex #%d must be less than index %d", *sub.RevisesIndex, sub.Index)
		}
	}
	return nil
}

func checkBranchFields(sub model.Submission, branchID string) error {
	if branchID != "" && sub.BranchOrigin == nil {
		return invalid("branch", "branchId requires branchOrigin")
	}
	if sub.BranchOrigin != nil && branchID == "" {
		return invalid("branch", "branchOrigin requires branchId")
	}
	if branchID == model.MainBranch {
		return invalid("branch", "branch id %q is reserved", model.MainBranch)
	}
	if sub.BranchOrigin != nil {
		if *sub.BranchOrigin < 1 {
			return invalid("branch", "branchOrigin must be at least 1, got %d", *sub.BranchOrigin)
		}
		if *sub.BranchOrigin >= sub.Index {
			return invalid("branch", "branchOrigin #%d must be less than index %d", *sub.BranchOrigin, sub.Index)
		}
	}
	return nil
}

// checkRevisionReference resolves revisesIndex in the lineage visible to the
// target branch. For a branch that does not exist yet the visible lineage is
// its parent's, capped at the divergence index.
func checkRevisionReference(sub model.Submission, mem *Memory, target, branchID string) error {
	idx := *sub.RevisesIndex

	if _, ok := mem.branches[target]; ok {
		if _, ok := mem.Record(idx, target); !ok {
			return invalid("revision", "revised thought #%d does not exist on branch %q or its ancestry", idx, target)
		}
		return nil
	}

	// New branch: only records up to the origin are visible.
	if idx > *sub.BranchOrigin {
		return invalid("revision", "revised thought #%d is past the branch origin #%d", idx, *sub.BranchOrigin)
	}
	owner, _ := mem.ownerOf(*sub.BranchOrigin)
	if _, ok := mem.Record(idx, owner); !ok {
		return invalid("revision", "revised thought #%d does not exist in the lineage of branch %q", idx, branchID)
	}
	return nil
}
