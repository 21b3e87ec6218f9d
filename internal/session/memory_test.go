package session

import (
	"errors"
	"testing"

	"seqthink/internal/model"
)

func intPtr(n int) *int { return &n }

// mustAppend validates and appends a submission, failing the test on error.
func mustAppend(t *testing.T, mem *Memory, sub model.Submission) *model.ThoughtRecord {
	t.Helper()
	rec, err := Validate(sub, mem, 0)
	if err != nil {
		t.Fatalf("validate #%d: %v", sub.Index, err)
	}
	if _, err := mem.Append(rec); err != nil {
		t.Fatalf("append #%d: %v", sub.Index, err)
	}
	return rec
}

func TestAppendGrowsHistory(t *testing.T) {
	mem := NewMemory()
	for i := 1; i <= 4; i++ {
		mustAppend(t, mem, model.Submission{Text: "step", Index: i, EstimatedTotal: 5, ContinuationExpected: true})
		if got := mem.HistoryLength(); got != i {
			t.Fatalf("after %d appends, HistoryLength() = %d", i, got)
		}
	}
}

func TestAppendPosition(t *testing.T) {
	mem := NewMemory()
	rec, err := Validate(model.Submission{Text: "first", Index: 1, EstimatedTotal: 5}, mem, 0)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	pos, err := mem.Append(rec)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if pos != 1 {
		t.Errorf("position = %d, want 1", pos)
	}
}

func TestBranchCreationAndCounts(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "two", Index: 2, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "alt one", Index: 3, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(1), BranchID: "alt"})

	branches := mem.Branches()
	if len(branches) != 2 || branches[0] != "main" || branches[1] != "alt" {
		t.Fatalf("Branches() = %v", branches)
	}

	counts := mem.BranchCounts()
	if counts["main"] != 2 || counts["alt"] != 1 {
		t.Errorf("BranchCounts() = %v", counts)
	}

	if origin := mem.OriginIndex("alt"); origin == nil || *origin != 1 {
		t.Errorf("OriginIndex(alt) = %v, want 1", origin)
	}
	if origin := mem.OriginIndex("main"); origin != nil {
		t.Errorf("OriginIndex(main) = %v, want nil", origin)
	}
}

func TestBranchCountsIdempotent(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5})

	a, b := mem.BranchCounts(), mem.BranchCounts()
	if len(a) != len(b) || a["main"] != b["main"] {
		t.Errorf("BranchCounts not idempotent: %v vs %v", a, b)
	}
	if mem.HistoryLength() != mem.HistoryLength() {
		t.Error("HistoryLength not idempotent")
	}
}

func TestAttachResponse(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5})

	if err := mem.AttachResponse(1, "main", "guidance"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	rec, ok := mem.Record(1, "main")
	if !ok || rec.Response != "guidance" {
		t.Errorf("Record(1, main) = %+v, ok=%v", rec, ok)
	}

	err := mem.AttachResponse(9, "main", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("attach missing index: err = %v, want ErrNotFound", err)
	}
	err = mem.AttachResponse(1, "ghost", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("attach missing branch: err = %v, want ErrNotFound", err)
	}
}

func TestRecordsUpToExcludesSiblings(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "root one", Index: 1, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "root two", Index: 2, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "left", Index: 3, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(2), BranchID: "left"})
	mustAppend(t, mem, model.Submission{Text: "right", Index: 3, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(2), BranchID: "right"})

	visible := mem.RecordsUpTo(4, "left")
	want := []string{"root one", "root two", "left"}
	if len(visible) != len(want) {
		t.Fatalf("RecordsUpTo(4, left) returned %d records, want %d", len(visible), len(want))
	}
	for i, rec := range visible {
		if rec.Text != want[i] {
			t.Errorf("visible[%d].Text = %q, want %q", i, rec.Text, want[i])
		}
		if rec.Text == "right" {
			t.Error("sibling branch record leaked into visibility")
		}
	}
}

func TestRecordsUpToHidesParentPastDivergence(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "two", Index: 2, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "alt", Index: 3, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(1), BranchID: "alt"})
	// Main moves on after the branch diverged.
	mustAppend(t, mem, model.Submission{Text: "four", Index: 4, EstimatedTotal: 5, ContinuationExpected: true})

	visible := mem.RecordsUpTo(10, "alt")
	if len(visible) != 2 {
		t.Fatalf("RecordsUpTo(10, alt) returned %d records, want 2", len(visible))
	}
	if visible[0].Text != "one" || visible[1].Text != "alt" {
		t.Errorf("visible texts = %q, %q", visible[0].Text, visible[1].Text)
	}
}

func TestRecordLineageLookup(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "two", Index: 2, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "alt", Index: 3, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(1), BranchID: "alt"})

	// Ancestor record before the divergence point is visible.
	if _, ok := mem.Record(1, "alt"); !ok {
		t.Error("Record(1, alt): ancestor record should be visible")
	}
	// Ancestor record past the divergence point is not.
	if _, ok := mem.Record(2, "alt"); ok {
		t.Error("Record(2, alt): record past divergence should be hidden")
	}
}

func TestHighestEstimatePerBranch(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 8, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "two", Index: 2, EstimatedTotal: 5, ContinuationExpected: true})

	if got := mem.HighestEstimate("main"); got != 8 {
		t.Errorf("HighestEstimate(main) = %d, want 8", got)
	}
}

func TestResetStartsNewSession(t *testing.T) {
	mem := NewMemory()
	first := mem.ID()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5})
	mem.MarkTerminal()

	mem.Reset()
	if mem.ID() == first {
		t.Error("Reset kept the old session ID")
	}
	if mem.HistoryLength() != 0 || mem.Terminal() {
		t.Errorf("Reset left state: len=%d terminal=%v", mem.HistoryLength(), mem.Terminal())
	}
}

func TestAppendContractViolations(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5})

	// Re-appending the same index is a contract violation, not a user error.
	if _, err := mem.Append(&model.ThoughtRecord{Index: 1, Text: "dup", BranchID: "main"}); err == nil {
		t.Error("expected error for duplicate index append")
	}
	// Unknown branch with no origin.
	if _, err := mem.Append(&model.ThoughtRecord{Index: 2, Text: "x", BranchID: "ghost"}); err == nil {
		t.Error("expected error for unknown branch without origin")
	}
	if mem.HistoryLength() != 1 {
		t.Errorf("failed appends mutated history: len = %d", mem.HistoryLength())
	}
}

func TestBranchOriginOnSiblingsResolvesToEarliest(t *testing.T) {
	mem := NewMemory()
	mustAppend(t, mem, model.Submission{Text: "one", Index: 1, EstimatedTotal: 5, ContinuationExpected: true})
	mustAppend(t, mem, model.Submission{Text: "two", Index: 2, EstimatedTotal: 5, ContinuationExpected: true})

	// Sibling branches that both hold a record with index 3.
	mustAppend(t, mem, model.Submission{Text: "first sibling", Index: 3, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(1), BranchID: "b1"})
	mustAppend(t, mem, model.Submission{Text: "second sibling", Index: 3, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(2), BranchID: "b2"})

	// A flat search resolves the shared index to the earliest-created
	// branch, so the new branch descends from b1.
	mustAppend(t, mem, model.Submission{Text: "nested", Index: 4, EstimatedTotal: 5, ContinuationExpected: true,
		BranchOrigin: intPtr(3), BranchID: "c"})

	visible := mem.RecordsUpTo(4, "c")
	var texts []string
	for _, rec := range visible {
		texts = append(texts, rec.Text)
	}
	want := []string{"one", "first sibling"}
	if len(texts) != len(want) {
		t.Fatalf("visible texts = %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("visible texts = %v, want %v", texts, want)
		}
	}
}
