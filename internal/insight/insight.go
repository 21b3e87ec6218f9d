// Package insight derives bounded, categorized digests from accumulated
// thought text. Categories are a configurable rule table, not learned: a
// record contributes to a category when its text contains any of the
// category's trigger terms.
package insight

import (
	"fmt"
	"strings"

	"seqthink/internal/model"
)

const (
	// DefaultPerCategory bounds how many excerpts a category retains.
	DefaultPerCategory = 2
	// DefaultExcerptLen is the character budget of one excerpt.
	DefaultExcerptLen = 100
	// truncationMarker flags excerpts cut at the character budget.
	truncationMarker = "..."
)

// Category pairs an identifier and display label with its trigger terms.
type Category struct {
	Name  string   `yaml:"name"`
	Label string   `yaml:"label"`
	Terms []string `yaml:"terms"`
}

// Rules is an ordered category table. Order is preserved into the digest so
// output stays deterministic.
type Rules []Category

// DefaultRules returns the commerce-oriented rule table the server ships
// with. Deployments in other domains supply their own table via config.
func DefaultRules() Rules {
	return Rules{
		{
			Name:  "market",
			Label: "Market Intelligence",
			Terms: []string{"market", "competitor", "trend", "industry", "seasonal"},
		},
		{
			Name:  "revenue",
			Label: "Revenue Insights",
			Terms: []string{"revenue", "profit", "roi", "conversion", "sales", "growth"},
		},
		{
			Name:  "customer",
			Label: "Customer Intelligence",
			Terms: []string{"customer", "persona", "journey", "behavior", "segment"},
		},
		{
			Name:  "strategy",
			Label: "Strategic Decisions",
			Terms: []string{"recommend", "strategy", "implement", "execute", "optimize"},
		},
	}
}

// Excerpt is one truncated contribution to a category.
type Excerpt struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated,omitempty"`
}

// CategoryDigest holds a category's retained excerpts, most recent first.
type CategoryDigest struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Excerpts []Excerpt `json:"excerpts"`
}

// Digest is the bounded, categorized summary handed to the reasoning step.
// It is transient: recomputed from session memory on every request, never
// stored.
type Digest struct {
	Categories []CategoryDigest `json:"categories,omitempty"`
}

// Empty reports whether no category matched anything.
func (d Digest) Empty() bool { return len(d.Categories) == 0 }

// String renders the digest in the compact single-line form used in
// reasoning prompts: "Label: T3: text; T1: text | Label: ...".
func (d Digest) String() string {
	if d.Empty() {
		return ""
	}
	parts := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		entries := make([]string, 0, len(c.Excerpts))
		for _, e := range c.Excerpts {
			entries = append(entries, fmt.Sprintf("T%d: %s", e.Index, e.Text))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", c.Label, strings.Join(entries, "; ")))
	}
	return strings.Join(parts, " | ")
}

// Extractor turns visible session records into a Digest. It is a pure,
// deterministic function of its inputs; safe for concurrent use.
type Extractor struct {
	rules       Rules
	perCategory int
	excerptLen  int
}

// Option adjusts extractor bounds.
type Option func(*Extractor)

// WithPerCategory overrides how many excerpts each category retains.
func WithPerCategory(n int) Option {
	return func(e *Extractor) { e.perCategory = n }
}

// WithExcerptLen overrides the excerpt character budget.
func WithExcerptLen(n int) Option {
	return func(e *Extractor) { e.excerptLen = n }
}

// NewExtractor creates an extractor over the given rule table. A nil table
// falls back to DefaultRules.
func NewExtractor(rules Rules, opts ...Option) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	e := &Extractor{
		rules:       normalizeRules(rules),
		perCategory: DefaultPerCategory,
		excerptLen:  DefaultExcerptLen,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ContextFor builds a digest from the records visible at the point the next
// thought will be appended. Callers pass the result of
// Memory.RecordsUpTo(nextIndex, branchID) so sibling-branch content never
// leaks in. A record may contribute to any number of categories; each
// category keeps only its most recent contributions, newest first.
func (e *Extractor) ContextFor(records []*model.ThoughtRecord) Digest {
	var digest Digest
	for _, cat := range e.rules {
		var excerpts []Excerpt
		// Walk newest to oldest so retention keeps the most recent.
		for i := len(records) - 1; i >= 0 && len(excerpts) < e.perCategory; i-- {
			rec := records[i]
			if matches(rec.Text, cat.Terms) {
				excerpts = append(excerpts, e.excerpt(rec))
			}
		}
		if len(excerpts) > 0 {
			digest.Categories = append(digest.Categories, CategoryDigest{
				Name:     cat.Name,
				Label:    cat.Label,
				Excerpts: excerpts,
			})
		}
	}
	return digest
}

func (e *Extractor) excerpt(rec *model.ThoughtRecord) Excerpt {
	text := rec.Text
	truncated := false
	// The budget is characters, not bytes; slicing bytes could split a
	// multi-byte rune and leak invalid UTF-8 into the digest.
	if runes := []rune(text); len(runes) > e.excerptLen {
		text = string(runes[:e.excerptLen]) + truncationMarker
		truncated = true
	}
	return Excerpt{Index: rec.Index, Text: text, Truncated: truncated}
}

// normalizeRules lowercases every trigger term so matching stays
// case-insensitive regardless of how a rule file spells them. The input is
// copied, not mutated.
func normalizeRules(rules Rules) Rules {
	out := make(Rules, len(rules))
	for i, cat := range rules {
		terms := make([]string, len(cat.Terms))
		for j, term := range cat.Terms {
			terms[j] = strings.ToLower(term)
		}
		cat.Terms = terms
		out[i] = cat
	}
	return out
}

func matches(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
