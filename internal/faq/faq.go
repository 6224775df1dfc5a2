// Package faq answers canned questions before any classification or
// retrieval work happens.
package faq

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity ratio for a fuzzy match.
const DefaultCutoff = 0.75

// Entry maps a canonical question to an HTML answer.
type Entry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Matcher holds an ordered, immutable FAQ set.
type Matcher struct {
	entries []Entry
	cutoff  float64
}

// NewMatcher copies entries in order. Questions are normalized so exact
// matching compares like with like.
func NewMatcher(entries []Entry) *Matcher {
	copied := make([]Entry, 0, len(entries))
	for _, e := range entries {
		q := Normalize(e.Question)
		if q == "" {
			continue
		}
		copied = append(copied, Entry{Question: q, Answer: e.Answer})
	}
	return &Matcher{entries: copied, cutoff: DefaultCutoff}
}

// Entries returns a copy of the configured entries.
func (m *Matcher) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Normalize lowercases, trims, then removes question marks. Whitespace left
// behind by a removed "?" is kept and counts toward fuzzy ratios.
func Normalize(msg string) string {
	msg = strings.ToLower(strings.TrimSpace(msg))
	return strings.ReplaceAll(msg, "?", "")
}

// Match runs the exact substring pass, then the fuzzy pass.
func (m *Matcher) Match(query string) (Entry, bool) {
	if m == nil || len(m.entries) == 0 {
		return Entry{}, false
	}
	q := Normalize(query)
	if q == "" {
		return Entry{}, false
	}
	if e, ok := m.matchExact(q); ok {
		return e, true
	}
	return m.matchFuzzy(q)
}

func (m *Matcher) matchExact(q string) (Entry, bool) {
	for _, e := range m.entries {
		if strings.Contains(q, e.Question) {
			return e, true
		}
	}
	return Entry{}, false
}

type scored struct {
	entry Entry
	ratio float64
}

// matchFuzzy keeps the single best candidate at or above the cutoff. Ties
// go to the lexicographically larger question.
func (m *Matcher) matchFuzzy(q string) (Entry, bool) {
	var candidates []scored
	for _, e := range m.entries {
		r := Similarity(e.Question, q)
		if r >= m.cutoff {
			candidates = append(candidates, scored{entry: e, ratio: r})
		}
	}
	if len(candidates) == 0 {
		return Entry{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ratio != candidates[j].ratio {
			return candidates[i].ratio > candidates[j].ratio
		}
		return candidates[i].entry.Question > candidates[j].entry.Question
	})
	return candidates[0].entry, true
}

// Similarity is the SequenceMatcher ratio between a and b, compared rune by rune.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	sm := difflib.NewMatcher(runes(a), runes(b))
	return sm.Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
