// Package roster resolves the people referenced by duty records.
//
// A Roster is built once per data load from the "Assigned To" fields of all
// records and is read-only afterwards, so a single Roster may be shared by
// any number of goroutines resolving records concurrently.
package roster

import (
	"sort"
	"strings"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

// DefaultLabels are the leading title labels stripped before people are
// extracted from a title that carries no colon.
var DefaultLabels = []string{"RA On Call", "PG On Call", "On Call"}

// fragment is a token sequence that, when found in free text, identifies
// the roster member Name.
type fragment struct {
	Name   string
	Tokens []string // lowercased
	Full   bool     // full-name fragment (vs first-name only)
}

// Roster holds the known people of one data load plus the lookup indexes
// used by extraction and canonicalization.
type Roster struct {
	names      []string            // first-seen spelling, one per normalized name
	normalized map[string]string   // normalized name -> canonical name
	firstNames map[string][]string // lowercased first token -> names sharing it
	fragments  []fragment          // longest first
	labels     []string
}

// Option customizes Build.
type Option func(*Roster)

// WithLabels replaces DefaultLabels for this roster. Labels are matched
// case-insensitively against the start of a title.
func WithLabels(labels []string) Option {
	return func(r *Roster) {
		cleaned := make([]string, 0, len(labels))
		for _, l := range labels {
			if l = collapseSpace(l); l != "" {
				cleaned = append(cleaned, l)
			}
		}
		r.labels = cleaned
	}
}

// Build scans records once and collects every distinct name that appears in
// an assigned-to field.
//
//   - Names are split with SplitPeople; empty names are discarded.
//   - Two spellings that differ only by case or spacing are one person;
//     the first spelling seen becomes the canonical name.
//   - Every name contributes a full-name match fragment. A multi-word name
//     also contributes a first-name fragment when no other member shares
//     that first name. Fragments are sorted longest first so a first name
//     never shadows a full name.
func Build(records []model.Record, opts ...Option) *Roster {
	r := &Roster{
		normalized: make(map[string]string),
		firstNames: make(map[string][]string),
		labels:     DefaultLabels,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, rec := range records {
		for _, name := range SplitPeople(rec.AssignedTo) {
			r.add(name)
		}
	}

	r.buildFragments()
	return r
}

func (r *Roster) add(name string) {
	key := NormalizeName(name)
	if key == "" {
		return
	}
	if _, ok := r.normalized[key]; ok {
		return
	}
	r.normalized[key] = name
	r.names = append(r.names, name)

	if first := firstToken(name); first != "" {
		r.firstNames[first] = append(r.firstNames[first], name)
	}
}

func (r *Roster) buildFragments() {
	r.fragments = r.fragments[:0]
	for _, name := range r.names {
		tokens := tokenize(name)
		if len(tokens) == 0 {
			continue
		}
		lower := make([]string, len(tokens))
		for i, t := range tokens {
			lower[i] = strings.ToLower(t)
		}
		r.fragments = append(r.fragments, fragment{Name: name, Tokens: lower, Full: true})
		// A first name shared by several members identifies nobody.
		if len(lower) > 1 && len(r.firstNames[lower[0]]) == 1 {
			r.fragments = append(r.fragments, fragment{Name: name, Tokens: lower[:1]})
		}
	}

	// Longest first, full names ahead of first names on equal length.
	sort.SliceStable(r.fragments, func(i, j int) bool {
		a, b := r.fragments[i], r.fragments[j]
		if len(a.Tokens) != len(b.Tokens) {
			return len(a.Tokens) > len(b.Tokens)
		}
		return a.Full && !b.Full
	})
}

// Names returns the canonical names of the roster, sorted case-insensitively.
func (r *Roster) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := NormalizeName(out[i]), NormalizeName(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}

// Len reports the number of distinct people in the roster.
func (r *Roster) Len() int {
	return len(r.names)
}

// IsKnown reports whether name matches a roster member exactly, ignoring
// case and spacing.
func (r *Roster) IsKnown(name string) bool {
	_, ok := r.normalized[NormalizeName(name)]
	return ok
}

// Labels returns the leading title labels this roster strips.
func (r *Roster) Labels() []string {
	out := make([]string, len(r.labels))
	copy(out, r.labels)
	return out
}
