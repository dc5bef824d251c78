// Package filter selects duties by duty type, free text and person.
package filter

import (
	"sort"
	"strings"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/roster"
)

// Criteria is a conjunction of optional filters; empty fields match all.
type Criteria struct {
	// DutyType matches duties whose type contains it.
	DutyType string
	// Query is a case-insensitive substring of title, assignment or type.
	Query string
	// Person matches duties whose resolved people include the canonical
	// form of this name.
	Person string
}

// IsZero reports whether c matches every duty.
func (c Criteria) IsZero() bool {
	return c.DutyType == "" && strings.TrimSpace(c.Query) == "" && strings.TrimSpace(c.Person) == ""
}

// Apply returns the duties matching c, in input order. rs canonicalizes the
// person filter; a nil roster compares names by normalized form only.
func Apply(duties []model.Duty, c Criteria, rs *roster.Roster) []model.Duty {
	query := strings.ToLower(strings.TrimSpace(c.Query))
	person := personKey(c.Person, rs)

	out := make([]model.Duty, 0, len(duties))
	for _, d := range duties {
		if c.DutyType != "" && !strings.Contains(d.DutyType, c.DutyType) {
			continue
		}
		if query != "" && !strings.Contains(searchBlob(d), query) {
			continue
		}
		if person != "" && !hasPerson(d, person) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// PersonMatches reports whether d involves the named person. The name is
// canonicalized against rs first, so "aNdReW" and "Andrew - On Leave" both
// match Andrew's duties.
func PersonMatches(d model.Duty, name string, rs *roster.Roster) bool {
	key := personKey(name, rs)
	return key != "" && hasPerson(d, key)
}

func personKey(name string, rs *roster.Roster) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	if rs != nil {
		name = rs.Canonicalize(name)
	}
	return roster.NormalizeName(name)
}

func hasPerson(d model.Duty, key string) bool {
	for _, p := range d.People {
		if roster.NormalizeName(p) == key {
			return true
		}
	}
	return false
}

func searchBlob(d model.Duty) string {
	return strings.ToLower(d.Title + " " + d.AssignedTo + " " + d.DutyType)
}

// DutyTypes returns the distinct non-empty duty types, sorted.
func DutyTypes(duties []model.Duty) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, d := range duties {
		if d.DutyType == "" {
			continue
		}
		if _, ok := seen[d.DutyType]; ok {
			continue
		}
		seen[d.DutyType] = struct{}{}
		out = append(out, d.DutyType)
	}
	sort.Strings(out)
	return out
}
