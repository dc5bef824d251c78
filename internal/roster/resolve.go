package roster

import (
	"strings"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

// Resolve returns the ordered, duplicate-free canonical people of a record.
// The explicit assigned-to field is preferred; the title is only consulted
// when that field names nobody.
func (r *Roster) Resolve(rec model.Record) []string {
	segments := SplitPeople(rec.AssignedTo)
	if len(segments) == 0 {
		segments = r.ExtractPeople(rec.Title, false)
	}

	out := newUniqueNames()
	for _, seg := range segments {
		for _, name := range r.resolveNameSegments(seg) {
			out.add(collapseSpace(r.Canonicalize(name)))
		}
	}
	return out.list()
}

// ResolveAll resolves every record against the roster.
func (r *Roster) ResolveAll(records []model.Record) []model.Duty {
	duties := make([]model.Duty, 0, len(records))
	for _, rec := range records {
		duties = append(duties, model.Duty{
			Record: rec,
			People: r.Resolve(rec),
		})
	}
	return duties
}

// resolveNameSegments splits one raw segment that may still name several
// people without a delimiter ("Bob Lee Ana Cruz"). A word-scan split is only
// accepted when it yields more than one name; a trailing " - note" is never
// scanned, so notes do not turn into provisional names.
func (r *Roster) resolveNameSegments(seg string) []string {
	if parts := SplitPeople(seg); len(parts) > 1 {
		return parts
	}

	base, _, _ := strings.Cut(seg, qualifierSep)
	if len(strings.Fields(base)) > 2 {
		if split := r.ExtractPeople(base, true); len(split) > 1 {
			return split
		}
	}
	return []string{seg}
}
