package roster

import "strings"

// qualifierSep introduces a trailing note on a name ("Bob Lee - on leave").
const qualifierSep = " - "

// Canonicalize maps a typed or extracted name to its roster spelling.
//
// Resolution order:
//   - an exact roster hit (ignoring case and spacing) wins, unless the name
//     carries a qualifier whose base resolves to a different member, in
//     which case the base wins ("Andrew - On Leave" -> "Andrew");
//   - otherwise a qualifier is stripped and the base resolved;
//   - otherwise a first name shared by exactly one member resolves to them;
//   - otherwise the trimmed input is returned unchanged. Ambiguous first
//     names are never guessed.
func (r *Roster) Canonicalize(name string) string {
	trimmed := collapseSpace(name)
	if trimmed == "" {
		return ""
	}

	base, _, qualified := strings.Cut(trimmed, qualifierSep)

	if direct, ok := r.normalized[NormalizeName(trimmed)]; ok {
		if qualified {
			if stripped := r.Canonicalize(base); stripped != "" && NormalizeName(stripped) != NormalizeName(direct) {
				return stripped
			}
		}
		return direct
	}

	if qualified {
		if stripped := r.Canonicalize(base); stripped != "" {
			return stripped
		}
	}

	if candidates := r.firstNames[firstToken(trimmed)]; len(candidates) == 1 {
		return candidates[0]
	}
	return trimmed
}
