package roster

import (
	"regexp"
	"strings"
)

var andWord = regexp.MustCompile(`(?i)\band\b`)

// ExtractPeople pulls the people named in free text such as a duty title
// ("RA On Call: Jane Smith and Bob Lee - backup") or an unstructured
// assignment string.
//
// The leading label is dropped (everything up to the first colon, or a
// recognized label), "and" and ';' become commas, and unless skipSplit is
// set an explicitly delimited result is returned as is. Otherwise the words
// are scanned left to right against the roster fragments, longest first;
// words no fragment covers become capitalized provisional names.
//
// A scan that found no roster member but produced several provisional names
// is not trusted: the whole label-stripped text is returned as one name.
func (r *Roster) ExtractPeople(text string, skipSplit bool) []string {
	cleaned := r.stripLabel(text)
	if cleaned == "" {
		return []string{}
	}

	delimited := andWord.ReplaceAllString(cleaned, ",")
	delimited = collapseSpace(strings.ReplaceAll(delimited, ";", ","))

	if !skipSplit {
		if parts := SplitPeople(delimited); len(parts) > 1 {
			out := newUniqueNames()
			for _, p := range parts {
				out.add(p)
			}
			return out.list()
		}
	}

	out := newUniqueNames()
	matched := false
	provisional := 0

	tokens := tokenize(delimited)
	for i := 0; i < len(tokens); {
		if isConjunction(tokens[i]) {
			i++
			continue
		}
		if f, ok := r.matchAt(tokens, i); ok {
			out.add(f.Name)
			matched = true
			i += len(f.Tokens)
			continue
		}
		if out.add(capitalize(tokens[i])) {
			provisional++
		}
		i++
	}

	// The label stays stripped here: "RA On Call: foo bar" gives "foo bar".
	if !matched && provisional > 1 {
		return []string{cleaned}
	}
	return out.list()
}

// stripLabel removes the leading label of a title. A colon wins: everything
// up to and including the first one is dropped. Without a colon the longest
// configured label that prefixes the text on a word boundary is removed.
func (r *Roster) stripLabel(text string) string {
	if i := strings.Index(text, ":"); i >= 0 {
		return collapseSpace(text[i+1:])
	}

	t := collapseSpace(text)
	best := -1
	for _, label := range r.labels {
		n := len(label)
		if n <= best || n > len(t) || !strings.EqualFold(t[:n], label) {
			continue
		}
		if n < len(t) && t[n] != ' ' && t[n] != '-' {
			continue
		}
		best = n
	}
	if best < 0 {
		return t
	}
	return strings.TrimLeft(t[best:], " -")
}

// matchAt returns the first (longest) fragment whose tokens all equal,
// case-insensitively, the tokens starting at pos.
func (r *Roster) matchAt(tokens []string, pos int) (fragment, bool) {
	for _, f := range r.fragments {
		if pos+len(f.Tokens) > len(tokens) {
			continue
		}
		ok := true
		for k, want := range f.Tokens {
			if !strings.EqualFold(tokens[pos+k], want) {
				ok = false
				break
			}
		}
		if ok {
			return f, true
		}
	}
	return fragment{}, false
}

func isConjunction(token string) bool {
	return token == "&" || strings.EqualFold(token, "and")
}
