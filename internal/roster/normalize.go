package roster

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName returns the lookup key for a name: whitespace runs collapsed
// to a single space, trimmed, lowercased. It is never used for display.
func NormalizeName(name string) string {
	return strings.ToLower(collapseSpace(name))
}

// SplitPeople splits an explicitly delimited field on ',' or ';'. Each piece
// is trimmed and whitespace-collapsed; empty pieces are dropped.
func SplitPeople(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = collapseSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tokenize splits free text into word tokens on whitespace and commas.
// Surrounding punctuation is trimmed, and tokens left without any letter
// or digit (a lone "-", "&", "/") are dropped.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f == "" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// firstToken returns the lowercased first word token of name, or "".
func firstToken(name string) string {
	tokens := tokenize(name)
	if len(tokens) == 0 {
		return ""
	}
	return strings.ToLower(tokens[0])
}

// capitalize upper-cases the first letter of a provisional name token and
// leaves the rest untouched ("mcKay" -> "McKay", "jean-luc" -> "Jean-luc").
func capitalize(token string) string {
	_, size := utf8.DecodeRuneInString(token)
	// Casers carry state, so one is built per call.
	return cases.Upper(language.Und).String(token[:size]) + token[size:]
}

// uniqueNames accumulates names in first-seen order, rejecting any name whose
// normalized form was already added.
type uniqueNames struct {
	seen  map[string]struct{}
	names []string
}

func newUniqueNames() *uniqueNames {
	return &uniqueNames{seen: make(map[string]struct{})}
}

func (u *uniqueNames) add(name string) bool {
	key := NormalizeName(name)
	if key == "" {
		return false
	}
	if _, ok := u.seen[key]; ok {
		return false
	}
	u.seen[key] = struct{}{}
	u.names = append(u.names, name)
	return true
}

func (u *uniqueNames) list() []string {
	if u.names == nil {
		return []string{}
	}
	return u.names
}
