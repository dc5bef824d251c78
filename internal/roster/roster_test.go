package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

func recordsAssigned(assigned ...string) []model.Record {
	out := make([]model.Record, 0, len(assigned))
	for _, a := range assigned {
		out = append(out, model.Record{Title: "Duty", AssignedTo: a})
	}
	return out
}

// sampleRecords mirrors the hall calendar export used in the field.
func sampleRecords() []model.Record {
	return []model.Record{
		{Title: "Hot Chocolate", DutyType: "Event", AssignedTo: "Alice Gleadle;Sangwon Kang;Keira Rafferty"},
		{Title: "Team Duty", DutyType: "6pm-10pm", AssignedTo: "Andrew"},
		{Title: "RA On Call: Alice, Sangwon, Keira", DutyType: "6pm-10pm"},
		{Title: "Andrew Leave", AssignedTo: "Andrew - On Leave - Approved"},
		{Title: "Spooky, Game Night", DutyType: "Event", AssignedTo: "Ellen Mphande;Andrew"},
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bob Lee", "bob lee"},
		{"  BOB\t\tlee  ", "bob lee"},
		{"", ""},
		{"   ", ""},
		{"Ana  María\nCruz", "ana maría cruz"},
	}
	for _, tc := range cases {
		got := NormalizeName(tc.in)
		assert.Equal(t, tc.want, got, "NormalizeName(%q)", tc.in)
		assert.Equal(t, got, NormalizeName(got), "NormalizeName must be idempotent for %q", tc.in)
	}
}

func TestSplitPeople(t *testing.T) {
	assert.Equal(t, []string{"Bob Lee", "Ana Cruz"}, SplitPeople(" Bob   Lee ,; Ana Cruz ;"))
	assert.Equal(t, []string{"Andrew - On Leave - Approved"}, SplitPeople("Andrew - On Leave - Approved"))
	assert.Empty(t, SplitPeople(""))
	assert.Empty(t, SplitPeople(" , ; "))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"Bob", "Lee", "Ana", "Cruz"}, tokenize("Bob Lee, & Ana (Cruz) -"))
	assert.Equal(t, []string{"O'Brien"}, tokenize("O'Brien."))
	assert.Empty(t, tokenize(" - & "))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Jean-luc", capitalize("jean-luc"))
	assert.Equal(t, "McKay", capitalize("mcKay"))
	assert.Equal(t, "Élodie", capitalize("élodie"))
	assert.Equal(t, "", capitalize(""))

	r := Build(recordsAssigned("Bob Lee"))
	assert.Equal(t, []string{"Jean-luc"}, r.ExtractPeople("RA On Call: jean-luc", false))
}

func TestBuild(t *testing.T) {
	r := Build(sampleRecords())

	t.Run("should collect distinct names", func(t *testing.T) {
		assert.Equal(t, 6, r.Len())
		assert.Equal(t, []string{
			"Alice Gleadle",
			"Andrew",
			"Andrew - On Leave - Approved",
			"Ellen Mphande",
			"Keira Rafferty",
			"Sangwon Kang",
		}, r.Names())
	})

	t.Run("should keep first spelling of a repeated name", func(t *testing.T) {
		r := Build(recordsAssigned("Bob Lee", "bob  LEE; Ana Cruz", ""))
		assert.Equal(t, []string{"Ana Cruz", "Bob Lee"}, r.Names())
		assert.True(t, r.IsKnown("BOB lee"))
		assert.False(t, r.IsKnown("Bob"))
	})

	t.Run("should index first names", func(t *testing.T) {
		assert.Equal(t, []string{"Andrew", "Andrew - On Leave - Approved"}, r.firstNames["andrew"])
		assert.Equal(t, []string{"Alice Gleadle"}, r.firstNames["alice"])
	})

	t.Run("should order fragments longest first", func(t *testing.T) {
		for i := 1; i < len(r.fragments); i++ {
			assert.GreaterOrEqual(t, len(r.fragments[i-1].Tokens), len(r.fragments[i].Tokens))
		}
	})

	t.Run("should discard empty names", func(t *testing.T) {
		r := Build(recordsAssigned(" ; , ", "   "))
		assert.Zero(t, r.Len())
		assert.Empty(t, r.fragments)
	})

	t.Run("every name appears verbatim in some assigned-to field", func(t *testing.T) {
		records := append(sampleRecords(), recordsAssigned("  Bob   Lee ; bob lee", "Ana Cruz,Bob Chan")...)
		r := Build(records)
		for _, name := range r.Names() {
			found := false
			for _, rec := range records {
				for _, seg := range SplitPeople(rec.AssignedTo) {
					if seg == name {
						found = true
					}
				}
			}
			assert.True(t, found, "name %q not found in any record", name)
		}
	})
}

func TestWithLabels(t *testing.T) {
	r := Build(recordsAssigned("Bob Lee"), WithLabels([]string{" Night  Duty ", ""}))
	assert.Equal(t, []string{"Night Duty"}, r.Labels())
	assert.Equal(t, []string{"Bob Lee"}, r.ExtractPeople("night duty - Bob Lee", false))

	assert.Equal(t, DefaultLabels, Build(nil).Labels())
}

func TestExtractPeople(t *testing.T) {
	r := Build(recordsAssigned("Bob Lee", "Ana Cruz", "Jane Smith", "Jane"))

	cases := []struct {
		name      string
		text      string
		skipSplit bool
		want      []string
	}{
		{"longest match wins", "RA On Call: Jane Smith", false, []string{"Jane Smith"}},
		{"exact short name beats first-name fragment", "RA On Call: Jane", false, []string{"Jane"}},
		{"and becomes a delimiter", "RA On Call: Bob Lee and Ana Cruz", false, []string{"Bob Lee", "Ana Cruz"}},
		{"semicolons delimit", "Bob Lee; Ana Cruz", false, []string{"Bob Lee", "Ana Cruz"}},
		{"qualifier stays on its segment", "RA On Call: Jane Smith and Bob Lee - backup", false, []string{"Jane Smith", "Bob Lee - backup"}},
		{"word scan without delimiters", "Bob Lee Ana Cruz", false, []string{"Bob Lee", "Ana Cruz"}},
		{"ampersand is skipped", "Bob Lee & Ana Cruz", false, []string{"Bob Lee", "Ana Cruz"}},
		{"word scan ignores delimiters when asked", "Bob Lee, Ana Cruz", true, []string{"Bob Lee", "Ana Cruz"}},
		{"unmatched token becomes provisional", "Bob Lee visitor", true, []string{"Bob Lee", "Visitor"}},
		{"no anchors keeps text whole", "Unknown Visitor Name", false, []string{"Unknown Visitor Name"}},
		{"no anchors after label keeps remainder whole", "RA On Call: unknown visitor", false, []string{"unknown visitor"}},
		{"single provisional name", "RA On Call: visitor", false, []string{"Visitor"}},
		{"label without colon", "On Call Bob Lee", false, []string{"Bob Lee"}},
		{"longest label without colon", "PG On Call - Ana Cruz", false, []string{"Ana Cruz"}},
		{"label must end on a word boundary", "On Caller Bob Lee", true, []string{"On", "Caller", "Bob Lee"}},
		{"duplicates collapse", "Bob Lee and bob lee", false, []string{"Bob Lee"}},
		{"label only", "RA On Call:", false, []string{}},
		{"empty", "", false, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.ExtractPeople(tc.text, tc.skipSplit))
		})
	}
}

func TestExtractPeopleFirstName(t *testing.T) {
	r := Build(recordsAssigned("Jane Smith", "Bob Lee"))
	assert.Equal(t, []string{"Jane Smith", "Bob Lee"}, r.ExtractPeople("RA On Call: Jane Bob", false))
}

func TestSharedFirstNameIsNotGuessed(t *testing.T) {
	r := Build(recordsAssigned("Bob Lee", "Bob Chan", "Ana Cruz"))

	t.Run("should leave a shared first name as written", func(t *testing.T) {
		assert.Equal(t, []string{"Bob"}, r.ExtractPeople("RA On Call: Bob", false))
		assert.Equal(t, []string{"Bob", "Ana Cruz"}, r.ExtractPeople("Bob Ana Cruz", true))
	})

	t.Run("should still expand a unique first name", func(t *testing.T) {
		assert.Equal(t, []string{"Ana Cruz"}, r.ExtractPeople("RA On Call: Ana", false))
	})

	t.Run("should resolve the title the same way canonicalize does", func(t *testing.T) {
		got := r.Resolve(model.Record{Title: "RA On Call: Bob"})
		assert.Equal(t, []string{"Bob"}, got)
		assert.Equal(t, r.Canonicalize("Bob"), got[0])
	})

	t.Run("should keep full names matching", func(t *testing.T) {
		assert.Equal(t, []string{"Bob Chan", "Bob Lee"}, r.Resolve(model.Record{Title: "RA On Call: Bob Chan and Bob Lee"}))
	})
}

func TestCanonicalize(t *testing.T) {
	r := Build(recordsAssigned("Bob Lee", "Bob Chan", "Ana Cruz", "Andrew", "Andrew - On Leave - Approved"))

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"exact", "Bob Lee", "Bob Lee"},
		{"case and spacing", "  bob   LEE ", "Bob Lee"},
		{"qualifier stripped", "Bob Lee - on leave", "Bob Lee"},
		{"qualifier stripped on exact roster hit", "Andrew - On Leave - Approved", "Andrew"},
		{"unique first name", "ana", "Ana Cruz"},
		{"ambiguous first name unchanged", "Bob", "Bob"},
		{"unknown unchanged", "  Zed   Zulu ", "Zed Zulu"},
		{"unknown with qualifier keeps base", "Zed - visiting", "Zed"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Canonicalize(tc.in))
		})
	}
}

func TestCanonicalizeStability(t *testing.T) {
	r := Build(append(sampleRecords(), recordsAssigned("Bob Lee", "Bob Chan", "Jane", "Jane Smith")...))

	for _, name := range r.Names() {
		if NormalizeName(name) != NormalizeName(r.Canonicalize(name)) {
			// Qualified roster entries collapse onto their base member.
			require.Contains(t, name, qualifierSep)
			continue
		}
		assert.Equal(t, name, r.Canonicalize(name))

		variants := []string{
			"  " + name + " ",
			NormalizeName(name),
			strings.ToUpper(name),
			strings.ReplaceAll(name, " ", "   "),
		}
		for _, v := range variants {
			assert.Equal(t, name, r.Canonicalize(v), "variant %q", v)
		}
	}
}

func TestResolve(t *testing.T) {
	r := Build(append(sampleRecords(), recordsAssigned("Bob Lee", "Ana Cruz")...))

	cases := []struct {
		name string
		rec  model.Record
		want []string
	}{
		{
			name: "delimiter path",
			rec:  model.Record{Title: "Duty", AssignedTo: "Bob Lee, Ana Cruz"},
			want: []string{"Bob Lee", "Ana Cruz"},
		},
		{
			name: "title fallback",
			rec:  model.Record{Title: "RA On Call: Bob Lee and Ana Cruz"},
			want: []string{"Bob Lee", "Ana Cruz"},
		},
		{
			name: "title fallback with first names",
			rec:  model.Record{Title: "RA On Call: Alice, Sangwon, Keira"},
			want: []string{"Alice Gleadle", "Sangwon Kang", "Keira Rafferty"},
		},
		{
			name: "qualified assignment",
			rec:  model.Record{Title: "Andrew Leave", AssignedTo: "Andrew - On Leave - Approved"},
			want: []string{"Andrew"},
		},
		{
			name: "qualifier is not split into names",
			rec:  model.Record{Title: "Duty", AssignedTo: "Bob Lee - swapped with someone"},
			want: []string{"Bob Lee"},
		},
		{
			name: "unmarked multi-person segment",
			rec:  model.Record{Title: "Duty", AssignedTo: "Bob Lee Ana Cruz"},
			want: []string{"Bob Lee", "Ana Cruz"},
		},
		{
			name: "unanchored segment stays whole",
			rec:  model.Record{Title: "Duty", AssignedTo: "Unknown Visitor Name"},
			want: []string{"Unknown Visitor Name"},
		},
		{
			name: "duplicates removed",
			rec:  model.Record{Title: "Duty", AssignedTo: "Bob Lee; bob  lee, BOB LEE - again"},
			want: []string{"Bob Lee"},
		},
		{
			name: "nothing assigned",
			rec:  model.Record{},
			want: []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Resolve(tc.rec))
		})
	}
}

func TestResolveAllHasNoDuplicates(t *testing.T) {
	records := append(sampleRecords(), recordsAssigned(
		"Bob Lee; bob lee",
		"Ana Cruz; ANA  CRUZ, ana cruz - late",
	)...)
	r := Build(records)

	records = append(records, model.Record{Title: "Duty", AssignedTo: "Bob Lee Ana Cruz, Bob Lee"})
	duties := r.ResolveAll(records)
	require.Len(t, duties, len(records))
	for _, d := range duties {
		seen := map[string]bool{}
		for _, p := range d.People {
			key := NormalizeName(p)
			assert.False(t, seen[key], "duplicate %q in %v", p, d.People)
			seen[key] = true
		}
	}
	assert.Equal(t, []string{"Ana Cruz"}, duties[len(records)-2].People)
	assert.Equal(t, []string{"Bob Lee", "Ana Cruz"}, duties[len(records)-1].People)
}
