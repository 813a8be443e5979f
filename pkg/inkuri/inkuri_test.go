package inkuri_test

import (
	"testing"

	"github.com/inkweld/mcp-server/pkg/inkuri"
)

func TestParse_valid(t *testing.T) {
	cases := []struct {
		input   string
		kind    inkuri.Kind
		owner   string
		slug    string
		section string
		id      string
	}{
		{
			input: "inkweld://projects",
			kind:  inkuri.KindProjects,
		},
		{
			input: "inkweld://project/alice/novel",
			kind:  inkuri.KindProject,
			owner: "alice",
			slug:  "novel",
		},
		{
			input:   "inkweld://project/alice/novel/elements",
			kind:    inkuri.KindSection,
			owner:   "alice",
			slug:    "novel",
			section: "elements",
		},
		{
			input:   "inkweld://project/alice/novel/relationships",
			kind:    inkuri.KindSection,
			owner:   "alice",
			slug:    "novel",
			section: "relationships",
		},
		{
			input:   "inkweld://project/bob/epic/element/el_123",
			kind:    inkuri.KindEntry,
			owner:   "bob",
			slug:    "epic",
			section: "element",
			id:      "el_123",
		},
		{
			input:   "inkweld://project/bob/epic/worldbuilding/wb-9",
			kind:    inkuri.KindEntry,
			owner:   "bob",
			slug:    "epic",
			section: "worldbuilding",
			id:      "wb-9",
		},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			u, err := inkuri.Parse(tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.Kind != tc.kind {
				t.Errorf("Kind: got %v, want %v", u.Kind, tc.kind)
			}
			if u.Owner != tc.owner || u.Slug != tc.slug {
				t.Errorf("project: got %q/%q, want %q/%q", u.Owner, u.Slug, tc.owner, tc.slug)
			}
			if u.Section != tc.section {
				t.Errorf("Section: got %q, want %q", u.Section, tc.section)
			}
			if u.ID != tc.id {
				t.Errorf("ID: got %q, want %q", u.ID, tc.id)
			}
		})
	}
}

func TestParse_invalid(t *testing.T) {
	cases := []string{
		"https://project/alice/novel",                  // wrong scheme
		"inkweld://project/alice",                      // missing slug
		"inkweld://project/alice/novel/chapters",       // unknown section
		"inkweld://project/alice/novel/element",        // entry kind without id
		"inkweld://project/alice/novel/relationship/1", // not an entry kind
		"inkweld://Projects",                           // case-sensitive host
		"not-a-uri",
	}

	for _, tc := range cases {
		t.Run(tc, func(t *testing.T) {
			if _, err := inkuri.Parse(tc); err == nil {
				t.Errorf("expected error for %q but got nil", tc)
			}
		})
	}
}

func TestURI_String_roundTrip(t *testing.T) {
	for _, raw := range []string{
		"inkweld://projects",
		"inkweld://project/alice/novel",
		"inkweld://project/alice/novel/schemas",
		"inkweld://project/alice/novel/schema/sch_1",
	} {
		u, err := inkuri.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := u.String(); got != raw {
			t.Errorf("String(): got %q, want %q", got, raw)
		}
	}
}

func TestSplitProjectRef(t *testing.T) {
	owner, slug, err := inkuri.SplitProjectRef("alice/novel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner != "alice" || slug != "novel" {
		t.Errorf("got %q/%q, want alice/novel", owner, slug)
	}

	for _, bad := range []string{"alice", "alice/", "/novel", "a/b/c", ""} {
		if _, _, err := inkuri.SplitProjectRef(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
