package tree_test

import (
	"testing"

	"github.com/inkweld/mcp-server/internal/document"
	"github.com/inkweld/mcp-server/internal/tree"
)

// el builds a test element; parentId and order are filled by Normalize.
func el(id string, typ document.ElementType, level int) document.Element {
	return document.Element{ID: id, Name: id, Type: typ, Level: level}
}

func folder(id string, level int) document.Element { return el(id, document.ElementTypeFolder, level) }
func item(id string, level int) document.Element   { return el(id, document.ElementTypeItem, level) }

func ptr(s string) *string { return &s }

// ids flattens the array to "id:level" pairs for compact comparison.
func shape(els []document.Element) []string {
	out := make([]string, len(els))
	for i, e := range els {
		out[i] = e.ID + ":" + string(rune('0'+e.Level))
	}
	return out
}

func assertShape(t *testing.T, got []document.Element, want ...string) {
	t.Helper()
	g := shape(got)
	if len(g) != len(want) {
		t.Fatalf("shape: got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("shape[%d]: got %v, want %v", i, g, want)
		}
	}
}

// assertInvariant checks the positional-hierarchy invariant: normalize is a
// fixpoint, and every element's parentId/level matches its position.
func assertInvariant(t *testing.T, els []document.Element) {
	t.Helper()
	for i := range els {
		if els[i].Order != i {
			t.Errorf("order[%d] = %d, want %d", i, els[i].Order, i)
		}
		p := tree.FindParentByPosition(els, i)
		switch {
		case p == nil && els[i].ParentID != nil:
			t.Errorf("element %s: parentId %q, want nil", els[i].ID, *els[i].ParentID)
		case p != nil && (els[i].ParentID == nil || *els[i].ParentID != p.ID):
			t.Errorf("element %s: parentId mismatch with positional parent %s", els[i].ID, p.ID)
		case p != nil && els[i].Level != p.Level+1:
			t.Errorf("element %s: level %d, parent level %d", els[i].ID, els[i].Level, p.Level)
		}
	}
}

func sample() []document.Element {
	// F
	// ├── A
	// ├── B (folder)
	// │   └── C
	// └── D
	// G
	return tree.Normalize([]document.Element{
		folder("F", 0),
		item("A", 1),
		folder("B", 1),
		item("C", 2),
		item("D", 1),
		item("G", 0),
	})
}

func TestFindParentByPosition(t *testing.T) {
	els := sample()
	if p := tree.FindParentByPosition(els, 0); p != nil {
		t.Errorf("root parent: got %v, want nil", p.ID)
	}
	if p := tree.FindParentByPosition(els, 3); p == nil || p.ID != "B" {
		t.Errorf("C's parent: got %v, want B", p)
	}
	if p := tree.FindParentByPosition(els, 4); p == nil || p.ID != "F" {
		t.Errorf("D's parent: got %v, want F", p)
	}
}

func TestSubtree(t *testing.T) {
	els := sample()
	sub := tree.Subtree(els, 0)
	assertShape(t, sub, "F:0", "A:1", "B:1", "C:2", "D:1")

	if end := tree.SubtreeEndIndex(els, 2); end != 4 {
		t.Errorf("B's subtree end: got %d, want 4", end)
	}
	if end := tree.SubtreeEndIndex(els, 5); end != 6 {
		t.Errorf("G's subtree end: got %d, want 6", end)
	}
}

func TestInsert_underFolder(t *testing.T) {
	// Spec scenario: insert under F appends after F's existing children.
	els := tree.Normalize([]document.Element{
		folder("F", 0),
		item("A", 1),
		folder("G", 0),
	})
	got, err := tree.Insert(els, item("B", 0), ptr("F"), nil)
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, got, "F:0", "A:1", "B:1", "G:0")
	if got[2].ParentID == nil || *got[2].ParentID != "F" {
		t.Errorf("B.parentId: got %v, want F", got[2].ParentID)
	}
	assertInvariant(t, got)
}

func TestInsert_afterSibling(t *testing.T) {
	els := sample()
	got, err := tree.Insert(els, item("X", 0), ptr("F"), ptr("B"))
	if err != nil {
		t.Fatal(err)
	}
	// After B means after B's whole subtree (B, C).
	assertShape(t, got, "F:0", "A:1", "B:1", "C:2", "X:1", "D:1", "G:0")
	assertInvariant(t, got)
}

func TestInsert_siblingNotUnderParent_appends(t *testing.T) {
	els := sample()
	// G is not a child of F: fall back to appending at F's subtree end.
	got, err := tree.Insert(els, item("X", 0), ptr("F"), ptr("G"))
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, got, "F:0", "A:1", "B:1", "C:2", "D:1", "X:1", "G:0")
	assertInvariant(t, got)
}

func TestInsert_atRoot(t *testing.T) {
	els := sample()
	got, err := tree.Insert(els, item("X", 0), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, got, "F:0", "A:1", "B:1", "C:2", "D:1", "G:0", "X:0")
	assertInvariant(t, got)
}

func TestInsert_missingParent(t *testing.T) {
	if _, err := tree.Insert(sample(), item("X", 0), ptr("nope"), nil); err == nil {
		t.Fatal("expected error for missing parent")
	}
}

func TestRemove_subtree(t *testing.T) {
	els := sample()
	got, err := tree.Remove(els, "B")
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, got, "F:0", "A:1", "D:1", "G:0")
	assertInvariant(t, got)
}

func TestInsertRemove_roundTrip(t *testing.T) {
	els := sample()
	inserted, err := tree.Insert(els, item("X", 0), ptr("B"), nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := tree.Remove(inserted, "X")
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, back, shape(els)...)
	for i := range els {
		if back[i].ID != els[i].ID || back[i].Level != els[i].Level || back[i].Order != els[i].Order {
			t.Fatalf("round trip diverged at %d: %+v vs %+v", i, back[i], els[i])
		}
	}
}

func TestMove_refusesOwnSubtree(t *testing.T) {
	els := tree.Normalize([]document.Element{
		folder("F", 0),
		item("C", 1),
	})
	_, err := tree.Move(els, "F", ptr("C"), nil)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if err != tree.ErrCycle {
		t.Errorf("got %v, want ErrCycle", err)
	}
	// Input untouched.
	assertShape(t, els, "F:0", "C:1")
}

func TestMove_intoFolder(t *testing.T) {
	els := sample()
	got, err := tree.Move(els, "D", ptr("B"), nil)
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, got, "F:0", "A:1", "B:1", "C:2", "D:2", "G:0")
	assertInvariant(t, got)
}

func TestMove_subtreeLevelsShift(t *testing.T) {
	els := sample()
	// Move folder B (with child C) to the root level.
	got, err := tree.Move(els, "B", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, got, "F:0", "A:1", "D:1", "G:0", "B:0", "C:1")
	assertInvariant(t, got)
}

func TestMove_afterSibling(t *testing.T) {
	els := sample()
	got, err := tree.Move(els, "A", ptr("F"), ptr("D"))
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, got, "F:0", "B:1", "C:2", "D:1", "A:1", "G:0")
	assertInvariant(t, got)
}

func TestReorder_positions(t *testing.T) {
	els := sample()

	first, err := tree.Reorder(els, "D", 0)
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, first, "F:0", "D:1", "A:1", "B:1", "C:2", "G:0")
	assertInvariant(t, first)

	last, err := tree.Reorder(els, "A", -1)
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, last, "F:0", "B:1", "C:2", "D:1", "A:1", "G:0")

	// Position past the sibling count also means last.
	past, err := tree.Reorder(els, "A", 99)
	if err != nil {
		t.Fatal(err)
	}
	assertShape(t, past, shape(last)...)
}

func TestSortChildren_foldersFirst(t *testing.T) {
	els := tree.Normalize([]document.Element{
		{ID: "r", Name: "root", Type: document.ElementTypeFolder, Level: 0},
		{ID: "z", Name: "zeta", Type: document.ElementTypeItem, Level: 1},
		{ID: "m", Name: "mid", Type: document.ElementTypeFolder, Level: 1},
		{ID: "mc", Name: "child", Type: document.ElementTypeItem, Level: 2},
		{ID: "a", Name: "alpha", Type: document.ElementTypeItem, Level: 1},
	})
	got := tree.SortChildren(els, ptr("r"), tree.SortOptions{FoldersFirst: true})
	assertShape(t, got, "r:0", "m:1", "mc:2", "a:1", "z:1")
	assertInvariant(t, got)
}

func TestSortChildren_descendingKeepsFoldersFirst(t *testing.T) {
	els := tree.Normalize([]document.Element{
		{ID: "r", Name: "root", Type: document.ElementTypeFolder, Level: 0},
		{ID: "a", Name: "alpha", Type: document.ElementTypeItem, Level: 1},
		{ID: "z", Name: "zeta", Type: document.ElementTypeItem, Level: 1},
		{ID: "m", Name: "mid", Type: document.ElementTypeFolder, Level: 1},
	})
	got := tree.SortChildren(els, ptr("r"), tree.SortOptions{FoldersFirst: true, Descending: true})
	assertShape(t, got, "r:0", "m:1", "z:1", "a:1")
}

func TestSortChildren_recursive(t *testing.T) {
	els := tree.Normalize([]document.Element{
		{ID: "b", Name: "bravo", Type: document.ElementTypeFolder, Level: 0},
		{ID: "b2", Name: "two", Type: document.ElementTypeItem, Level: 1},
		{ID: "b1", Name: "one", Type: document.ElementTypeItem, Level: 1},
		{ID: "a", Name: "alpha", Type: document.ElementTypeFolder, Level: 0},
		{ID: "a9", Name: "zz", Type: document.ElementTypeItem, Level: 1},
		{ID: "a1", Name: "aa", Type: document.ElementTypeItem, Level: 1},
	})
	got := tree.SortChildren(els, nil, tree.SortOptions{Recursive: true})
	assertShape(t, got, "a:0", "a1:1", "a9:1", "b:0", "b1:1", "b2:1")
	assertInvariant(t, got)
}

func TestSortChildren_idempotent(t *testing.T) {
	els := sample()
	opts := tree.SortOptions{FoldersFirst: true, Recursive: true}
	once := tree.SortChildren(els, nil, opts)
	twice := tree.SortChildren(once, nil, opts)
	assertShape(t, twice, shape(once)...)
}

func TestNormalize_fixpoint(t *testing.T) {
	els := sample()
	norm := tree.Normalize(els)
	for i := range els {
		if norm[i].Order != els[i].Order {
			t.Errorf("order[%d] changed: %d vs %d", i, norm[i].Order, els[i].Order)
		}
	}
	assertInvariant(t, norm)
}
