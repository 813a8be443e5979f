// Package tree maintains the positional hierarchy of a project's element
// array.
//
// The array encodes a tree by position and level: a child appears
// immediately after its parent with level = parent.level + 1, and an
// element's subtree spans forward until the first element at the same or a
// shallower level. Every helper here is pure: it copies its input, never
// mutates it, and returns a fully normalized array where order equals the
// index and parentId equals the id of the closest preceding element one
// level up.
package tree

import (
	"errors"
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/inkweld/mcp-server/internal/document"
)

// ErrCycle is returned by Move when the destination parent lies inside the
// moved element's own subtree.
var ErrCycle = errors.New("cannot move element into its own subtree")

// FindParentByPosition walks backwards from i-1 and returns the closest
// element one level shallower than els[i], or nil for level-0 elements.
func FindParentByPosition(els []document.Element, i int) *document.Element {
	if i < 0 || i >= len(els) || els[i].Level == 0 {
		return nil
	}
	want := els[i].Level - 1
	for j := i - 1; j >= 0; j-- {
		if els[j].Level == want {
			return &els[j]
		}
	}
	return nil
}

// SubtreeEndIndex returns the index of the first element after the subtree
// rooted at i.
func SubtreeEndIndex(els []document.Element, i int) int {
	end := i + 1
	for end < len(els) && els[end].Level > els[i].Level {
		end++
	}
	return end
}

// Subtree returns els[i] together with every descendant, as a copy.
func Subtree(els []document.Element, i int) []document.Element {
	end := SubtreeEndIndex(els, i)
	return append([]document.Element(nil), els[i:end]...)
}

// Normalize rewrites order and parentId from array position. It returns a
// copy; the input is untouched.
func Normalize(els []document.Element) []document.Element {
	out := append([]document.Element(nil), els...)
	for i := range out {
		out[i].Order = i
		if p := FindParentByPosition(out, i); p != nil {
			id := p.ID
			out[i].ParentID = &id
		} else {
			out[i].ParentID = nil
		}
	}
	return out
}

func indexOf(els []document.Element, id string) int {
	for i := range els {
		if els[i].ID == id {
			return i
		}
	}
	return -1
}

// insertionPoint computes the splice index and level for a new child of
// parentID, optionally after the sibling afterID. A missing or foreign
// sibling falls back to "append at the end of the parent's children".
func insertionPoint(els []document.Element, parentID, afterID *string) (idx, level int, err error) {
	parentLevel := -1
	regionEnd := len(els)
	if parentID != nil {
		pi := indexOf(els, *parentID)
		if pi < 0 {
			return 0, 0, fmt.Errorf("parent element %q not found", *parentID)
		}
		parentLevel = els[pi].Level
		regionEnd = SubtreeEndIndex(els, pi)
	}
	level = parentLevel + 1

	if afterID != nil {
		if si := indexOf(els, *afterID); si >= 0 && els[si].Level == level && sameParent(els, si, parentID) {
			return SubtreeEndIndex(els, si), level, nil
		}
	}
	return regionEnd, level, nil
}

func sameParent(els []document.Element, i int, parentID *string) bool {
	p := FindParentByPosition(els, i)
	if p == nil {
		return parentID == nil
	}
	return parentID != nil && p.ID == *parentID
}

// Insert places newEl as a child of parentID (nil for root level), after the
// subtree of afterSiblingID when that sibling exists under the same parent,
// otherwise at the end of the parent's children.
func Insert(els []document.Element, newEl document.Element, parentID, afterSiblingID *string) ([]document.Element, error) {
	idx, level, err := insertionPoint(els, parentID, afterSiblingID)
	if err != nil {
		return nil, err
	}
	newEl.Level = level
	newEl.ParentID = parentID

	out := make([]document.Element, 0, len(els)+1)
	out = append(out, els[:idx]...)
	out = append(out, newEl)
	out = append(out, els[idx:]...)
	return Normalize(out), nil
}

// Remove drops the subtree rooted at id.
func Remove(els []document.Element, id string) ([]document.Element, error) {
	i := indexOf(els, id)
	if i < 0 {
		return nil, fmt.Errorf("element %q not found", id)
	}
	end := SubtreeEndIndex(els, i)
	out := make([]document.Element, 0, len(els)-(end-i))
	out = append(out, els[:i]...)
	out = append(out, els[end:]...)
	return Normalize(out), nil
}

// Move relocates the subtree rooted at id under newParentID (nil for root
// level), after afterSiblingID when given. Moving into the element's own
// subtree is refused with ErrCycle.
func Move(els []document.Element, id string, newParentID, afterSiblingID *string) ([]document.Element, error) {
	i := indexOf(els, id)
	if i < 0 {
		return nil, fmt.Errorf("element %q not found", id)
	}
	end := SubtreeEndIndex(els, i)

	if newParentID != nil {
		for j := i; j < end; j++ {
			if els[j].ID == *newParentID {
				return nil, ErrCycle
			}
		}
	}

	subtree := append([]document.Element(nil), els[i:end]...)
	rest := make([]document.Element, 0, len(els)-len(subtree))
	rest = append(rest, els[:i]...)
	rest = append(rest, els[end:]...)

	idx, level, err := insertionPoint(rest, newParentID, afterSiblingID)
	if err != nil {
		return nil, err
	}
	levelDelta := level - subtree[0].Level
	for j := range subtree {
		subtree[j].Level += levelDelta
	}
	subtree[0].ParentID = newParentID

	out := make([]document.Element, 0, len(els))
	out = append(out, rest[:idx]...)
	out = append(out, subtree...)
	out = append(out, rest[idx:]...)
	return Normalize(out), nil
}

// Reorder moves the element to the given position among its current
// siblings. Position 0 means first; -1 or any position at or past the
// sibling count means last.
func Reorder(els []document.Element, id string, position int) ([]document.Element, error) {
	i := indexOf(els, id)
	if i < 0 {
		return nil, fmt.Errorf("element %q not found", id)
	}

	var parentID *string
	if p := FindParentByPosition(els, i); p != nil {
		pid := p.ID
		parentID = &pid
	}

	blocks, prefix, suffix := childBlocks(els, parentID)
	var moved []document.Element
	kept := blocks[:0]
	for _, b := range blocks {
		if b[0].ID == id {
			moved = b
			continue
		}
		kept = append(kept, b)
	}
	if position < 0 || position > len(kept) {
		position = len(kept)
	}

	out := append([]document.Element(nil), prefix...)
	for bi, b := range kept {
		if bi == position {
			out = append(out, moved...)
		}
		out = append(out, b...)
	}
	if position >= len(kept) {
		out = append(out, moved...)
	}
	out = append(out, suffix...)
	return Normalize(out), nil
}

// childBlocks splits the array into the direct-child subtree blocks of
// parentID, plus the prefix (everything through the parent itself) and the
// suffix (everything after the parent's subtree). A nil parentID selects the
// root level, where prefix and suffix are empty.
func childBlocks(els []document.Element, parentID *string) (blocks [][]document.Element, prefix, suffix []document.Element) {
	start, end, childLevel := 0, len(els), 0
	if parentID != nil {
		pi := indexOf(els, *parentID)
		if pi < 0 {
			return nil, els, nil
		}
		start = pi + 1
		end = SubtreeEndIndex(els, pi)
		childLevel = els[pi].Level + 1
	}
	prefix = append([]document.Element(nil), els[:start]...)
	suffix = append([]document.Element(nil), els[end:]...)

	for i := start; i < end; {
		if els[i].Level != childLevel {
			// Defensive: skip malformed rows; Normalize repairs parent ids.
			i++
			continue
		}
		be := SubtreeEndIndex(els, i)
		if be > end {
			be = end
		}
		blocks = append(blocks, append([]document.Element(nil), els[i:be]...))
		i = be
	}
	return blocks, prefix, suffix
}

// SortOptions controls SortChildren.
type SortOptions struct {
	// FoldersFirst places FOLDER elements ahead of all others regardless
	// of the inner comparison.
	FoldersFirst bool
	// Descending reverses the inner comparison only; folders-first still
	// applies.
	Descending bool
	// Recursive descends into folders and sorts their children too.
	Recursive bool
	// Compare orders two elements; nil uses case-insensitive collation on
	// the name.
	Compare func(a, b document.Element) int
}

// SortChildren sorts the direct children of parentID (nil for the root
// level), keeping each child's subtree attached to it. The operation is
// stable: equal elements keep their relative order, so repeated application
// with the same options is idempotent.
func SortChildren(els []document.Element, parentID *string, opts SortOptions) []document.Element {
	cmp := opts.Compare
	if cmp == nil {
		coll := collate.New(language.Und, collate.IgnoreCase)
		cmp = func(a, b document.Element) int {
			return coll.CompareString(a.Name, b.Name)
		}
	}
	return Normalize(sortRegion(els, parentID, opts, cmp))
}

func sortRegion(els []document.Element, parentID *string, opts SortOptions, cmp func(a, b document.Element) int) []document.Element {
	blocks, prefix, suffix := childBlocks(els, parentID)
	if len(blocks) == 0 {
		return append([]document.Element(nil), els...)
	}

	if opts.Recursive {
		for bi, b := range blocks {
			if b[0].Type == document.ElementTypeFolder && len(b) > 1 {
				id := b[0].ID
				blocks[bi] = sortRegion(b, &id, opts, cmp)
			}
		}
	}

	// Insertion sort keeps the ordering stable for equal keys.
	compare := func(a, b document.Element) int {
		if opts.FoldersFirst {
			af, bf := a.Type == document.ElementTypeFolder, b.Type == document.ElementTypeFolder
			if af != bf {
				if af {
					return -1
				}
				return 1
			}
		}
		c := cmp(a, b)
		if opts.Descending {
			c = -c
		}
		return c
	}
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && compare(blocks[j][0], blocks[j-1][0]) < 0; j-- {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
		}
	}

	out := append([]document.Element(nil), prefix...)
	for _, b := range blocks {
		out = append(out, b...)
	}
	return append(out, suffix...)
}
