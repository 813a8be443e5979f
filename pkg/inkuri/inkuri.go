// Package inkuri provides parsing and construction for the inkweld:// URI scheme.
//
// URI forms:
//
//	inkweld://projects                                        (all accessible projects)
//	inkweld://project/{owner}/{slug}                          (one project)
//	inkweld://project/{owner}/{slug}/elements                 (section listing)
//	inkweld://project/{owner}/{slug}/element/{id}             (one entry)
//
// Sections are "elements", "schemas", "worldbuilding", and "relationships";
// entry kinds are "element", "schema", and "worldbuilding". Matching is
// case-sensitive throughout.
package inkuri

import (
	"fmt"
	"net/url"
	"strings"
)

const scheme = "inkweld"

// Kind identifies the shape of a parsed URI.
type Kind int

const (
	// KindProjects is the inkweld://projects listing.
	KindProjects Kind = iota
	// KindProject is a single project root.
	KindProject
	// KindSection is a project section listing (elements, schemas, ...).
	KindSection
	// KindEntry is an individual entry within a section.
	KindEntry
)

var sections = map[string]bool{
	"elements":      true,
	"schemas":       true,
	"worldbuilding": true,
	"relationships": true,
}

var entryKinds = map[string]bool{
	"element":       true,
	"schema":        true,
	"worldbuilding": true,
}

// URI is a parsed inkweld:// URI.
type URI struct {
	Kind    Kind
	Owner   string // project owner username
	Slug    string // project slug
	Section string // section or entry kind, e.g. "elements" or "element"
	ID      string // entry id, set only for KindEntry
}

// Parse parses an inkweld:// URI string. It returns an error for any URI that
// does not match one of the documented forms.
func Parse(raw string) (*URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URI: %w", err)
	}
	if u.Scheme != scheme {
		return nil, fmt.Errorf("unsupported scheme %q: expected %q", u.Scheme, scheme)
	}

	if u.Host == "projects" {
		if u.Path != "" && u.Path != "/" {
			return nil, fmt.Errorf("unexpected path after inkweld://projects in %q", raw)
		}
		return &URI{Kind: KindProjects}, nil
	}
	if u.Host != "project" {
		return nil, fmt.Errorf("unknown inkweld host %q in %q", u.Host, raw)
	}

	parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return &URI{Kind: KindProject, Owner: parts[0], Slug: parts[1]}, nil

	case len(parts) == 3 && sections[parts[2]]:
		return &URI{Kind: KindSection, Owner: parts[0], Slug: parts[1], Section: parts[2]}, nil

	case len(parts) == 4 && entryKinds[parts[2]] && parts[3] != "":
		return &URI{Kind: KindEntry, Owner: parts[0], Slug: parts[1], Section: parts[2], ID: parts[3]}, nil
	}
	return nil, fmt.Errorf("malformed inkweld URI %q", raw)
}

// String returns the canonical URI string.
func (u *URI) String() string {
	switch u.Kind {
	case KindProjects:
		return Projects()
	case KindProject:
		return Project(u.Owner, u.Slug)
	case KindSection:
		return Section(u.Owner, u.Slug, u.Section)
	default:
		return Entry(u.Owner, u.Slug, u.Section, u.ID)
	}
}

// Projects returns the URI listing all accessible projects.
func Projects() string { return "inkweld://projects" }

// Project returns the URI of a single project.
func Project(owner, slug string) string {
	return fmt.Sprintf("inkweld://project/%s/%s", owner, slug)
}

// Section returns the URI of a project section listing.
func Section(owner, slug, section string) string {
	return fmt.Sprintf("inkweld://project/%s/%s/%s", owner, slug, section)
}

// Entry returns the URI of an individual entry, e.g. an element by id.
func Entry(owner, slug, kind, id string) string {
	return fmt.Sprintf("inkweld://project/%s/%s/%s/%s", owner, slug, kind, id)
}

// SplitProjectRef parses an "owner/slug" project reference as used by tool
// arguments. Both halves must be non-empty and the reference must contain
// exactly one slash.
func SplitProjectRef(ref string) (owner, slug string, err error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("project must be in owner/slug form, got %q", ref)
	}
	return parts[0], parts[1], nil
}
