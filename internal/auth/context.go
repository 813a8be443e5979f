// Package auth implements the dual credential scheme of the MCP endpoint:
// opaque project-scoped keys (legacy) and OAuth bearer JWTs, resolved into
// a per-request context carrying the caller's accessible projects and
// permission grants.
package auth

import (
	"fmt"

	"github.com/google/uuid"
)

// Permission is one entry of the closed permission vocabulary.
type Permission string

const (
	PermReadProject        Permission = "read:project"
	PermReadElements       Permission = "read:elements"
	PermWriteElements      Permission = "write:elements"
	PermReadSchemas        Permission = "read:schemas"
	PermWriteSchemas       Permission = "write:schemas"
	PermReadWorldbuilding  Permission = "read:worldbuilding"
	PermWriteWorldbuilding Permission = "write:worldbuilding"
	PermGenerateImages     Permission = "generate:images"
)

// Kind discriminates the two credential paths.
type Kind string

const (
	KindLegacy Kind = "legacy"
	KindOAuth  Kind = "oauth"
)

// ProjectGrant is one accessible project together with the permissions the
// caller holds on it. Legacy contexts carry exactly one grant; OAuth
// contexts carry zero or more.
type ProjectGrant struct {
	ProjectID   uuid.UUID    `json:"projectId"`
	Owner       string       `json:"owner"`
	Slug        string       `json:"slug"`
	Role        string       `json:"role,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// Has reports whether the grant includes permission p.
func (g ProjectGrant) Has(p Permission) bool {
	for _, have := range g.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// LegacyIdentity describes a request authenticated with a project key.
type LegacyIdentity struct {
	KeyID     uuid.UUID
	KeyPrefix string // first 10 characters, safe to log
	ProjectID uuid.UUID
}

// OAuthIdentity describes a request authenticated with an access token.
type OAuthIdentity struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	ClientID  string
	Username  string
}

// ClientInfo is the client name/version reported during initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// RequestContext is the per-request bundle created by the auth middleware
// and consumed by exactly one dispatch. It is never shared between
// requests.
type RequestContext struct {
	Kind   Kind
	Legacy *LegacyIdentity // set when Kind == KindLegacy
	OAuth  *OAuthIdentity  // set when Kind == KindOAuth

	// Projects is the ordered list of accessible projects with their
	// permission grants.
	Projects []ProjectGrant

	ClientIP    string
	Initialized bool
	ClientInfo  ClientInfo

	// AuthToken is the raw bearer credential, forwarded to the document
	// engine. Never logged.
	AuthToken string
}

// HasPermission reports whether any accessible project grants p.
func (c *RequestContext) HasPermission(p Permission) bool {
	for _, g := range c.Projects {
		if g.Has(p) {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether any accessible project grants at least
// one of the given permissions. An empty list is trivially satisfied.
func (c *RequestContext) HasAnyPermission(perms ...Permission) bool {
	if len(perms) == 0 {
		return true
	}
	for _, p := range perms {
		if c.HasPermission(p) {
			return true
		}
	}
	return false
}

// Project returns the grant for owner/slug, or false when the project is
// not accessible to this context.
func (c *RequestContext) Project(owner, slug string) (ProjectGrant, bool) {
	for _, g := range c.Projects {
		if g.Owner == owner && g.Slug == slug {
			return g, true
		}
	}
	return ProjectGrant{}, false
}

// RequireProjectPermission enforces the per-project check used by tools
// that take an explicit project argument: the project must be accessible
// and its grant must include p.
func (c *RequestContext) RequireProjectPermission(owner, slug string, p Permission) (ProjectGrant, error) {
	g, ok := c.Project(owner, slug)
	if !ok {
		return ProjectGrant{}, fmt.Errorf("project %s/%s is not accessible with these credentials", owner, slug)
	}
	if !g.Has(p) {
		return ProjectGrant{}, fmt.Errorf("permission %s denied for project %s/%s", p, owner, slug)
	}
	return g, nil
}
