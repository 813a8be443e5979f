package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkweld/mcp-server/internal/store"
)

// LegacyKeyPrefix marks opaque project-scoped keys.
const LegacyKeyPrefix = "iw_proj_"

// jwtPrefix is the base64url encoding of `{"`; every compact JWT starts
// with it.
const jwtPrefix = "eyJ"

var (
	// ErrNoCredentials means no token was presented at all.
	ErrNoCredentials = errors.New("authentication required")
	// ErrBadTokenFormat means the token matches neither credential shape.
	ErrBadTokenFormat = errors.New("invalid token format")
	// ErrInvalidToken covers every verification failure: bad key, bad
	// signature, expiry, revocation, unknown session. Callers surface all
	// of them identically so probes learn nothing.
	ErrInvalidToken = errors.New("invalid or expired credentials")
)

// ExtractToken pulls the bearer credential from a request: the
// Authorization header first, then X-API-Key.
func ExtractToken(h http.Header) string {
	if v := h.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimPrefix(v, "Bearer ")
	}
	return h.Get("X-API-Key")
}

// KeyStore resolves legacy project keys. Satisfied by *store.APIKeyRepository.
type KeyStore interface {
	GetByPrefix(ctx context.Context, prefix string) (*store.APIKey, error)
}

// ProjectStore resolves project metadata. Satisfied by *store.ProjectRepository.
type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*store.Project, error)
}

// SessionStore resolves OAuth sessions and grants. Satisfied by
// *store.SessionRepository.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*store.Session, error)
	Grants(ctx context.Context, id uuid.UUID) ([]store.SessionGrant, error)
}

// Authenticator resolves a bearer credential into a RequestContext.
type Authenticator struct {
	keys     KeyStore
	projects ProjectStore
	sessions SessionStore
	verifier *TokenVerifier
	logger   *zap.Logger
}

// NewAuthenticator wires an Authenticator.
func NewAuthenticator(keys KeyStore, projects ProjectStore, sessions SessionStore, verifier *TokenVerifier, logger *zap.Logger) *Authenticator {
	return &Authenticator{keys: keys, projects: projects, sessions: sessions, verifier: verifier, logger: logger}
}

// Authenticate validates the token and assembles the per-request context.
// The token shape selects the credential path: an iw_proj_ prefix is a
// legacy project key, an eyJ prefix is an OAuth JWT, anything else is
// rejected outright.
func (a *Authenticator) Authenticate(ctx context.Context, token, clientIP string) (*RequestContext, error) {
	switch {
	case token == "":
		return nil, ErrNoCredentials
	case strings.HasPrefix(token, LegacyKeyPrefix):
		return a.authenticateLegacy(ctx, token, clientIP)
	case strings.HasPrefix(token, jwtPrefix):
		return a.authenticateOAuth(ctx, token, clientIP)
	default:
		return nil, ErrBadTokenFormat
	}
}

func keyPrefix(token string) string {
	if len(token) < store.KeyPrefixLen {
		return token
	}
	return token[:store.KeyPrefixLen]
}

func (a *Authenticator) authenticateLegacy(ctx context.Context, token, clientIP string) (*RequestContext, error) {
	prefix := keyPrefix(token)
	key, err := a.keys.GetByPrefix(ctx, prefix)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Error("project key lookup", zap.String("key_prefix", prefix), zap.Error(err))
		}
		return nil, ErrInvalidToken
	}
	if err := key.Validate(token, clientIP, time.Now()); err != nil {
		a.logger.Info("project key rejected", zap.String("key_prefix", prefix), zap.Error(err))
		return nil, ErrInvalidToken
	}

	project, err := a.projects.GetByID(ctx, key.ProjectID)
	if err != nil {
		a.logger.Error("project lookup for key", zap.String("key_prefix", prefix), zap.Error(err))
		return nil, ErrInvalidToken
	}

	return &RequestContext{
		Kind: KindLegacy,
		Legacy: &LegacyIdentity{
			KeyID:     key.ID,
			KeyPrefix: prefix,
			ProjectID: project.ID,
		},
		Projects: []ProjectGrant{{
			ProjectID:   project.ID,
			Owner:       project.Owner,
			Slug:        project.Slug,
			Permissions: toPermissions(key.Permissions),
		}},
		ClientIP:  clientIP,
		AuthToken: token,
	}, nil
}

func (a *Authenticator) authenticateOAuth(ctx context.Context, token, clientIP string) (*RequestContext, error) {
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// A token that decodes correctly but references an unknown or revoked
	// session is treated exactly like an invalid token.
	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Error("session lookup", zap.String("session_id", sessionID.String()), zap.Error(err))
		}
		return nil, ErrInvalidToken
	}
	if session.Revoked(time.Now()) {
		a.logger.Info("revoked session rejected", zap.String("session_id", sessionID.String()))
		return nil, ErrInvalidToken
	}

	grants, err := a.sessions.Grants(ctx, sessionID)
	if err != nil {
		a.logger.Error("session grants lookup", zap.String("session_id", sessionID.String()), zap.Error(err))
		return nil, fmt.Errorf("resolve project grants: %w", err)
	}

	projects := make([]ProjectGrant, 0, len(grants))
	for _, g := range grants {
		projects = append(projects, ProjectGrant{
			ProjectID:   g.ProjectID,
			Owner:       g.Owner,
			Slug:        g.Slug,
			Role:        g.Role,
			Permissions: toPermissions(g.Permissions),
		})
	}

	return &RequestContext{
		Kind: KindOAuth,
		OAuth: &OAuthIdentity{
			UserID:    userID,
			SessionID: sessionID,
			ClientID:  claims.ClientID,
			Username:  claims.Username,
		},
		Projects:  projects,
		ClientIP:  clientIP,
		AuthToken: token,
	}, nil
}

func toPermissions(perms []string) []Permission {
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		out = append(out, Permission(p))
	}
	return out
}
