package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session is an OAuth session issued by the authorization server. A token
// that verifies cryptographically but references a missing or revoked
// session must be rejected.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	ClientID  string     `json:"clientId"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Revoked reports whether the session was revoked at or before now.
func (s *Session) Revoked(now time.Time) bool {
	return s.RevokedAt != nil && !s.RevokedAt.After(now)
}

// SessionGrant is one project grant attached to a session, joined with the
// project's owner username and slug.
type SessionGrant struct {
	ProjectID   uuid.UUID
	Owner       string
	Slug        string
	Role        string
	Permissions []string
}

// SessionRepository reads OAuth sessions and their project grants.
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, client_id, revoked_at, created_at
		FROM oauth_sessions WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.ClientID, &s.RevokedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// Grants retrieves the project grants for a session, in grant order.
func (r *SessionRepository) Grants(ctx context.Context, sessionID uuid.UUID) ([]SessionGrant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.project_id, u.username, p.slug, g.role, g.permissions
		FROM session_grants g
		JOIN projects p ON p.id = g.project_id
		JOIN users u ON u.id = p.owner_id
		WHERE g.session_id = $1
		ORDER BY g.granted_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session grants: %w", err)
	}
	defer rows.Close()

	var grants []SessionGrant
	for rows.Next() {
		var g SessionGrant
		if err := rows.Scan(&g.ProjectID, &g.Owner, &g.Slug, &g.Role, &g.Permissions); err != nil {
			return nil, fmt.Errorf("scan session grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
