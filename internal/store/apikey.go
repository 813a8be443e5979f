package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// APIKey is a legacy project-scoped key record. The full key is never
// stored: Prefix holds the first 10 characters for lookup and logging, and
// Hash holds a bcrypt digest of the whole key.
type APIKey struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"projectId"`
	Prefix      string     `json:"prefix"`
	Hash        string     `json:"-"`
	Permissions []string   `json:"permissions"`
	AllowedIPs  []string   `json:"allowedIps,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ErrKeyExpired and ErrKeyRevoked distinguish the rejection reasons a key
// validation can produce; callers surface all of them as a 401.
var (
	ErrKeyExpired   = errors.New("project key expired")
	ErrKeyRevoked   = errors.New("project key revoked")
	ErrKeyMismatch  = errors.New("project key does not match")
	ErrIPNotAllowed = errors.New("client IP not in key allow-list")
)

// APIKeyRepository validates legacy project keys against PostgreSQL.
type APIKeyRepository struct {
	db *pgxpool.Pool
}

// NewAPIKeyRepository creates an APIKeyRepository.
func NewAPIKeyRepository(db *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// KeyPrefixLen is the number of leading key characters stored in clear for
// lookup. It is also the only portion of a key that ever appears in logs.
const KeyPrefixLen = 10

// GetByPrefix retrieves the key record whose stored prefix matches the
// first KeyPrefixLen characters of the presented key.
func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*APIKey, error) {
	var k APIKey
	err := r.db.QueryRow(ctx, `
		SELECT id, project_id, prefix, key_hash, permissions, allowed_ips,
		       expires_at, revoked_at, created_at
		FROM project_keys WHERE prefix = $1`, prefix).Scan(
		&k.ID, &k.ProjectID, &k.Prefix, &k.Hash, &k.Permissions, &k.AllowedIPs,
		&k.ExpiresAt, &k.RevokedAt, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key by prefix: %w", err)
	}
	return &k, nil
}

// Validate checks the presented key against the stored record: digest
// match, expiry, revocation, and the optional IP allow-list. clientIP may
// be empty when the transport could not determine it; an empty IP passes
// only keys without an allow-list.
func (k *APIKey) Validate(presented, clientIP string, now time.Time) error {
	if err := bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(presented)); err != nil {
		return ErrKeyMismatch
	}
	if k.RevokedAt != nil && !k.RevokedAt.After(now) {
		return ErrKeyRevoked
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return ErrKeyExpired
	}
	if len(k.AllowedIPs) > 0 {
		for _, ip := range k.AllowedIPs {
			if ip == clientIP {
				return nil
			}
		}
		return ErrIPNotAllowed
	}
	return nil
}
