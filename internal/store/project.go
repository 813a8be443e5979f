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

// Project is one workspace project. Owner is the owning user's username,
// denormalized from the users table at read time.
type Project struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Owner     string    `json:"owner"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectRepository reads project metadata from PostgreSQL.
type ProjectRepository struct {
	db *pgxpool.Pool
}

// NewProjectRepository creates a ProjectRepository.
func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `
	p.id, p.owner_id, u.username, p.slug, p.name, p.created_at, p.updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.OwnerID, &p.Owner, &p.Slug, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a project with its owner's username.
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects p JOIN users u ON u.id = p.owner_id
		WHERE p.id = $1`, id)
	return scanProject(row)
}

// GetByOwnerSlug retrieves a project by its owner username and slug.
func (r *ProjectRepository) GetByOwnerSlug(ctx context.Context, owner, slug string) (*Project, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects p JOIN users u ON u.id = p.owner_id
		WHERE u.username = $1 AND p.slug = $2`, owner, slug)
	return scanProject(row)
}
