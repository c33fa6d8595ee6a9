package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// OrganizationRepository stores tenants.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type organizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository builds the repository.
func NewOrganizationRepository(db *sqlx.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO organizations (id, name, created_at, updated_at)
        VALUES (:id, :name, :created_at, :updated_at)`, org)
	return err
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	var org domain.Organization
	query := r.db.Rebind(`SELECT id, name, created_at, updated_at FROM organizations WHERE id=?`)
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) ListIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM organizations ORDER BY created_at`)
	return ids, err
}
