package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// SystemFilter narrows system listings.
type SystemFilter struct {
	Status *string
	Search string
	Page   Page
}

// SystemRepository encapsulates system persistence.
type SystemRepository interface {
	Create(ctx context.Context, system *domain.System) error
	Update(ctx context.Context, system *domain.System) error
	Delete(ctx context.Context, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.System, error)
	List(ctx context.Context, orgID string, filter SystemFilter) ([]domain.System, int, error)
	ListAll(ctx context.Context, orgID string) ([]domain.System, error)
	ListATOExpiringBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.System, error)
}

type systemRepository struct {
	db *sqlx.DB
}

// NewSystemRepository instantiates repository.
func NewSystemRepository(db *sqlx.DB) SystemRepository {
	return &systemRepository{db: db}
}

const systemColumns = `id, org_id, name, acronym, description, impact_level, status, authorization_status,
        ato_date, ato_expiry, common_control_provider, created_at, updated_at`

func (r *systemRepository) Create(ctx context.Context, system *domain.System) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO systems (`+systemColumns+`)
        VALUES (:id, :org_id, :name, :acronym, :description, :impact_level, :status, :authorization_status,
                :ato_date, :ato_expiry, :common_control_provider, :created_at, :updated_at)`, system)
	return err
}

func (r *systemRepository) Update(ctx context.Context, system *domain.System) error {
	const query = `
        UPDATE systems SET name=?, acronym=?, description=?, impact_level=?, status=?,
            authorization_status=?, ato_date=?, ato_expiry=?, common_control_provider=?, updated_at=?
        WHERE id=? AND org_id=?`
	return execOne(ctx, r.db, query,
		system.Name,
		system.Acronym,
		system.Description,
		system.ImpactLevel,
		system.Status,
		system.AuthorizationStatus,
		system.ATODate,
		system.ATOExpiry,
		system.CommonControlProvider,
		system.UpdatedAt,
		system.ID,
		system.OrgID,
	)
}

func (r *systemRepository) Delete(ctx context.Context, orgID, id string) error {
	return execOne(ctx, r.db, `DELETE FROM systems WHERE id=? AND org_id=?`, id, orgID)
}

func (r *systemRepository) GetByID(ctx context.Context, orgID, id string) (*domain.System, error) {
	var system domain.System
	query := r.db.Rebind(`SELECT ` + systemColumns + ` FROM systems WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &system, query, id, orgID); err != nil {
		return nil, err
	}
	return &system, nil
}

func (r *systemRepository) List(ctx context.Context, orgID string, filter SystemFilter) ([]domain.System, int, error) {
	where := newWhere("org_id = ?", orgID)
	where.eq("status", filter.Status)
	where.search(filter.Search, "name", "acronym", "description")
	return selectPage[domain.System](ctx, r.db,
		`SELECT `+systemColumns+` FROM systems`,
		`SELECT COUNT(*) FROM systems`,
		"name ASC", where, filter.Page)
}

func (r *systemRepository) ListAll(ctx context.Context, orgID string) ([]domain.System, error) {
	systems := []domain.System{}
	query := r.db.Rebind(`SELECT ` + systemColumns + ` FROM systems WHERE org_id=? ORDER BY name ASC`)
	err := r.db.SelectContext(ctx, &systems, query, orgID)
	return systems, err
}

func (r *systemRepository) ListATOExpiringBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.System, error) {
	systems := []domain.System{}
	query := r.db.Rebind(`SELECT ` + systemColumns + ` FROM systems
        WHERE org_id=? AND ato_expiry IS NOT NULL AND ato_expiry >= ? AND ato_expiry < ?
        ORDER BY ato_expiry ASC`)
	err := r.db.SelectContext(ctx, &systems, query, orgID, from, to)
	return systems, err
}
