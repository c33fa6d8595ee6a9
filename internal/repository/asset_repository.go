package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// AssetFilter narrows inventory listings.
type AssetFilter struct {
	AssetType   *string
	Environment *string
	Criticality *string
	SystemID    *string
	Status      *string
	Search      string
	Page        Page
}

// AssetRepository persists inventory items.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	Update(ctx context.Context, asset *domain.Asset) error
	Delete(ctx context.Context, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Asset, error)
	List(ctx context.Context, orgID string, filter AssetFilter) ([]domain.Asset, int, error)
	ListAll(ctx context.Context, orgID string, filter AssetFilter) ([]domain.Asset, error)
}

type assetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository builds the repository.
func NewAssetRepository(db *sqlx.DB) AssetRepository {
	return &assetRepository{db: db}
}

const assetColumns = `id, org_id, system_id, name, asset_type, hostname, ip_address, operating_system, owner,
        environment, criticality, status, last_seen_at, created_at, updated_at`

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO assets (`+assetColumns+`)
        VALUES (:id, :org_id, :system_id, :name, :asset_type, :hostname, :ip_address, :operating_system, :owner,
                :environment, :criticality, :status, :last_seen_at, :created_at, :updated_at)`, asset)
	return err
}

func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	const query = `
        UPDATE assets SET system_id=?, name=?, asset_type=?, hostname=?, ip_address=?, operating_system=?,
            owner=?, environment=?, criticality=?, status=?, last_seen_at=?, updated_at=?
        WHERE id=? AND org_id=?`
	return execOne(ctx, r.db, query,
		asset.SystemID,
		asset.Name,
		asset.AssetType,
		asset.Hostname,
		asset.IPAddress,
		asset.OperatingSystem,
		asset.Owner,
		asset.Environment,
		asset.Criticality,
		asset.Status,
		asset.LastSeenAt,
		asset.UpdatedAt,
		asset.ID,
		asset.OrgID,
	)
}

func (r *assetRepository) Delete(ctx context.Context, orgID, id string) error {
	return execOne(ctx, r.db, `DELETE FROM assets WHERE id=? AND org_id=?`, id, orgID)
}

func (r *assetRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Asset, error) {
	var asset domain.Asset
	query := r.db.Rebind(`SELECT ` + assetColumns + ` FROM assets WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &asset, query, id, orgID); err != nil {
		return nil, err
	}
	return &asset, nil
}

func assetWhere(orgID string, filter AssetFilter) *whereBuilder {
	where := newWhere("org_id = ?", orgID)
	where.eq("asset_type", filter.AssetType)
	where.eq("environment", filter.Environment)
	where.eq("criticality", filter.Criticality)
	where.eq("system_id", filter.SystemID)
	where.eq("status", filter.Status)
	where.search(filter.Search, "name", "hostname", "ip_address", "owner")
	return where
}

func (r *assetRepository) List(ctx context.Context, orgID string, filter AssetFilter) ([]domain.Asset, int, error) {
	return selectPage[domain.Asset](ctx, r.db,
		`SELECT `+assetColumns+` FROM assets`,
		`SELECT COUNT(*) FROM assets`,
		"name ASC", assetWhere(orgID, filter), filter.Page)
}

func (r *assetRepository) ListAll(ctx context.Context, orgID string, filter AssetFilter) ([]domain.Asset, error) {
	where := assetWhere(orgID, filter)
	assets := []domain.Asset{}
	query := r.db.Rebind(`SELECT ` + assetColumns + ` FROM assets` + where.sql() + ` ORDER BY name ASC`)
	err := r.db.SelectContext(ctx, &assets, query, where.args...)
	return assets, err
}
