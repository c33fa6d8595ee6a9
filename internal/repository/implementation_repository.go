package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// ImplementationFilter narrows a system's implementation listing.
type ImplementationFilter struct {
	Status *string
	Family *string
	Search string
	Page   Page
}

// InheritanceEdge links a providing system to a system that inherits from it.
type InheritanceEdge struct {
	ProviderID  string `db:"provider_id"`
	InheritorID string `db:"inheritor_id"`
	Controls    int    `db:"controls"`
}

// ImplementationRepository persists control implementations.
type ImplementationRepository interface {
	Upsert(ctx context.Context, impl *domain.Implementation) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Implementation, error)
	GetBySystemControl(ctx context.Context, orgID, systemID, controlID string) (*domain.Implementation, error)
	ListBySystem(ctx context.Context, orgID, systemID string, filter ImplementationFilter) ([]domain.ImplementationView, int, error)
	StatusCounts(ctx context.Context, orgID string, systemID *string) ([]StatusCount, error)
	InheritanceEdges(ctx context.Context, orgID string) ([]InheritanceEdge, error)
}

type implementationRepository struct {
	db *sqlx.DB
}

// NewImplementationRepository builds the repository.
func NewImplementationRepository(db *sqlx.DB) ImplementationRepository {
	return &implementationRepository{db: db}
}

const implementationColumns = `id, org_id, system_id, control_id, status, origination, inherited_from_system_id,
        responsible_role, narrative, last_reviewed_at, created_at, updated_at`

// Upsert writes impl keyed by (system_id, control_id); impl.ID and
// impl.CreatedAt are refreshed from the stored row.
func (r *implementationRepository) Upsert(ctx context.Context, impl *domain.Implementation) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO implementations (`+implementationColumns+`)
        VALUES (:id, :org_id, :system_id, :control_id, :status, :origination, :inherited_from_system_id,
                :responsible_role, :narrative, :last_reviewed_at, :created_at, :updated_at)
        ON CONFLICT (system_id, control_id) DO UPDATE SET
            status=excluded.status, origination=excluded.origination,
            inherited_from_system_id=excluded.inherited_from_system_id,
            responsible_role=excluded.responsible_role, narrative=excluded.narrative,
            last_reviewed_at=excluded.last_reviewed_at, updated_at=excluded.updated_at`, impl)
	if err != nil {
		return err
	}
	stored, err := r.GetBySystemControl(ctx, impl.OrgID, impl.SystemID, impl.ControlID)
	if err != nil {
		return err
	}
	*impl = *stored
	return nil
}

func (r *implementationRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Implementation, error) {
	var impl domain.Implementation
	query := r.db.Rebind(`SELECT ` + implementationColumns + ` FROM implementations WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &impl, query, id, orgID); err != nil {
		return nil, err
	}
	return &impl, nil
}

func (r *implementationRepository) GetBySystemControl(ctx context.Context, orgID, systemID, controlID string) (*domain.Implementation, error) {
	var impl domain.Implementation
	query := r.db.Rebind(`SELECT ` + implementationColumns + ` FROM implementations
        WHERE org_id=? AND system_id=? AND control_id=?`)
	if err := r.db.GetContext(ctx, &impl, query, orgID, systemID, controlID); err != nil {
		return nil, err
	}
	return &impl, nil
}

func (r *implementationRepository) ListBySystem(ctx context.Context, orgID, systemID string, filter ImplementationFilter) ([]domain.ImplementationView, int, error) {
	where := newWhere("i.org_id = ? AND i.system_id = ?", orgID, systemID)
	where.eq("i.status", filter.Status)
	where.eq("c.family", filter.Family)
	where.search(filter.Search, "c.control_ref", "c.title", "i.narrative")
	return selectPage[domain.ImplementationView](ctx, r.db, `
        SELECT i.id, i.org_id, i.system_id, i.control_id, i.status, i.origination, i.inherited_from_system_id,
               i.responsible_role, i.narrative, i.last_reviewed_at, i.created_at, i.updated_at,
               c.control_ref, c.title AS control_title, c.family
        FROM implementations i JOIN controls c ON c.id = i.control_id`,
		`SELECT COUNT(*) FROM implementations i JOIN controls c ON c.id = i.control_id`,
		"c.family ASC, c.control_ref ASC", where, filter.Page)
}

// StatusCounts aggregates implementation statuses for the org or one system.
func (r *implementationRepository) StatusCounts(ctx context.Context, orgID string, systemID *string) ([]StatusCount, error) {
	where := newWhere("org_id = ?", orgID)
	where.eq("system_id", systemID)
	counts := []StatusCount{}
	query := r.db.Rebind(`SELECT status, COUNT(*) AS count FROM implementations` + where.sql() + ` GROUP BY status ORDER BY status`)
	err := r.db.SelectContext(ctx, &counts, query, where.args...)
	return counts, err
}

// InheritanceEdges returns one edge per (provider, inheritor) pair with the
// number of controls inherited across it.
func (r *implementationRepository) InheritanceEdges(ctx context.Context, orgID string) ([]InheritanceEdge, error) {
	edges := []InheritanceEdge{}
	query := r.db.Rebind(`
        SELECT inherited_from_system_id AS provider_id, system_id AS inheritor_id, COUNT(*) AS controls
        FROM implementations
        WHERE org_id = ? AND inherited_from_system_id IS NOT NULL AND origination IN (?, ?)
        GROUP BY inherited_from_system_id, system_id
        ORDER BY inherited_from_system_id, system_id`)
	err := r.db.SelectContext(ctx, &edges, query, orgID, domain.OriginInherited, domain.OriginHybrid)
	return edges, err
}
