package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// ControlFilter narrows catalog listings.
type ControlFilter struct {
	FrameworkID *string
	Family      *string
	Baseline    *string
	Search      string
	Page        Page
}

// ControlRepository manages frameworks and their controls.
type ControlRepository interface {
	UpsertFramework(ctx context.Context, fw *domain.Framework) error
	UpsertControl(ctx context.Context, control *domain.Control) error
	ListFrameworks(ctx context.Context) ([]domain.Framework, error)
	GetControl(ctx context.Context, id string) (*domain.Control, error)
	GetControls(ctx context.Context, ids []string) ([]domain.Control, error)
	ListControls(ctx context.Context, filter ControlFilter) ([]domain.Control, int, error)
	CountControls(ctx context.Context) (int, error)
}

type controlRepository struct {
	db *sqlx.DB
}

// NewControlRepository builds the repository.
func NewControlRepository(db *sqlx.DB) ControlRepository {
	return &controlRepository{db: db}
}

const controlColumns = `id, framework_id, control_ref, family, title, description, baseline, created_at, updated_at`

// UpsertFramework inserts fw or refreshes the existing (name, version) row.
// fw.ID is replaced with the stored id.
func (r *controlRepository) UpsertFramework(ctx context.Context, fw *domain.Framework) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO frameworks (id, name, version, description, created_at, updated_at)
        VALUES (:id, :name, :version, :description, :created_at, :updated_at)
        ON CONFLICT (name, version) DO UPDATE SET description=excluded.description, updated_at=excluded.updated_at`, fw)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`SELECT id FROM frameworks WHERE name=? AND version=?`)
	return r.db.GetContext(ctx, &fw.ID, query, fw.Name, fw.Version)
}

// UpsertControl inserts control or refreshes the existing (framework, ref) row.
func (r *controlRepository) UpsertControl(ctx context.Context, control *domain.Control) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO controls (`+controlColumns+`)
        VALUES (:id, :framework_id, :control_ref, :family, :title, :description, :baseline, :created_at, :updated_at)
        ON CONFLICT (framework_id, control_ref) DO UPDATE SET
            family=excluded.family, title=excluded.title, description=excluded.description,
            baseline=excluded.baseline, updated_at=excluded.updated_at`, control)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`SELECT id FROM controls WHERE framework_id=? AND control_ref=?`)
	return r.db.GetContext(ctx, &control.ID, query, control.FrameworkID, control.ControlRef)
}

func (r *controlRepository) ListFrameworks(ctx context.Context) ([]domain.Framework, error) {
	frameworks := []domain.Framework{}
	err := r.db.SelectContext(ctx, &frameworks,
		`SELECT id, name, version, description, created_at, updated_at FROM frameworks ORDER BY name, version`)
	return frameworks, err
}

func (r *controlRepository) GetControl(ctx context.Context, id string) (*domain.Control, error) {
	var control domain.Control
	query := r.db.Rebind(`SELECT ` + controlColumns + ` FROM controls WHERE id=?`)
	if err := r.db.GetContext(ctx, &control, query, id); err != nil {
		return nil, err
	}
	return &control, nil
}

func (r *controlRepository) GetControls(ctx context.Context, ids []string) ([]domain.Control, error) {
	controls := []domain.Control{}
	if len(ids) == 0 {
		return controls, nil
	}
	query, args, err := sqlx.In(`SELECT `+controlColumns+` FROM controls WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	err = r.db.SelectContext(ctx, &controls, r.db.Rebind(query), args...)
	return controls, err
}

func (r *controlRepository) ListControls(ctx context.Context, filter ControlFilter) ([]domain.Control, int, error) {
	where := newWhere("1 = 1")
	where.eq("framework_id", filter.FrameworkID)
	where.eq("family", filter.Family)
	where.eq("baseline", filter.Baseline)
	where.search(filter.Search, "control_ref", "title", "description")
	return selectPage[domain.Control](ctx, r.db,
		`SELECT `+controlColumns+` FROM controls`,
		`SELECT COUNT(*) FROM controls`,
		"family ASC, control_ref ASC", where, filter.Page)
}

func (r *controlRepository) CountControls(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM controls`)
	return n, err
}
