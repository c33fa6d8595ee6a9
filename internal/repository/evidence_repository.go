package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// EvidenceFilter narrows evidence listings.
type EvidenceFilter struct {
	Status           *string
	ImplementationID *string
	Search           string
	Page             Page
}

// EvidenceRepository persists evidence metadata and implementation links.
type EvidenceRepository interface {
	Create(ctx context.Context, ev *domain.Evidence) error
	Update(ctx context.Context, ev *domain.Evidence) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Evidence, error)
	List(ctx context.Context, orgID string, filter EvidenceFilter) ([]domain.Evidence, int, error)
	Link(ctx context.Context, evidenceID, implementationID string, at time.Time) error
	Unlink(ctx context.Context, evidenceID, implementationID string) error
	LinkedImplementationIDs(ctx context.Context, evidenceID string) ([]string, error)
	ExpireDue(ctx context.Context, now time.Time) ([]domain.Evidence, error)
	CountExpiringBetween(ctx context.Context, orgID string, from, to time.Time) (int, error)
	ListExpiringBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.Evidence, error)
}

type evidenceRepository struct {
	db *sqlx.DB
}

// NewEvidenceRepository builds the repository.
func NewEvidenceRepository(db *sqlx.DB) EvidenceRepository {
	return &evidenceRepository{db: db}
}

const evidenceColumns = `id, org_id, title, description, file_name, mime_type, size_bytes, sha256, storage_key,
        collected_at, expires_at, status, uploaded_by, created_at, updated_at`

func (r *evidenceRepository) Create(ctx context.Context, ev *domain.Evidence) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO evidence (`+evidenceColumns+`)
        VALUES (:id, :org_id, :title, :description, :file_name, :mime_type, :size_bytes, :sha256, :storage_key,
                :collected_at, :expires_at, :status, :uploaded_by, :created_at, :updated_at)`, ev)
	return err
}

func (r *evidenceRepository) Update(ctx context.Context, ev *domain.Evidence) error {
	return execOne(ctx, r.db, `
        UPDATE evidence SET title=?, description=?, expires_at=?, status=?, updated_at=?
        WHERE id=? AND org_id=?`,
		ev.Title, ev.Description, ev.ExpiresAt, ev.Status, ev.UpdatedAt, ev.ID, ev.OrgID)
}

func (r *evidenceRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Evidence, error) {
	var ev domain.Evidence
	query := r.db.Rebind(`SELECT ` + evidenceColumns + ` FROM evidence WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &ev, query, id, orgID); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *evidenceRepository) List(ctx context.Context, orgID string, filter EvidenceFilter) ([]domain.Evidence, int, error) {
	where := newWhere("org_id = ?", orgID)
	where.eq("status", filter.Status)
	if filter.ImplementationID != nil && *filter.ImplementationID != "" {
		where.add("id IN (SELECT evidence_id FROM evidence_links WHERE implementation_id = ?)", *filter.ImplementationID)
	}
	where.search(filter.Search, "title", "description", "file_name")
	return selectPage[domain.Evidence](ctx, r.db,
		`SELECT `+evidenceColumns+` FROM evidence`,
		`SELECT COUNT(*) FROM evidence`,
		"collected_at DESC", where, filter.Page)
}

func (r *evidenceRepository) Link(ctx context.Context, evidenceID, implementationID string, at time.Time) error {
	query := r.db.Rebind(`
        INSERT INTO evidence_links (evidence_id, implementation_id, created_at) VALUES (?, ?, ?)
        ON CONFLICT (evidence_id, implementation_id) DO NOTHING`)
	_, err := r.db.ExecContext(ctx, query, evidenceID, implementationID, at)
	return err
}

func (r *evidenceRepository) Unlink(ctx context.Context, evidenceID, implementationID string) error {
	return execOne(ctx, r.db, `DELETE FROM evidence_links WHERE evidence_id=? AND implementation_id=?`,
		evidenceID, implementationID)
}

func (r *evidenceRepository) LinkedImplementationIDs(ctx context.Context, evidenceID string) ([]string, error) {
	ids := []string{}
	query := r.db.Rebind(`SELECT implementation_id FROM evidence_links WHERE evidence_id=? ORDER BY created_at`)
	err := r.db.SelectContext(ctx, &ids, query, evidenceID)
	return ids, err
}

// ExpireDue flips active evidence past its expiry to expired and returns the
// affected rows as they were before the update.
func (r *evidenceRepository) ExpireDue(ctx context.Context, now time.Time) ([]domain.Evidence, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	due := []domain.Evidence{}
	query := tx.Rebind(`SELECT ` + evidenceColumns + ` FROM evidence
        WHERE status=? AND expires_at IS NOT NULL AND expires_at <= ?`)
	if err := tx.SelectContext(ctx, &due, query, domain.EvidenceActive, now); err != nil {
		return nil, err
	}
	update := tx.Rebind(`UPDATE evidence SET status=?, updated_at=? WHERE id=?`)
	for _, ev := range due {
		if _, err := tx.ExecContext(ctx, update, domain.EvidenceExpired, now, ev.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *evidenceRepository) CountExpiringBetween(ctx context.Context, orgID string, from, to time.Time) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM evidence
        WHERE org_id=? AND status=? AND expires_at IS NOT NULL AND expires_at >= ? AND expires_at < ?`)
	err := r.db.GetContext(ctx, &n, query, orgID, domain.EvidenceActive, from, to)
	return n, err
}

func (r *evidenceRepository) ListExpiringBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.Evidence, error) {
	items := []domain.Evidence{}
	query := r.db.Rebind(`SELECT ` + evidenceColumns + ` FROM evidence
        WHERE org_id=? AND expires_at IS NOT NULL AND expires_at >= ? AND expires_at < ?
        ORDER BY expires_at ASC`)
	err := r.db.SelectContext(ctx, &items, query, orgID, from, to)
	return items, err
}
