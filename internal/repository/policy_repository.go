package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// PolicyFilter narrows policy listings.
type PolicyFilter struct {
	Status   *string
	Category *string
	Search   string
	Page     Page
}

// PolicyRepository persists policy documents.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.Policy) error
	Update(ctx context.Context, policy *domain.Policy) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Policy, error)
	List(ctx context.Context, orgID string, filter PolicyFilter) ([]domain.Policy, int, error)
	CountReviewDue(ctx context.Context, orgID string, before time.Time) (int, error)
	ListReviewBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.Policy, error)
}

type policyRepository struct {
	db queryer
}

// NewPolicyRepository builds the repository.
func NewPolicyRepository(db *sqlx.DB) PolicyRepository {
	return &policyRepository{db: db}
}

const policyColumns = `id, org_id, title, category, version, status, content, owner_id, next_review_date,
        approved_by, approved_at, created_at, updated_at`

func (r *policyRepository) Create(ctx context.Context, policy *domain.Policy) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO policies (`+policyColumns+`)
        VALUES (:id, :org_id, :title, :category, :version, :status, :content, :owner_id, :next_review_date,
                :approved_by, :approved_at, :created_at, :updated_at)`, policy)
	return err
}

func (r *policyRepository) Update(ctx context.Context, policy *domain.Policy) error {
	const query = `
        UPDATE policies SET title=?, category=?, version=?, status=?, content=?, owner_id=?,
            next_review_date=?, approved_by=?, approved_at=?, updated_at=?
        WHERE id=? AND org_id=?`
	return execOne(ctx, r.db, query,
		policy.Title,
		policy.Category,
		policy.Version,
		policy.Status,
		policy.Content,
		policy.OwnerID,
		policy.NextReviewDate,
		policy.ApprovedBy,
		policy.ApprovedAt,
		policy.UpdatedAt,
		policy.ID,
		policy.OrgID,
	)
}

func (r *policyRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Policy, error) {
	var policy domain.Policy
	query := r.db.Rebind(`SELECT ` + policyColumns + ` FROM policies WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &policy, query, id, orgID); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) List(ctx context.Context, orgID string, filter PolicyFilter) ([]domain.Policy, int, error) {
	where := newWhere("org_id = ?", orgID)
	where.eq("status", filter.Status)
	where.eq("category", filter.Category)
	where.search(filter.Search, "title", "category")
	return selectPage[domain.Policy](ctx, r.db,
		`SELECT `+policyColumns+` FROM policies`,
		`SELECT COUNT(*) FROM policies`,
		"title ASC", where, filter.Page)
}

// CountReviewDue counts non-retired policies whose review date falls before the cutoff.
func (r *policyRepository) CountReviewDue(ctx context.Context, orgID string, before time.Time) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM policies
        WHERE org_id=? AND status<>? AND next_review_date IS NOT NULL AND next_review_date < ?`)
	err := r.db.GetContext(ctx, &n, query, orgID, domain.PolicyRetired, before)
	return n, err
}

func (r *policyRepository) ListReviewBetween(ctx context.Context, orgID string, from, to time.Time) ([]domain.Policy, error) {
	items := []domain.Policy{}
	query := r.db.Rebind(`SELECT ` + policyColumns + ` FROM policies
        WHERE org_id=? AND status<>? AND next_review_date IS NOT NULL AND next_review_date >= ? AND next_review_date < ?
        ORDER BY next_review_date ASC`)
	err := r.db.SelectContext(ctx, &items, query, orgID, domain.PolicyRetired, from, to)
	return items, err
}
