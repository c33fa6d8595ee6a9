package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// ApprovalFilter narrows approval listings.
type ApprovalFilter struct {
	Status      *string
	RequestType *string
	Page        Page
}

// ApprovalRepository persists approval requests.
type ApprovalRepository interface {
	Create(ctx context.Context, approval *domain.Approval) error
	Update(ctx context.Context, approval *domain.Approval) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Approval, error)
	List(ctx context.Context, orgID string, filter ApprovalFilter) ([]domain.Approval, int, error)
	FindPending(ctx context.Context, orgID string, requestType domain.ApprovalType, targetID string) (*domain.Approval, error)
	CountPending(ctx context.Context, orgID string) (int, error)
}

type approvalRepository struct {
	db queryer
}

// NewApprovalRepository builds the repository.
func NewApprovalRepository(db *sqlx.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

const approvalColumns = `id, org_id, request_type, target_id, requested_by, justification, status, reviewer_id,
        review_comment, decided_at, created_at, updated_at`

func (r *approvalRepository) Create(ctx context.Context, approval *domain.Approval) error {
	_, err := r.db.NamedExecContext(ctx, `
        INSERT INTO approvals (`+approvalColumns+`)
        VALUES (:id, :org_id, :request_type, :target_id, :requested_by, :justification, :status, :reviewer_id,
                :review_comment, :decided_at, :created_at, :updated_at)`, approval)
	return err
}

// Update only succeeds while the stored row is still pending, so two
// reviewers cannot both decide the same request.
func (r *approvalRepository) Update(ctx context.Context, approval *domain.Approval) error {
	return execOne(ctx, r.db, `
        UPDATE approvals SET status=?, reviewer_id=?, review_comment=?, decided_at=?, updated_at=?
        WHERE id=? AND org_id=? AND status=?`,
		approval.Status, approval.ReviewerID, approval.ReviewComment, approval.DecidedAt, approval.UpdatedAt,
		approval.ID, approval.OrgID, domain.ApprovalPending)
}

func (r *approvalRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Approval, error) {
	var approval domain.Approval
	query := r.db.Rebind(`SELECT ` + approvalColumns + ` FROM approvals WHERE id=? AND org_id=?`)
	if err := r.db.GetContext(ctx, &approval, query, id, orgID); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) List(ctx context.Context, orgID string, filter ApprovalFilter) ([]domain.Approval, int, error) {
	where := newWhere("org_id = ?", orgID)
	where.eq("status", filter.Status)
	where.eq("request_type", filter.RequestType)
	return selectPage[domain.Approval](ctx, r.db,
		`SELECT `+approvalColumns+` FROM approvals`,
		`SELECT COUNT(*) FROM approvals`,
		"created_at DESC", where, filter.Page)
}

func (r *approvalRepository) FindPending(ctx context.Context, orgID string, requestType domain.ApprovalType, targetID string) (*domain.Approval, error) {
	var approval domain.Approval
	query := r.db.Rebind(`SELECT ` + approvalColumns + ` FROM approvals
        WHERE org_id=? AND request_type=? AND target_id=? AND status=?`)
	if err := r.db.GetContext(ctx, &approval, query, orgID, requestType, targetID, domain.ApprovalPending); err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *approvalRepository) CountPending(ctx context.Context, orgID string) (int, error) {
	var n int
	query := r.db.Rebind(`SELECT COUNT(*) FROM approvals WHERE org_id=? AND status=?`)
	err := r.db.GetContext(ctx, &n, query, orgID, domain.ApprovalPending)
	return n, err
}
