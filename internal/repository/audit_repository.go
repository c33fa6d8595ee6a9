package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	Action       *string
	ResourceType *string
	UserID       *string
	From         *time.Time
	To           *time.Time
	Page         Page
}

// AuditRepository appends and reads audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	List(ctx context.Context, orgID string, filter AuditFilter) ([]domain.AuditLogEntry, int, error)
	ListAll(ctx context.Context, orgID string, filter AuditFilter) ([]domain.AuditLogEntry, error)
	Recent(ctx context.Context, orgID string, n int) ([]domain.AuditLogEntry, error)
}

type auditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository builds the repository.
func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &auditRepository{db: db}
}

const auditColumns = `id, org_id, user_id, action, resource_type, resource_id, details, ip_address, user_agent, created_at`

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	entry.DetailsJSON = string(raw)
	_, err = r.db.NamedExecContext(ctx, `
        INSERT INTO audit_log (`+auditColumns+`)
        VALUES (:id, :org_id, :user_id, :action, :resource_type, :resource_id, :details, :ip_address, :user_agent, :created_at)`, entry)
	return err
}

func auditWhere(orgID string, filter AuditFilter) *whereBuilder {
	where := newWhere("org_id = ?", orgID)
	where.eq("action", filter.Action)
	where.eq("resource_type", filter.ResourceType)
	where.eq("user_id", filter.UserID)
	if filter.From != nil {
		where.add("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("created_at < ?", *filter.To)
	}
	return where
}

func (r *auditRepository) List(ctx context.Context, orgID string, filter AuditFilter) ([]domain.AuditLogEntry, int, error) {
	entries, total, err := selectPage[domain.AuditLogEntry](ctx, r.db,
		`SELECT `+auditColumns+` FROM audit_log`,
		`SELECT COUNT(*) FROM audit_log`,
		"created_at DESC", auditWhere(orgID, filter), filter.Page)
	if err != nil {
		return nil, 0, err
	}
	decodeDetails(entries)
	return entries, total, nil
}

func (r *auditRepository) ListAll(ctx context.Context, orgID string, filter AuditFilter) ([]domain.AuditLogEntry, error) {
	where := auditWhere(orgID, filter)
	entries := []domain.AuditLogEntry{}
	query := r.db.Rebind(`SELECT ` + auditColumns + ` FROM audit_log` + where.sql() + ` ORDER BY created_at DESC`)
	if err := r.db.SelectContext(ctx, &entries, query, where.args...); err != nil {
		return nil, err
	}
	decodeDetails(entries)
	return entries, nil
}

func (r *auditRepository) Recent(ctx context.Context, orgID string, n int) ([]domain.AuditLogEntry, error) {
	entries := []domain.AuditLogEntry{}
	query := r.db.Rebind(`SELECT ` + auditColumns + ` FROM audit_log WHERE org_id=? ORDER BY created_at DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &entries, query, orgID, n); err != nil {
		return nil, err
	}
	decodeDetails(entries)
	return entries, nil
}

// decodeDetails fills Details from the stored JSON; malformed rows keep a nil map.
func decodeDetails(entries []domain.AuditLogEntry) {
	for i := range entries {
		if entries[i].DetailsJSON == "" {
			continue
		}
		var details map[string]any
		if err := json.Unmarshal([]byte(entries[i].DetailsJSON), &details); err == nil && len(details) > 0 {
			entries[i].Details = details
		}
	}
}
