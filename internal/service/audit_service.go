package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// AuditService appends and queries the audit log.
type AuditService struct {
	repo   repository.AuditRepository
	logger *zap.Logger
	clock  Clock
}

// NewAuditService constructs the service.
func NewAuditService(repo repository.AuditRepository, logger *zap.Logger, clock Clock) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger, clock: clockOr(clock)}
}

// Record writes one entry. Failures are logged and swallowed so an audit
// outage never rolls back the change it describes.
func (s *AuditService) Record(ctx context.Context, actor domain.Actor, action, resourceType, resourceID string, details map[string]any) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &domain.AuditLogEntry{
		ID:           newID(),
		OrgID:        actor.OrgID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		CreatedAt:    s.clock(),
	}
	if actor.UserID != "" {
		entry.UserID = strPtr(actor.UserID)
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			zap.String("action", action),
			zap.String("resource_type", resourceType),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}

// List returns a page of entries for the actor's org.
func (s *AuditService) List(ctx context.Context, actor domain.Actor, filter repository.AuditFilter) ([]domain.AuditLogEntry, int, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, apperrors.NewValidationError("from must be before to", nil)
	}
	entries, total, err := s.repo.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return entries, total, nil
}

// Export returns every matching entry for CSV export and records the export.
func (s *AuditService) Export(ctx context.Context, actor domain.Actor, filter repository.AuditFilter) ([]domain.AuditLogEntry, error) {
	entries, err := s.repo.ListAll(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.Record(ctx, actor, "export", "audit_log", "", map[string]any{"rows": len(entries)})
	return entries, nil
}

// Recent returns the newest n entries.
func (s *AuditService) Recent(ctx context.Context, orgID string, n int) ([]domain.AuditLogEntry, error) {
	entries, err := s.repo.Recent(ctx, orgID, n)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}
