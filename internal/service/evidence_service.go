package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/storage"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// EvidenceService stores evidence artifacts and links them to implementations.
type EvidenceService struct {
	evidence        repository.EvidenceRepository
	implementations repository.ImplementationRepository
	blobs           *storage.BlobStore
	audit           *AuditService
	logger          *zap.Logger
	clock           Clock
}

// EvidenceDependencies bundles collaborators.
type EvidenceDependencies struct {
	EvidenceRepo       repository.EvidenceRepository
	ImplementationRepo repository.ImplementationRepository
	Blobs              *storage.BlobStore
	Audit              *AuditService
	Logger             *zap.Logger
	Clock              Clock
}

// EvidenceUpload describes an incoming artifact.
type EvidenceUpload struct {
	Title       string
	Description string
	FileName    string
	MimeType    string
	CollectedAt *time.Time
	ExpiresAt   *time.Time
	Body        io.Reader
}

// EvidenceUpdate carries metadata changes; nil means unchanged.
type EvidenceUpdate struct {
	Title       *string
	Description *string
	ExpiresAt   *time.Time
}

// NewEvidenceService constructs the service.
func NewEvidenceService(deps EvidenceDependencies) *EvidenceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvidenceService{
		evidence:        deps.EvidenceRepo,
		implementations: deps.ImplementationRepo,
		blobs:           deps.Blobs,
		audit:           deps.Audit,
		logger:          logger,
		clock:           clockOr(deps.Clock),
	}
}

func (s *EvidenceService) List(ctx context.Context, actor domain.Actor, filter repository.EvidenceFilter) ([]domain.Evidence, int, error) {
	items, total, err := s.evidence.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return items, total, nil
}

// Get returns evidence with its linked implementation ids.
func (s *EvidenceService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Evidence, error) {
	ev, err := s.evidence.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "evidence", id)
	}
	links, err := s.evidence.LinkedImplementationIDs(ctx, ev.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ev.LinkedImplementationIDs = links
	return ev, nil
}

// Upload stores the body and records its metadata.
func (s *EvidenceService) Upload(ctx context.Context, actor domain.Actor, input EvidenceUpload) (*domain.Evidence, error) {
	title := strings.TrimSpace(input.Title)
	fileName := filepath.Base(strings.TrimSpace(input.FileName))
	if title == "" {
		title = fileName
	}
	if title == "" || fileName == "" || fileName == "." || input.Body == nil {
		return nil, apperrors.NewValidationError("file and title are required", nil)
	}
	now := s.clock()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, apperrors.NewValidationError("expires_at must be in the future", nil)
	}

	id := newID()
	key := actor.OrgID + "/" + id
	info, err := s.blobs.Put(key, input.Body)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperrors.NewPayloadTooLarge("file exceeds the upload limit", map[string]any{"max_bytes": s.blobs.MaxBytes()})
		}
		return nil, apperrors.NewInternalError(err)
	}

	mime := input.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	collected := now
	if input.CollectedAt != nil {
		collected = input.CollectedAt.UTC()
	}
	ev := &domain.Evidence{
		ID:          id,
		OrgID:       actor.OrgID,
		Title:       title,
		Description: input.Description,
		FileName:    fileName,
		MimeType:    mime,
		SizeBytes:   info.Size,
		SHA256:      info.SHA256,
		StorageKey:  key,
		CollectedAt: collected,
		Status:      domain.EvidenceActive,
		UploadedBy:  strPtr(actor.UserID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.ExpiresAt != nil {
		ev.ExpiresAt = timePtr(input.ExpiresAt.UTC())
	}
	if err := s.evidence.Create(ctx, ev); err != nil {
		if delErr := s.blobs.Delete(key); delErr != nil {
			s.logger.Warn("orphaned evidence blob", zap.String("key", key), zap.Error(delErr))
		}
		return nil, storeErr(err, "evidence")
	}
	s.audit.Record(ctx, actor, "upload", "evidence", ev.ID, map[string]any{
		"file_name":  ev.FileName,
		"size_bytes": ev.SizeBytes,
		"sha256":     ev.SHA256,
	})
	return ev, nil
}

// Update edits metadata of active evidence. A new future expiry reactivates
// expired evidence.
func (s *EvidenceService) Update(ctx context.Context, actor domain.Actor, id string, input EvidenceUpdate) (*domain.Evidence, error) {
	ev, err := s.evidence.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "evidence", id)
	}
	if ev.Status == domain.EvidenceArchived {
		return nil, apperrors.NewConflict("archived evidence cannot be edited", nil)
	}
	now := s.clock()
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ev.Title = title
	}
	if input.Description != nil {
		ev.Description = *input.Description
	}
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, apperrors.NewValidationError("expires_at must be in the future", nil)
		}
		ev.ExpiresAt = timePtr(input.ExpiresAt.UTC())
		ev.Status = domain.EvidenceActive
	}
	ev.UpdatedAt = now
	if err := s.evidence.Update(ctx, ev); err != nil {
		return nil, storeErr(err, "evidence")
	}
	s.audit.Record(ctx, actor, "update", "evidence", ev.ID, nil)
	return ev, nil
}

// Open returns the metadata and a reader over the stored file.
func (s *EvidenceService) Open(ctx context.Context, actor domain.Actor, id string) (*domain.Evidence, io.ReadCloser, error) {
	ev, err := s.evidence.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, nil, lookupErr(err, "evidence", id)
	}
	f, err := s.blobs.Open(ev.StorageKey)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	s.audit.Record(ctx, actor, "download", "evidence", ev.ID, nil)
	return ev, f, nil
}

// Link attaches evidence to an implementation of the same org. Linking twice
// is a no-op.
func (s *EvidenceService) Link(ctx context.Context, actor domain.Actor, id, implementationID string) error {
	ev, err := s.evidence.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return lookupErr(err, "evidence", id)
	}
	if ev.Status == domain.EvidenceArchived {
		return apperrors.NewConflict("archived evidence cannot be linked", nil)
	}
	if _, err := s.implementations.GetByID(ctx, actor.OrgID, implementationID); err != nil {
		return lookupErr(err, "implementation", implementationID)
	}
	if err := s.evidence.Link(ctx, ev.ID, implementationID, s.clock()); err != nil {
		return storeErr(err, "evidence link")
	}
	s.audit.Record(ctx, actor, "link", "evidence", ev.ID, map[string]any{"implementation_id": implementationID})
	return nil
}

func (s *EvidenceService) Unlink(ctx context.Context, actor domain.Actor, id, implementationID string) error {
	if _, err := s.evidence.GetByID(ctx, actor.OrgID, id); err != nil {
		return lookupErr(err, "evidence", id)
	}
	if err := s.evidence.Unlink(ctx, id, implementationID); err != nil {
		return lookupErr(err, "evidence link", implementationID)
	}
	s.audit.Record(ctx, actor, "unlink", "evidence", id, map[string]any{"implementation_id": implementationID})
	return nil
}

// Archive retires evidence; the file is kept for the audit trail.
func (s *EvidenceService) Archive(ctx context.Context, actor domain.Actor, id string) (*domain.Evidence, error) {
	ev, err := s.evidence.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "evidence", id)
	}
	if ev.Status == domain.EvidenceArchived {
		return ev, nil
	}
	ev.Status = domain.EvidenceArchived
	ev.UpdatedAt = s.clock()
	if err := s.evidence.Update(ctx, ev); err != nil {
		return nil, storeErr(err, "evidence")
	}
	s.audit.Record(ctx, actor, "archive", "evidence", ev.ID, nil)
	return ev, nil
}
