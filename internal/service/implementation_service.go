package service

import (
	"context"
	"strings"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// MaxBulkItems caps one bulk implementation request.
const MaxBulkItems = 500

// ImplementationService records how systems satisfy controls.
type ImplementationService struct {
	implementations repository.ImplementationRepository
	systems         repository.SystemRepository
	controls        repository.ControlRepository
	audit           *AuditService
	clock           Clock
}

// ImplementationDependencies bundles collaborators.
type ImplementationDependencies struct {
	ImplementationRepo repository.ImplementationRepository
	SystemRepo         repository.SystemRepository
	ControlRepo        repository.ControlRepository
	Audit              *AuditService
	Clock              Clock
}

// ImplementationInput is the desired state of one implementation.
type ImplementationInput struct {
	Status                domain.ImplementationStatus
	Origination           domain.Origination
	InheritedFromSystemID *string
	ResponsibleRole       string
	Narrative             string
}

// BulkItemResult is the outcome for one control in a bulk update.
type BulkItemResult struct {
	ControlID string `json:"control_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// BulkResult reports progress counters alongside per-item results.
type BulkResult struct {
	Processed int              `json:"processed"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

// NewImplementationService constructs the service.
func NewImplementationService(deps ImplementationDependencies) *ImplementationService {
	return &ImplementationService{
		implementations: deps.ImplementationRepo,
		systems:         deps.SystemRepo,
		controls:        deps.ControlRepo,
		audit:           deps.Audit,
		clock:           clockOr(deps.Clock),
	}
}

// ListBySystem returns implementations of one system joined with control data.
func (s *ImplementationService) ListBySystem(ctx context.Context, actor domain.Actor, systemID string, filter repository.ImplementationFilter) ([]domain.ImplementationView, int, error) {
	if _, err := s.systems.GetByID(ctx, actor.OrgID, systemID); err != nil {
		return nil, 0, lookupErr(err, "system", systemID)
	}
	items, total, err := s.implementations.ListBySystem(ctx, actor.OrgID, systemID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return items, total, nil
}

// Upsert sets the implementation of controlID on systemID.
func (s *ImplementationService) Upsert(ctx context.Context, actor domain.Actor, systemID, controlID string, input ImplementationInput) (*domain.Implementation, error) {
	if _, err := s.systems.GetByID(ctx, actor.OrgID, systemID); err != nil {
		return nil, lookupErr(err, "system", systemID)
	}
	if _, err := s.controls.GetControl(ctx, controlID); err != nil {
		return nil, lookupErr(err, "control", controlID)
	}
	impl, err := s.write(ctx, actor, systemID, controlID, input)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "upsert", "implementation", impl.ID, map[string]any{
		"system_id":  systemID,
		"control_id": controlID,
		"status":     impl.Status,
	})
	return impl, nil
}

// Bulk applies one input to many controls, continuing past failures.
func (s *ImplementationService) Bulk(ctx context.Context, actor domain.Actor, systemID string, controlIDs []string, input ImplementationInput) (*BulkResult, error) {
	if len(controlIDs) == 0 {
		return nil, apperrors.NewValidationError("control_ids is required", nil)
	}
	if len(controlIDs) > MaxBulkItems {
		return nil, apperrors.NewValidationError("too many controls in one request", map[string]any{"max": MaxBulkItems})
	}
	if _, err := s.systems.GetByID(ctx, actor.OrgID, systemID); err != nil {
		return nil, lookupErr(err, "system", systemID)
	}
	if err := s.validateInput(ctx, actor, systemID, &input); err != nil {
		return nil, err
	}

	controls, err := s.controls.GetControls(ctx, controlIDs)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	known := make(map[string]bool, len(controls))
	for _, c := range controls {
		known[c.ID] = true
	}

	result := &BulkResult{Items: make([]BulkItemResult, 0, len(controlIDs))}
	seen := make(map[string]bool, len(controlIDs))
	for _, controlID := range controlIDs {
		if seen[controlID] {
			continue
		}
		seen[controlID] = true
		result.Processed++

		item := BulkItemResult{ControlID: controlID}
		if !known[controlID] {
			item.Error = "control not found"
		} else if _, err := s.write(ctx, actor, systemID, controlID, input); err != nil {
			item.Error = apperrors.ToDomainError(err).Message
		} else {
			item.OK = true
		}
		if item.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, item)
		if ctx.Err() != nil {
			break
		}
	}

	s.audit.Record(ctx, actor, "bulk_upsert", "implementation", systemID, map[string]any{
		"status":    input.Status,
		"processed": result.Processed,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
	return result, nil
}

func (s *ImplementationService) write(ctx context.Context, actor domain.Actor, systemID, controlID string, input ImplementationInput) (*domain.Implementation, error) {
	if err := s.validateInput(ctx, actor, systemID, &input); err != nil {
		return nil, err
	}
	now := s.clock()
	impl := &domain.Implementation{
		ID:                    newID(),
		OrgID:                 actor.OrgID,
		SystemID:              systemID,
		ControlID:             controlID,
		Status:                input.Status,
		Origination:           input.Origination,
		InheritedFromSystemID: input.InheritedFromSystemID,
		ResponsibleRole:       strings.TrimSpace(input.ResponsibleRole),
		Narrative:             input.Narrative,
		LastReviewedAt:        timePtr(now),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.implementations.Upsert(ctx, impl); err != nil {
		return nil, storeErr(err, "implementation")
	}
	return impl, nil
}

// validateInput fills defaults and checks inheritance rules: an inherited or
// hybrid implementation names a different system of the same org that is a
// common control provider.
func (s *ImplementationService) validateInput(ctx context.Context, actor domain.Actor, systemID string, input *ImplementationInput) error {
	if input.Status == "" {
		input.Status = domain.ImplNotImplemented
	}
	if !input.Status.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
	}
	if input.Origination == "" {
		input.Origination = domain.OriginSystemSpecific
	}
	if !input.Origination.Valid() {
		return apperrors.NewValidationError("invalid origination", map[string]any{"origination": input.Origination})
	}
	input.InheritedFromSystemID = emptyToNil(input.InheritedFromSystemID)

	if input.Origination == domain.OriginSystemSpecific {
		input.InheritedFromSystemID = nil
		return nil
	}
	if input.InheritedFromSystemID == nil {
		return apperrors.NewValidationError("inherited_from_system_id is required for inherited controls", nil)
	}
	providerID := *input.InheritedFromSystemID
	if providerID == systemID {
		return apperrors.NewValidationError("a system cannot inherit from itself", nil)
	}
	provider, err := s.systems.GetByID(ctx, actor.OrgID, providerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("inherited_from_system_id does not exist", map[string]any{"inherited_from_system_id": providerID})
		}
		return apperrors.NewInternalError(err)
	}
	if !provider.CommonControlProvider {
		return apperrors.NewValidationError("provider system is not a common control provider", map[string]any{"inherited_from_system_id": providerID})
	}
	return nil
}
