package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/pkg/inheritance"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// SystemService manages information systems and their compliance posture.
type SystemService struct {
	systems         repository.SystemRepository
	implementations repository.ImplementationRepository
	controls        repository.ControlRepository
	audit           *AuditService
	clock           Clock
}

// SystemDependencies bundles collaborators.
type SystemDependencies struct {
	SystemRepo         repository.SystemRepository
	ImplementationRepo repository.ImplementationRepository
	ControlRepo        repository.ControlRepository
	Audit              *AuditService
	Clock              Clock
}

// SystemInput carries system fields. Nil pointers leave values unchanged on update.
type SystemInput struct {
	Name                  *string
	Acronym               *string
	Description           *string
	ImpactLevel           *domain.ImpactLevel
	Status                *domain.SystemStatus
	AuthorizationStatus   *domain.AuthorizationStatus
	ATODate               *time.Time
	ATOExpiry             *time.Time
	CommonControlProvider *bool
}

// ComplianceSummary is the implementation breakdown of one system.
type ComplianceSummary struct {
	SystemID          string         `json:"system_id"`
	TotalControls     int            `json:"total_controls"`
	Implemented       int            `json:"implemented"`
	ByStatus          map[string]int `json:"by_status"`
	PercentCompliance float64        `json:"percent_compliance"`
}

// NewSystemService constructs the service.
func NewSystemService(deps SystemDependencies) *SystemService {
	return &SystemService{
		systems:         deps.SystemRepo,
		implementations: deps.ImplementationRepo,
		controls:        deps.ControlRepo,
		audit:           deps.Audit,
		clock:           clockOr(deps.Clock),
	}
}

func (s *SystemService) List(ctx context.Context, actor domain.Actor, filter repository.SystemFilter) ([]domain.System, int, error) {
	systems, total, err := s.systems.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return systems, total, nil
}

func (s *SystemService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.System, error) {
	system, err := s.systems.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "system", id)
	}
	return system, nil
}

// Create registers a new system. Name and impact level are required.
func (s *SystemService) Create(ctx context.Context, actor domain.Actor, input SystemInput) (*domain.System, error) {
	now := s.clock()
	system := &domain.System{
		ID:                  newID(),
		OrgID:               actor.OrgID,
		Status:              domain.SystemStatusActive,
		AuthorizationStatus: domain.AuthorizationNotStarted,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if input.Name == nil || input.ImpactLevel == nil {
		return nil, apperrors.NewValidationError("name and impact_level are required", nil)
	}
	if err := applySystemInput(system, input); err != nil {
		return nil, err
	}
	if err := s.systems.Create(ctx, system); err != nil {
		return nil, storeErr(err, "system")
	}
	s.audit.Record(ctx, actor, "create", "system", system.ID, map[string]any{"name": system.Name})
	return system, nil
}

func (s *SystemService) Update(ctx context.Context, actor domain.Actor, id string, input SystemInput) (*domain.System, error) {
	system, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applySystemInput(system, input); err != nil {
		return nil, err
	}
	system.UpdatedAt = s.clock()
	if err := s.systems.Update(ctx, system); err != nil {
		return nil, storeErr(err, "system")
	}
	s.audit.Record(ctx, actor, "update", "system", system.ID, nil)
	return system, nil
}

func (s *SystemService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.systems.Delete(ctx, actor.OrgID, id); err != nil {
		return storeErr(err, "system")
	}
	s.audit.Record(ctx, actor, "delete", "system", id, nil)
	return nil
}

// Compliance summarises implementation status for a system against the full catalog.
func (s *SystemService) Compliance(ctx context.Context, actor domain.Actor, id string) (*ComplianceSummary, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	counts, err := s.implementations.StatusCounts(ctx, actor.OrgID, &id)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	total, err := s.controls.CountControls(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return summarize(id, counts, total), nil
}

func summarize(systemID string, counts []repository.StatusCount, totalControls int) *ComplianceSummary {
	summary := &ComplianceSummary{SystemID: systemID, TotalControls: totalControls, ByStatus: map[string]int{}}
	tracked := 0
	for _, c := range counts {
		summary.ByStatus[c.Status] = c.Count
		tracked += c.Count
		if domain.ImplementationStatus(c.Status).Satisfied() {
			summary.Implemented += c.Count
		}
	}
	// Controls with no implementation row count as not implemented.
	if untracked := totalControls - tracked; untracked > 0 {
		summary.ByStatus[string(domain.ImplNotImplemented)] += untracked
	}
	summary.PercentCompliance = percent(summary.Implemented, max(totalControls, tracked))
	return summary
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

// InheritanceTree lays out provider to inheritor relationships for the org.
func (s *SystemService) InheritanceTree(ctx context.Context, actor domain.Actor) (inheritance.Layout, error) {
	systems, err := s.systems.ListAll(ctx, actor.OrgID)
	if err != nil {
		return inheritance.Layout{}, apperrors.NewInternalError(err)
	}
	edges, err := s.implementations.InheritanceEdges(ctx, actor.OrgID)
	if err != nil {
		return inheritance.Layout{}, apperrors.NewInternalError(err)
	}

	nodes := make([]inheritance.Node, 0, len(systems))
	for _, sys := range systems {
		label := sys.Name
		if sys.Acronym != "" {
			label = sys.Acronym
		}
		subtitle := string(sys.ImpactLevel) + " impact"
		if sys.CommonControlProvider {
			subtitle = "common control provider"
		}
		nodes = append(nodes, inheritance.Node{ID: sys.ID, Label: label, Subtitle: subtitle})
	}
	links := make([]inheritance.Edge, 0, len(edges))
	for _, e := range edges {
		links = append(links, inheritance.Edge{From: e.ProviderID, To: e.InheritorID, Weight: e.Controls})
	}
	return inheritance.Compute(nodes, links, inheritance.DefaultOptions), nil
}

func applySystemInput(system *domain.System, input SystemInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperrors.NewValidationError("name cannot be empty", nil)
		}
		system.Name = name
	}
	if input.Acronym != nil {
		system.Acronym = strings.TrimSpace(*input.Acronym)
	}
	if input.Description != nil {
		system.Description = *input.Description
	}
	if input.ImpactLevel != nil {
		switch *input.ImpactLevel {
		case domain.ImpactLow, domain.ImpactModerate, domain.ImpactHigh:
			system.ImpactLevel = *input.ImpactLevel
		default:
			return apperrors.NewValidationError("invalid impact_level", map[string]any{"impact_level": *input.ImpactLevel})
		}
	}
	if input.Status != nil {
		switch *input.Status {
		case domain.SystemStatusActive, domain.SystemStatusInactive, domain.SystemStatusDecommissioned:
			system.Status = *input.Status
		default:
			return apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
		}
	}
	if input.AuthorizationStatus != nil {
		switch *input.AuthorizationStatus {
		case domain.AuthorizationNotStarted, domain.AuthorizationInProgress, domain.AuthorizationAuthorized,
			domain.AuthorizationDenied, domain.AuthorizationExpired:
			system.AuthorizationStatus = *input.AuthorizationStatus
		default:
			return apperrors.NewValidationError("invalid authorization_status", map[string]any{"authorization_status": *input.AuthorizationStatus})
		}
	}
	if input.ATODate != nil {
		system.ATODate = timePtr(input.ATODate.UTC())
	}
	if input.ATOExpiry != nil {
		system.ATOExpiry = timePtr(input.ATOExpiry.UTC())
	}
	if system.ATODate != nil && system.ATOExpiry != nil && !system.ATOExpiry.After(*system.ATODate) {
		return apperrors.NewValidationError("ato_expiry must be after ato_date", nil)
	}
	if input.CommonControlProvider != nil {
		system.CommonControlProvider = *input.CommonControlProvider
	}
	return nil
}
