package service

import (
	"context"
	"strings"
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// MonitoringService schedules continuous-monitoring checks and records runs.
type MonitoringService struct {
	checks          repository.MonitoringRepository
	systems         repository.SystemRepository
	implementations repository.ImplementationRepository
	audit           *AuditService
	clock           Clock
}

// MonitoringDependencies bundles collaborators.
type MonitoringDependencies struct {
	MonitoringRepo     repository.MonitoringRepository
	SystemRepo         repository.SystemRepository
	ImplementationRepo repository.ImplementationRepository
	Audit              *AuditService
	Clock              Clock
}

// CheckInput carries create and update fields; nil means unchanged.
type CheckInput struct {
	SystemID         *string
	ImplementationID *string
	Name             *string
	Description      *string
	Frequency        *domain.Frequency
	NextRunAt        *time.Time
	Active           *bool
}

// NewMonitoringService constructs the service.
func NewMonitoringService(deps MonitoringDependencies) *MonitoringService {
	return &MonitoringService{
		checks:          deps.MonitoringRepo,
		systems:         deps.SystemRepo,
		implementations: deps.ImplementationRepo,
		audit:           deps.Audit,
		clock:           clockOr(deps.Clock),
	}
}

func (s *MonitoringService) List(ctx context.Context, actor domain.Actor, filter repository.CheckFilter) ([]domain.MonitoringCheck, int, error) {
	checks, total, err := s.checks.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return checks, total, nil
}

func (s *MonitoringService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.MonitoringCheck, error) {
	check, err := s.checks.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "monitoring check", id)
	}
	return check, nil
}

// Create schedules a check. Without an explicit next run the first run is
// one frequency period from now.
func (s *MonitoringService) Create(ctx context.Context, actor domain.Actor, input CheckInput) (*domain.MonitoringCheck, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	now := s.clock()
	check := &domain.MonitoringCheck{
		ID:         newID(),
		OrgID:      actor.OrgID,
		Frequency:  domain.FrequencyMonthly,
		LastResult: domain.CheckNotRun,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.apply(ctx, actor, check, input); err != nil {
		return nil, err
	}
	if check.NextRunAt.IsZero() {
		check.NextRunAt = check.Frequency.Next(now)
	}
	if err := s.checks.Create(ctx, check); err != nil {
		return nil, storeErr(err, "monitoring check")
	}
	s.audit.Record(ctx, actor, "create", "monitoring_check", check.ID, map[string]any{"name": check.Name, "frequency": check.Frequency})
	return check, nil
}

func (s *MonitoringService) Update(ctx context.Context, actor domain.Actor, id string, input CheckInput) (*domain.MonitoringCheck, error) {
	check, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	before := check.NextRunAt
	if err := s.apply(ctx, actor, check, input); err != nil {
		return nil, err
	}
	if !check.NextRunAt.Equal(before) {
		check.DueNotified = false
	}
	check.UpdatedAt = s.clock()
	if err := s.checks.Update(ctx, check); err != nil {
		return nil, storeErr(err, "monitoring check")
	}
	s.audit.Record(ctx, actor, "update", "monitoring_check", check.ID, nil)
	return check, nil
}

// RecordResult stores a run and schedules the next one by frequency.
func (s *MonitoringService) RecordResult(ctx context.Context, actor domain.Actor, id string, result domain.CheckResultValue, notes string) (*domain.CheckResult, error) {
	if !result.Valid() || result == domain.CheckNotRun {
		return nil, apperrors.NewValidationError("result must be pass, fail or warning", map[string]any{"result": result})
	}
	check, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !check.Active {
		return nil, apperrors.NewConflict("check is inactive", nil)
	}
	now := s.clock()
	run := &domain.CheckResult{
		ID:      newID(),
		CheckID: check.ID,
		Result:  result,
		Notes:   notes,
		RunBy:   strPtr(actor.UserID),
		RunAt:   now,
	}
	if err := s.checks.AddResult(ctx, run); err != nil {
		return nil, storeErr(err, "check result")
	}
	check.LastRunAt = timePtr(now)
	check.LastResult = result
	check.NextRunAt = check.Frequency.Next(now)
	check.DueNotified = false
	check.UpdatedAt = now
	if err := s.checks.Update(ctx, check); err != nil {
		return nil, storeErr(err, "monitoring check")
	}
	s.audit.Record(ctx, actor, "record_result", "monitoring_check", check.ID, map[string]any{"result": result})
	return run, nil
}

func (s *MonitoringService) ListResults(ctx context.Context, actor domain.Actor, id string, page repository.Page) ([]domain.CheckResult, int, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, 0, err
	}
	results, total, err := s.checks.ListResults(ctx, id, page)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return results, total, nil
}

// Due lists active checks whose next run has passed.
func (s *MonitoringService) Due(ctx context.Context, actor domain.Actor) ([]domain.MonitoringCheck, error) {
	checks, err := s.checks.ListDue(ctx, actor.OrgID, s.clock())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return checks, nil
}

func (s *MonitoringService) apply(ctx context.Context, actor domain.Actor, check *domain.MonitoringCheck, input CheckInput) error {
	if input.SystemID != nil {
		check.SystemID = emptyToNil(input.SystemID)
		if check.SystemID != nil {
			if _, err := s.systems.GetByID(ctx, actor.OrgID, *check.SystemID); err != nil {
				if apperrors.IsNotFound(err) {
					return apperrors.NewValidationError("system_id does not exist", map[string]any{"system_id": *check.SystemID})
				}
				return apperrors.NewInternalError(err)
			}
		}
	}
	if input.ImplementationID != nil {
		check.ImplementationID = emptyToNil(input.ImplementationID)
		if check.ImplementationID != nil {
			if _, err := s.implementations.GetByID(ctx, actor.OrgID, *check.ImplementationID); err != nil {
				if apperrors.IsNotFound(err) {
					return apperrors.NewValidationError("implementation_id does not exist", map[string]any{"implementation_id": *check.ImplementationID})
				}
				return apperrors.NewInternalError(err)
			}
		}
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperrors.NewValidationError("name cannot be empty", nil)
		}
		check.Name = name
	}
	if input.Description != nil {
		check.Description = *input.Description
	}
	if input.Frequency != nil {
		if !input.Frequency.Valid() {
			return apperrors.NewValidationError("invalid frequency", map[string]any{"frequency": *input.Frequency})
		}
		check.Frequency = *input.Frequency
	}
	if input.NextRunAt != nil {
		check.NextRunAt = input.NextRunAt.UTC()
	}
	if input.Active != nil {
		check.Active = *input.Active
	}
	return nil
}
