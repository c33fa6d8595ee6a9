package service

import (
	"context"
	"strings"
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

var allowedTransitions = map[domain.POAMStatus][]domain.POAMStatus{
	domain.POAMStatusDraft:        {domain.POAMStatusOpen},
	domain.POAMStatusOpen:         {domain.POAMStatusInProgress, domain.POAMStatusRiskAccepted},
	domain.POAMStatusInProgress:   {domain.POAMStatusCompleted, domain.POAMStatusRiskAccepted, domain.POAMStatusOpen},
	domain.POAMStatusRiskAccepted: {domain.POAMStatusOpen, domain.POAMStatusClosed},
	domain.POAMStatusCompleted:    {domain.POAMStatusClosed, domain.POAMStatusInProgress},
	domain.POAMStatusClosed:       {},
}

// approvalGated lists targets reachable only through an approved request.
var approvalGated = map[domain.POAMStatus]domain.ApprovalType{
	domain.POAMStatusRiskAccepted: domain.ApprovalRiskAcceptance,
	domain.POAMStatusClosed:       domain.ApprovalPOAMClosure,
}

// CanTransition reports whether the POA&M table allows from -> to.
func CanTransition(from, to domain.POAMStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// POAMService manages plans of action and milestones.
type POAMService struct {
	poams      repository.POAMRepository
	systems    repository.SystemRepository
	controls   repository.ControlRepository
	audit      *AuditService
	dispatcher events.Dispatcher
	clock      Clock
}

// POAMDependencies bundles collaborators.
type POAMDependencies struct {
	POAMRepo    repository.POAMRepository
	SystemRepo  repository.SystemRepository
	ControlRepo repository.ControlRepository
	Audit       *AuditService
	Dispatcher  events.Dispatcher
	Clock       Clock
}

// POAMInput carries create and update fields; nil means unchanged.
type POAMInput struct {
	SystemID            *string
	ControlID           *string
	Title               *string
	Description         *string
	WeaknessSource      *string
	RiskLevel           *domain.RiskLevel
	ScheduledCompletion *time.Time
	AssignedTo          *string
}

// MilestoneInput describes a new milestone.
type MilestoneInput struct {
	Title   string
	DueDate time.Time
}

// NewPOAMService constructs the service.
func NewPOAMService(deps POAMDependencies) *POAMService {
	return &POAMService{
		poams:      deps.POAMRepo,
		systems:    deps.SystemRepo,
		controls:   deps.ControlRepo,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		clock:      clockOr(deps.Clock),
	}
}

func (s *POAMService) List(ctx context.Context, actor domain.Actor, filter repository.POAMFilter) ([]domain.POAM, int, error) {
	poams, total, err := s.poams.List(ctx, actor.OrgID, s.resolveOverdue(filter))
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return poams, total, nil
}

func (s *POAMService) resolveOverdue(filter repository.POAMFilter) repository.POAMFilter {
	if filter.Overdue && filter.OverdueAt == nil {
		now := s.clock()
		filter.OverdueAt = &now
	}
	return filter
}

// Get returns the POA&M with its milestones.
func (s *POAMService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.POAM, error) {
	poam, err := s.poams.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "poam", id)
	}
	milestones, err := s.poams.ListMilestones(ctx, poam.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	poam.Milestones = milestones
	return poam, nil
}

func (s *POAMService) Create(ctx context.Context, actor domain.Actor, input POAMInput) (*domain.POAM, error) {
	if input.SystemID == nil || *input.SystemID == "" {
		return nil, apperrors.NewValidationError("system_id is required", nil)
	}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	now := s.clock()
	poam := &domain.POAM{
		ID:        newID(),
		OrgID:     actor.OrgID,
		RiskLevel: domain.RiskModerate,
		Status:    domain.POAMStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, actor, poam, input); err != nil {
		return nil, err
	}
	if err := s.poams.Create(ctx, poam); err != nil {
		return nil, storeErr(err, "poam")
	}
	s.audit.Record(ctx, actor, "create", "poam", poam.ID, map[string]any{"title": poam.Title, "risk_level": poam.RiskLevel})
	return poam, nil
}

func (s *POAMService) Update(ctx context.Context, actor domain.Actor, id string, input POAMInput) (*domain.POAM, error) {
	poam, err := s.poams.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "poam", id)
	}
	if poam.Status == domain.POAMStatusClosed {
		return nil, apperrors.NewConflict("closed POA&Ms cannot be edited", nil)
	}
	before := poam.ScheduledCompletion
	if err := s.apply(ctx, actor, poam, input); err != nil {
		return nil, err
	}
	if !sameTime(before, poam.ScheduledCompletion) {
		poam.OverdueNotified = false
	}
	poam.UpdatedAt = s.clock()
	if err := s.poams.Update(ctx, poam); err != nil {
		return nil, storeErr(err, "poam")
	}
	s.audit.Record(ctx, actor, "update", "poam", poam.ID, nil)
	return poam, nil
}

// ChangeStatus applies a user-requested transition. Targets gated by an
// approval are refused here and reached through ApplyApproved.
func (s *POAMService) ChangeStatus(ctx context.Context, actor domain.Actor, id string, to domain.POAMStatus) (*domain.POAM, error) {
	if !to.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": to})
	}
	if kind, gated := approvalGated[to]; gated {
		return nil, apperrors.NewConflict("status requires an approved request", map[string]any{"request_type": kind})
	}
	return s.transition(ctx, actor, id, to)
}

// ApplyApproved moves a POA&M to the target of an approved request.
func (s *POAMService) ApplyApproved(ctx context.Context, actor domain.Actor, id string, to domain.POAMStatus) (*domain.POAM, error) {
	return s.transition(ctx, actor, id, to)
}

// CheckTransition validates that id may move to the approval-gated target.
func (s *POAMService) CheckTransition(ctx context.Context, actor domain.Actor, id string, to domain.POAMStatus) error {
	poam, err := s.poams.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return lookupErr(err, "poam", id)
	}
	if !CanTransition(poam.Status, to) {
		return invalidTransition(poam.Status, to)
	}
	return nil
}

func (s *POAMService) transition(ctx context.Context, actor domain.Actor, id string, to domain.POAMStatus) (*domain.POAM, error) {
	poam, from, err := s.storeTransition(ctx, s.poams, actor, id, to)
	if err != nil {
		return nil, err
	}
	s.announceTransition(ctx, actor, poam, from)
	return poam, nil
}

// storeTransition validates and writes a status change through repo. Audit
// and events are left to announceTransition so callers can run it after a
// surrounding transaction commits.
func (s *POAMService) storeTransition(ctx context.Context, repo repository.POAMRepository, actor domain.Actor, id string, to domain.POAMStatus) (*domain.POAM, domain.POAMStatus, error) {
	poam, err := repo.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, "", lookupErr(err, "poam", id)
	}
	from := poam.Status
	if !CanTransition(from, to) {
		return nil, "", invalidTransition(from, to)
	}
	now := s.clock()
	poam.Status = to
	switch to {
	case domain.POAMStatusCompleted:
		poam.ActualCompletion = timePtr(now)
	case domain.POAMStatusInProgress, domain.POAMStatusOpen:
		poam.ActualCompletion = nil
	}
	poam.UpdatedAt = now
	if err := repo.Update(ctx, poam); err != nil {
		return nil, "", storeErr(err, "poam")
	}
	return poam, from, nil
}

func (s *POAMService) announceTransition(ctx context.Context, actor domain.Actor, poam *domain.POAM, from domain.POAMStatus) {
	s.audit.Record(ctx, actor, "status_change", "poam", poam.ID, map[string]any{"from": from, "to": poam.Status})
	publish(ctx, s.dispatcher, events.Event{
		Type:         events.EventPOAMStatusChanged,
		OrgID:        poam.OrgID,
		ResourceType: "poam",
		ResourceID:   poam.ID,
		ActorID:      strPtr(actor.UserID),
		Payload:      events.POAMStatusChangedPayload{OldStatus: from, NewStatus: poam.Status, Title: poam.Title},
	})
}

func (s *POAMService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.poams.Delete(ctx, actor.OrgID, id); err != nil {
		return lookupErr(err, "poam", id)
	}
	s.audit.Record(ctx, actor, "delete", "poam", id, nil)
	return nil
}

func (s *POAMService) AddMilestone(ctx context.Context, actor domain.Actor, poamID string, input MilestoneInput) (*domain.Milestone, error) {
	if strings.TrimSpace(input.Title) == "" || input.DueDate.IsZero() {
		return nil, apperrors.NewValidationError("title and due_date are required", nil)
	}
	poam, err := s.poams.GetByID(ctx, actor.OrgID, poamID)
	if err != nil {
		return nil, lookupErr(err, "poam", poamID)
	}
	if poam.Status == domain.POAMStatusClosed {
		return nil, apperrors.NewConflict("closed POA&Ms cannot gain milestones", nil)
	}
	now := s.clock()
	m := &domain.Milestone{
		ID:        newID(),
		POAMID:    poam.ID,
		Title:     strings.TrimSpace(input.Title),
		DueDate:   input.DueDate.UTC(),
		Status:    domain.MilestonePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.poams.AddMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}
	s.audit.Record(ctx, actor, "add_milestone", "poam", poam.ID, map[string]any{"milestone_id": m.ID, "title": m.Title})
	return m, nil
}

// CompleteMilestone marks a milestone done; completing twice is a no-op.
func (s *POAMService) CompleteMilestone(ctx context.Context, actor domain.Actor, poamID, milestoneID string) (*domain.Milestone, error) {
	if _, err := s.poams.GetByID(ctx, actor.OrgID, poamID); err != nil {
		return nil, lookupErr(err, "poam", poamID)
	}
	m, err := s.poams.GetMilestone(ctx, poamID, milestoneID)
	if err != nil {
		return nil, lookupErr(err, "milestone", milestoneID)
	}
	if m.Status == domain.MilestoneCompleted {
		return m, nil
	}
	now := s.clock()
	m.Status = domain.MilestoneCompleted
	m.CompletedAt = timePtr(now)
	m.UpdatedAt = now
	if err := s.poams.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}
	s.audit.Record(ctx, actor, "complete_milestone", "poam", poamID, map[string]any{"milestone_id": m.ID})
	return m, nil
}

// Export returns every POA&M matching filter as CSV rows.
func (s *POAMService) Export(ctx context.Context, actor domain.Actor, filter repository.POAMFilter) ([]string, [][]string, error) {
	poams, err := s.poams.ListAll(ctx, actor.OrgID, s.resolveOverdue(filter))
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	header := []string{"id", "system_id", "control_id", "title", "weakness_source", "risk_level", "status", "scheduled_completion", "actual_completion", "assigned_to", "created_at"}
	rows := make([][]string, 0, len(poams))
	for _, p := range poams {
		rows = append(rows, []string{
			p.ID,
			p.SystemID,
			deref(p.ControlID),
			p.Title,
			p.WeaknessSource,
			string(p.RiskLevel),
			string(p.Status),
			formatDate(p.ScheduledCompletion),
			formatDate(p.ActualCompletion),
			deref(p.AssignedTo),
			p.CreatedAt.Format(time.RFC3339),
		})
	}
	s.audit.Record(ctx, actor, "export", "poam", "", map[string]any{"rows": len(rows)})
	return header, rows, nil
}

func (s *POAMService) apply(ctx context.Context, actor domain.Actor, poam *domain.POAM, input POAMInput) error {
	if input.SystemID != nil && *input.SystemID != poam.SystemID {
		if _, err := s.systems.GetByID(ctx, actor.OrgID, *input.SystemID); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("system_id does not exist", map[string]any{"system_id": *input.SystemID})
			}
			return apperrors.NewInternalError(err)
		}
		poam.SystemID = *input.SystemID
	}
	if input.ControlID != nil {
		poam.ControlID = emptyToNil(input.ControlID)
		if poam.ControlID != nil {
			if _, err := s.controls.GetControl(ctx, *poam.ControlID); err != nil {
				if apperrors.IsNotFound(err) {
					return apperrors.NewValidationError("control_id does not exist", map[string]any{"control_id": *poam.ControlID})
				}
				return apperrors.NewInternalError(err)
			}
		}
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return apperrors.NewValidationError("title cannot be empty", nil)
		}
		poam.Title = title
	}
	if input.Description != nil {
		poam.Description = *input.Description
	}
	if input.WeaknessSource != nil {
		poam.WeaknessSource = strings.TrimSpace(*input.WeaknessSource)
	}
	if input.RiskLevel != nil {
		if !input.RiskLevel.Valid() {
			return apperrors.NewValidationError("invalid risk_level", map[string]any{"risk_level": *input.RiskLevel})
		}
		poam.RiskLevel = *input.RiskLevel
	}
	if input.ScheduledCompletion != nil {
		poam.ScheduledCompletion = timePtr(input.ScheduledCompletion.UTC())
	}
	if input.AssignedTo != nil {
		poam.AssignedTo = emptyToNil(input.AssignedTo)
	}
	return nil
}

func invalidTransition(from, to domain.POAMStatus) error {
	return apperrors.NewConflict("invalid status transition", map[string]any{"from": from, "to": to})
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
