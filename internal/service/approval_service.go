package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ApprovalService runs the two-person sign-off workflow.
type ApprovalService struct {
	approvals  repository.ApprovalRepository
	tx         repository.TxRunner
	poams      *POAMService
	policies   *PolicyService
	audit      *AuditService
	dispatcher events.Dispatcher
	clock      Clock
}

// ApprovalDependencies bundles collaborators.
type ApprovalDependencies struct {
	ApprovalRepo  repository.ApprovalRepository
	Tx            repository.TxRunner
	POAMService   *POAMService
	PolicyService *PolicyService
	Audit         *AuditService
	Dispatcher    events.Dispatcher
	Clock         Clock
}

// ApprovalInput describes a new request.
type ApprovalInput struct {
	RequestType   domain.ApprovalType
	TargetID      string
	Justification string
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	return &ApprovalService{
		approvals:  deps.ApprovalRepo,
		tx:         deps.Tx,
		poams:      deps.POAMService,
		policies:   deps.PolicyService,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		clock:      clockOr(deps.Clock),
	}
}

func (s *ApprovalService) List(ctx context.Context, actor domain.Actor, filter repository.ApprovalFilter) ([]domain.Approval, int, error) {
	items, total, err := s.approvals.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return items, total, nil
}

func (s *ApprovalService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Approval, error) {
	approval, err := s.approvals.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "approval", id)
	}
	return approval, nil
}

// Create opens a request after checking the target can take the change.
func (s *ApprovalService) Create(ctx context.Context, actor domain.Actor, input ApprovalInput) (*domain.Approval, error) {
	if !input.RequestType.Valid() {
		return nil, apperrors.NewValidationError("invalid request_type", map[string]any{"request_type": input.RequestType})
	}
	if input.TargetID == "" {
		return nil, apperrors.NewValidationError("target_id is required", nil)
	}

	switch input.RequestType {
	case domain.ApprovalPolicyPublish:
		return s.policies.Submit(ctx, actor, input.TargetID, input.Justification)
	case domain.ApprovalRiskAcceptance:
		if strings.TrimSpace(input.Justification) == "" {
			return nil, apperrors.NewValidationError("justification is required for risk acceptance", nil)
		}
		if err := s.poams.CheckTransition(ctx, actor, input.TargetID, domain.POAMStatusRiskAccepted); err != nil {
			return nil, err
		}
	case domain.ApprovalPOAMClosure:
		if err := s.poams.CheckTransition(ctx, actor, input.TargetID, domain.POAMStatusClosed); err != nil {
			return nil, err
		}
	}

	approval, err := openApproval(ctx, s.approvals, actor, input.RequestType, input.TargetID, input.Justification, s.clock())
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "create", "approval", approval.ID, map[string]any{
		"request_type": approval.RequestType,
		"target_id":    approval.TargetID,
	})
	announceApproval(ctx, s.dispatcher, actor, approval, events.EventApprovalRequested)
	return approval, nil
}

// Decide records the reviewer's verdict and applies the approved change.
// The requester cannot review their own request.
func (s *ApprovalService) Decide(ctx context.Context, actor domain.Actor, id string, decision Decision, comment string) (*domain.Approval, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, apperrors.NewValidationError("decision must be approve or reject", map[string]any{"decision": decision})
	}
	if !actor.Role.AtLeast(domain.RoleManager) {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	approval, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if approval.Status != domain.ApprovalPending {
		return nil, apperrors.NewConflict("approval already decided", map[string]any{"status": approval.Status})
	}
	if approval.RequestedBy == actor.UserID {
		return nil, apperrors.NewForbidden("requester cannot review their own request")
	}

	if decision == DecisionApprove {
		if err := s.checkEffect(ctx, actor, approval); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	approval.Status = domain.ApprovalRejected
	if decision == DecisionApprove {
		approval.Status = domain.ApprovalApproved
	}
	approval.ReviewerID = strPtr(actor.UserID)
	approval.ReviewComment = strings.TrimSpace(comment)
	approval.DecidedAt = timePtr(now)
	approval.UpdatedAt = now

	// The decision and its effect commit together; audit and events follow
	// the commit.
	var announce func()
	err = s.inTx(ctx, func(tx repository.Tx) error {
		if err := tx.Approvals.Update(ctx, approval); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewConflict("approval already decided", nil)
			}
			return apperrors.NewInternalError(err)
		}
		var err error
		announce, err = s.applyEffect(ctx, tx, actor, approval)
		return err
	})
	if err != nil {
		return nil, err
	}
	announce()
	s.audit.Record(ctx, actor, "decide", "approval", approval.ID, map[string]any{
		"decision":     decision,
		"request_type": approval.RequestType,
		"target_id":    approval.TargetID,
	})
	announceApproval(ctx, s.dispatcher, actor, approval, events.EventApprovalDecided)
	return approval, nil
}

// Withdraw cancels a pending request. Only the requester may withdraw.
func (s *ApprovalService) Withdraw(ctx context.Context, actor domain.Actor, id string) (*domain.Approval, error) {
	approval, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if approval.RequestedBy != actor.UserID {
		return nil, apperrors.NewForbidden("only the requester can withdraw")
	}
	if approval.Status != domain.ApprovalPending {
		return nil, apperrors.NewConflict("approval already decided", map[string]any{"status": approval.Status})
	}
	now := s.clock()
	approval.Status = domain.ApprovalWithdrawn
	approval.UpdatedAt = now
	approval.DecidedAt = timePtr(now)

	var policyReturned *domain.Policy
	err = s.inTx(ctx, func(tx repository.Tx) error {
		if err := tx.Approvals.Update(ctx, approval); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewConflict("approval already decided", nil)
			}
			return apperrors.NewInternalError(err)
		}
		if approval.RequestType != domain.ApprovalPolicyPublish {
			return nil
		}
		policy, changed, err := s.policies.storeReturnToDraft(ctx, tx.Policies, actor, approval.TargetID)
		if changed {
			policyReturned = policy
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if policyReturned != nil {
		s.audit.Record(ctx, actor, "return_to_draft", "policy", policyReturned.ID, nil)
	}
	s.audit.Record(ctx, actor, "withdraw", "approval", approval.ID, nil)
	announceApproval(ctx, s.dispatcher, actor, approval, events.EventApprovalDecided)
	return approval, nil
}

func (s *ApprovalService) checkEffect(ctx context.Context, actor domain.Actor, approval *domain.Approval) error {
	switch approval.RequestType {
	case domain.ApprovalRiskAcceptance:
		return s.poams.CheckTransition(ctx, actor, approval.TargetID, domain.POAMStatusRiskAccepted)
	case domain.ApprovalPOAMClosure:
		return s.poams.CheckTransition(ctx, actor, approval.TargetID, domain.POAMStatusClosed)
	case domain.ApprovalPolicyPublish:
		policy, err := s.policies.Get(ctx, actor, approval.TargetID)
		if err != nil {
			return err
		}
		if policy.Status != domain.PolicyInReview {
			return apperrors.NewConflict("policy is not in review", map[string]any{"status": policy.Status})
		}
	}
	return nil
}

// applyEffect writes the change an approval decides through tx and returns
// the audit and event work to run once tx commits.
func (s *ApprovalService) applyEffect(ctx context.Context, tx repository.Tx, actor domain.Actor, approval *domain.Approval) (func(), error) {
	approved := approval.Status == domain.ApprovalApproved
	switch {
	case approval.RequestType == domain.ApprovalPolicyPublish && approved:
		policy, err := s.policies.storePublish(ctx, tx.Policies, actor, approval.TargetID)
		if err != nil {
			return nil, err
		}
		return func() { s.audit.Record(ctx, actor, "publish", "policy", policy.ID, nil) }, nil
	case approval.RequestType == domain.ApprovalPolicyPublish:
		policy, changed, err := s.policies.storeReturnToDraft(ctx, tx.Policies, actor, approval.TargetID)
		if err != nil {
			return nil, err
		}
		return func() {
			if changed {
				s.audit.Record(ctx, actor, "return_to_draft", "policy", policy.ID, nil)
			}
		}, nil
	case approved && (approval.RequestType == domain.ApprovalRiskAcceptance || approval.RequestType == domain.ApprovalPOAMClosure):
		to := domain.POAMStatusRiskAccepted
		if approval.RequestType == domain.ApprovalPOAMClosure {
			to = domain.POAMStatusClosed
		}
		poam, from, err := s.poams.storeTransition(ctx, tx.POAMs, actor, approval.TargetID, to)
		if err != nil {
			return nil, err
		}
		return func() { s.poams.announceTransition(ctx, actor, poam, from) }, nil
	}
	return func() {}, nil
}

func (s *ApprovalService) inTx(ctx context.Context, fn func(repository.Tx) error) error {
	err := s.tx.InTx(ctx, fn)
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

// openApproval inserts a pending request unless one already exists for the target.
func openApproval(ctx context.Context, repo repository.ApprovalRepository, actor domain.Actor, kind domain.ApprovalType, targetID, justification string, now time.Time) (*domain.Approval, error) {
	if existing, err := repo.FindPending(ctx, actor.OrgID, kind, targetID); err == nil {
		return nil, apperrors.NewConflict("a pending request already exists", map[string]any{"approval_id": existing.ID})
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.NewInternalError(err)
	}
	approval := &domain.Approval{
		ID:            newID(),
		OrgID:         actor.OrgID,
		RequestType:   kind,
		TargetID:      targetID,
		RequestedBy:   actor.UserID,
		Justification: strings.TrimSpace(justification),
		Status:        domain.ApprovalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.Create(ctx, approval); err != nil {
		return nil, storeErr(err, "approval")
	}
	return approval, nil
}

func announceApproval(ctx context.Context, dispatcher events.Dispatcher, actor domain.Actor, approval *domain.Approval, kind events.EventType) {
	publish(ctx, dispatcher, events.Event{
		Type:         kind,
		OrgID:        approval.OrgID,
		ResourceType: "approval",
		ResourceID:   approval.ID,
		ActorID:      strPtr(actor.UserID),
		Payload: events.ApprovalPayload{
			RequestType: approval.RequestType,
			TargetID:    approval.TargetID,
			Status:      approval.Status,
			Comment:     approval.ReviewComment,
		},
	})
}
