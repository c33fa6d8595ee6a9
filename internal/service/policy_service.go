package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// PolicyService manages the policy library and its publish workflow.
type PolicyService struct {
	policies   repository.PolicyRepository
	approvals  repository.ApprovalRepository
	audit      *AuditService
	dispatcher events.Dispatcher
	markdown   goldmark.Markdown
	clock      Clock
}

// PolicyDependencies bundles collaborators.
type PolicyDependencies struct {
	PolicyRepo   repository.PolicyRepository
	ApprovalRepo repository.ApprovalRepository
	Audit        *AuditService
	Dispatcher   events.Dispatcher
	Clock        Clock
}

// PolicyInput carries create and update fields; nil means unchanged.
type PolicyInput struct {
	Title          *string
	Category       *string
	Version        *string
	Content        *string
	OwnerID        *string
	NextReviewDate *time.Time
}

// NewPolicyService constructs the service. Markdown rendering leaves raw
// HTML out of the output.
func NewPolicyService(deps PolicyDependencies) *PolicyService {
	return &PolicyService{
		policies:   deps.PolicyRepo,
		approvals:  deps.ApprovalRepo,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		clock:      clockOr(deps.Clock),
	}
}

func (s *PolicyService) List(ctx context.Context, actor domain.Actor, filter repository.PolicyFilter) ([]domain.Policy, int, error) {
	policies, total, err := s.policies.List(ctx, actor.OrgID, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return policies, total, nil
}

func (s *PolicyService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Policy, error) {
	policy, err := s.policies.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "policy", id)
	}
	return policy, nil
}

func (s *PolicyService) Create(ctx context.Context, actor domain.Actor, input PolicyInput) (*domain.Policy, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	now := s.clock()
	policy := &domain.Policy{
		ID:        newID(),
		OrgID:     actor.OrgID,
		Version:   "1.0",
		Status:    domain.PolicyDraft,
		OwnerID:   strPtr(actor.UserID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyPolicyInput(policy, input); err != nil {
		return nil, err
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, storeErr(err, "policy")
	}
	s.audit.Record(ctx, actor, "create", "policy", policy.ID, map[string]any{"title": policy.Title})
	return policy, nil
}

// Update edits a policy that is still a draft or in review.
func (s *PolicyService) Update(ctx context.Context, actor domain.Actor, id string, input PolicyInput) (*domain.Policy, error) {
	policy, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !policy.Status.Editable() {
		return nil, apperrors.NewConflict("policy is not editable in its current status", map[string]any{"status": policy.Status})
	}
	if err := applyPolicyInput(policy, input); err != nil {
		return nil, err
	}
	policy.UpdatedAt = s.clock()
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, storeErr(err, "policy")
	}
	s.audit.Record(ctx, actor, "update", "policy", policy.ID, nil)
	return policy, nil
}

// Render converts the policy markdown to HTML.
func (s *PolicyService) Render(ctx context.Context, actor domain.Actor, id string) (string, error) {
	policy, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	return s.RenderMarkdown(policy.Content)
}

// RenderMarkdown converts markdown source to HTML with raw HTML omitted.
func (s *PolicyService) RenderMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return buf.String(), nil
}

// Submit moves a draft into review and opens a policy_publish approval.
func (s *PolicyService) Submit(ctx context.Context, actor domain.Actor, id, justification string) (*domain.Approval, error) {
	policy, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if policy.Status != domain.PolicyDraft {
		return nil, apperrors.NewConflict("only draft policies can be submitted", map[string]any{"status": policy.Status})
	}
	if strings.TrimSpace(policy.Content) == "" {
		return nil, apperrors.NewValidationError("policy content is empty", nil)
	}
	approval, err := openApproval(ctx, s.approvals, actor, domain.ApprovalPolicyPublish, policy.ID, justification, s.clock())
	if err != nil {
		return nil, err
	}
	policy.Status = domain.PolicyInReview
	policy.UpdatedAt = s.clock()
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, storeErr(err, "policy")
	}
	s.audit.Record(ctx, actor, "submit", "policy", policy.ID, map[string]any{"approval_id": approval.ID})
	announceApproval(ctx, s.dispatcher, actor, approval, events.EventApprovalRequested)
	return approval, nil
}

// Publish applies an approved policy_publish request.
func (s *PolicyService) Publish(ctx context.Context, actor domain.Actor, id string) (*domain.Policy, error) {
	policy, err := s.storePublish(ctx, s.policies, actor, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, "publish", "policy", policy.ID, nil)
	return policy, nil
}

func (s *PolicyService) storePublish(ctx context.Context, repo repository.PolicyRepository, actor domain.Actor, id string) (*domain.Policy, error) {
	policy, err := repo.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, lookupErr(err, "policy", id)
	}
	if policy.Status != domain.PolicyInReview {
		return nil, apperrors.NewConflict("policy is not in review", map[string]any{"status": policy.Status})
	}
	now := s.clock()
	policy.Status = domain.PolicyPublished
	policy.ApprovedBy = strPtr(actor.UserID)
	policy.ApprovedAt = timePtr(now)
	if policy.NextReviewDate == nil {
		policy.NextReviewDate = timePtr(now.AddDate(1, 0, 0))
	}
	policy.UpdatedAt = now
	if err := repo.Update(ctx, policy); err != nil {
		return nil, storeErr(err, "policy")
	}
	return policy, nil
}

// ReturnToDraft reopens a policy after its publish request was rejected or withdrawn.
func (s *PolicyService) ReturnToDraft(ctx context.Context, actor domain.Actor, id string) (*domain.Policy, error) {
	policy, changed, err := s.storeReturnToDraft(ctx, s.policies, actor, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.audit.Record(ctx, actor, "return_to_draft", "policy", policy.ID, nil)
	}
	return policy, nil
}

// storeReturnToDraft moves an in-review policy back to draft; other states
// are left alone and reported unchanged.
func (s *PolicyService) storeReturnToDraft(ctx context.Context, repo repository.PolicyRepository, actor domain.Actor, id string) (*domain.Policy, bool, error) {
	policy, err := repo.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, false, lookupErr(err, "policy", id)
	}
	if policy.Status != domain.PolicyInReview {
		return policy, false, nil
	}
	policy.Status = domain.PolicyDraft
	policy.UpdatedAt = s.clock()
	if err := repo.Update(ctx, policy); err != nil {
		return nil, false, storeErr(err, "policy")
	}
	return policy, true, nil
}

// Retire withdraws a policy from the library. Policies under review must
// have their request resolved first.
func (s *PolicyService) Retire(ctx context.Context, actor domain.Actor, id string) (*domain.Policy, error) {
	policy, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	switch policy.Status {
	case domain.PolicyRetired:
		return policy, nil
	case domain.PolicyInReview:
		return nil, apperrors.NewConflict("policy has a pending publish request", nil)
	}
	policy.Status = domain.PolicyRetired
	policy.UpdatedAt = s.clock()
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, storeErr(err, "policy")
	}
	s.audit.Record(ctx, actor, "retire", "policy", policy.ID, nil)
	return policy, nil
}

func applyPolicyInput(policy *domain.Policy, input PolicyInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return apperrors.NewValidationError("title cannot be empty", nil)
		}
		policy.Title = title
	}
	if input.Category != nil {
		policy.Category = strings.TrimSpace(*input.Category)
	}
	if input.Version != nil {
		version := strings.TrimSpace(*input.Version)
		if version == "" {
			return apperrors.NewValidationError("version cannot be empty", nil)
		}
		policy.Version = version
	}
	if input.Content != nil {
		policy.Content = *input.Content
	}
	if input.OwnerID != nil {
		policy.OwnerID = emptyToNil(input.OwnerID)
	}
	if input.NextReviewDate != nil {
		policy.NextReviewDate = timePtr(input.NextReviewDate.UTC())
	}
	return nil
}
