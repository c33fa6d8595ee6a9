package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgecomply/forgecomply360/internal/domain"
	"github.com/forgecomply/forgecomply360/internal/events"
	"github.com/forgecomply/forgecomply360/internal/repository"
)

func (h *harness) draftPolicy(t *testing.T, content string) *domain.Policy {
	t.Helper()
	title := "Access Control Policy"
	policy, err := h.policies.Create(context.Background(), h.actor(domain.RoleManager), PolicyInput{Title: &title, Content: &content})
	require.NoError(t, err)
	return policy
}

func TestRiskAcceptanceApproval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)
	manager := h.actor(domain.RoleManager)
	poam := h.openPOAM(t, "Legacy TLS")

	_, err := h.approvals.Create(ctx, analyst, ApprovalInput{RequestType: domain.ApprovalRiskAcceptance, TargetID: poam.ID})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err), "justification is required")

	approval, err := h.approvals.Create(ctx, analyst, ApprovalInput{
		RequestType:   domain.ApprovalRiskAcceptance,
		TargetID:      poam.ID,
		Justification: "Vendor end of life in Q3",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, approval.Status)
	require.Len(t, h.events.ofType(events.EventApprovalRequested), 1)

	_, err = h.approvals.Create(ctx, analyst, ApprovalInput{
		RequestType:   domain.ApprovalRiskAcceptance,
		TargetID:      poam.ID,
		Justification: "again",
	})
	assert.Equal(t, "CONFLICT", errorCode(err), "one pending request per target")

	decided, err := h.approvals.Decide(ctx, manager, approval.ID, DecisionApprove, " accepted ")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, decided.Status)
	assert.Equal(t, "accepted", decided.ReviewComment)
	require.NotNil(t, decided.ReviewerID)
	assert.Equal(t, manager.UserID, *decided.ReviewerID)

	stored, err := h.poams.Get(ctx, analyst, poam.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POAMStatusRiskAccepted, stored.Status)
	require.Len(t, h.events.ofType(events.EventApprovalDecided), 1)

	_, err = h.approvals.Decide(ctx, manager, approval.ID, DecisionReject, "")
	assert.Equal(t, "CONFLICT", errorCode(err), "decisions are final")
}

func TestApprovalSeparationOfDuties(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	manager := h.actor(domain.RoleManager)
	poam := h.openPOAM(t, "Self review")

	approval, err := h.approvals.Create(ctx, manager, ApprovalInput{
		RequestType:   domain.ApprovalRiskAcceptance,
		TargetID:      poam.ID,
		Justification: "compensating control",
	})
	require.NoError(t, err)

	_, err = h.approvals.Decide(ctx, manager, approval.ID, DecisionApprove, "")
	assert.Equal(t, "FORBIDDEN", errorCode(err))

	_, err = h.approvals.Decide(ctx, h.actor(domain.RoleAnalyst), approval.ID, DecisionApprove, "")
	assert.Equal(t, "FORBIDDEN", errorCode(err), "analysts cannot decide")

	_, err = h.approvals.Decide(ctx, h.actor(domain.RoleAdmin), approval.ID, "maybe", "")
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))
}

func TestRejectedRiskAcceptanceLeavesPOAM(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poam := h.openPOAM(t, "Rejected")

	approval, err := h.approvals.Create(ctx, h.actor(domain.RoleAnalyst), ApprovalInput{
		RequestType:   domain.ApprovalRiskAcceptance,
		TargetID:      poam.ID,
		Justification: "cost",
	})
	require.NoError(t, err)

	_, err = h.approvals.Decide(ctx, h.actor(domain.RoleAdmin), approval.ID, DecisionReject, "fix it")
	require.NoError(t, err)

	stored, err := h.poams.Get(ctx, h.actor(domain.RoleViewer), poam.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POAMStatusOpen, stored.Status)
}

func TestClosureRequiresReachableStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poam := h.openPOAM(t, "Not done yet")

	_, err := h.approvals.Create(ctx, h.actor(domain.RoleAnalyst), ApprovalInput{
		RequestType: domain.ApprovalPOAMClosure,
		TargetID:    poam.ID,
	})
	assert.Equal(t, "CONFLICT", errorCode(err), "open POA&Ms cannot be closed")
}

func TestPolicyPublishWorkflow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	manager := h.actor(domain.RoleManager)
	admin := h.actor(domain.RoleAdmin)

	empty := h.draftPolicy(t, "   ")
	_, err := h.approvals.Create(ctx, manager, ApprovalInput{RequestType: domain.ApprovalPolicyPublish, TargetID: empty.ID})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	policy := h.draftPolicy(t, "# Purpose\n\nAll accounts are reviewed.")
	approval, err := h.approvals.Create(ctx, manager, ApprovalInput{RequestType: domain.ApprovalPolicyPublish, TargetID: policy.ID})
	require.NoError(t, err)

	inReview, err := h.policies.Get(ctx, manager, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyInReview, inReview.Status)

	_, err = h.policies.Retire(ctx, admin, policy.ID)
	assert.Equal(t, "CONFLICT", errorCode(err))

	_, err = h.approvals.Decide(ctx, admin, approval.ID, DecisionApprove, "")
	require.NoError(t, err)

	published, err := h.policies.Get(ctx, manager, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyPublished, published.Status)
	require.NotNil(t, published.ApprovedBy)
	assert.Equal(t, admin.UserID, *published.ApprovedBy)
	require.NotNil(t, published.NextReviewDate)
	assert.True(t, published.NextReviewDate.Equal(h.now.AddDate(1, 0, 0)))

	title := "edited"
	_, err = h.policies.Update(ctx, manager, policy.ID, PolicyInput{Title: &title})
	assert.Equal(t, "CONFLICT", errorCode(err), "published policies are read only")

	retired, err := h.policies.Retire(ctx, admin, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyRetired, retired.Status)
}

func TestPolicyWithdrawReturnsToDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	manager := h.actor(domain.RoleManager)
	policy := h.draftPolicy(t, "content")

	approval, err := h.policies.Submit(ctx, manager, policy.ID, "")
	require.NoError(t, err)

	_, err = h.approvals.Withdraw(ctx, h.actor(domain.RoleAdmin), approval.ID)
	assert.Equal(t, "FORBIDDEN", errorCode(err), "only the requester withdraws")

	withdrawn, err := h.approvals.Withdraw(ctx, manager, approval.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalWithdrawn, withdrawn.Status)

	draft, err := h.policies.Get(ctx, manager, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyDraft, draft.Status)
}

func TestRenderMarkdownOmitsRawHTML(t *testing.T) {
	h := newHarness(t)
	html, err := h.policies.RenderMarkdown("# Title\n\n<script>alert(1)</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<table>")
	assert.False(t, strings.Contains(html, "<script>"))
}

// racingTx runs before ahead of every transaction, standing in for a
// concurrent writer that lands between validation and commit.
type racingTx struct {
	repository.TxRunner
	before func()
}

func (r racingTx) InTx(ctx context.Context, fn func(repository.Tx) error) error {
	r.before()
	return r.TxRunner.InTx(ctx, fn)
}

func TestDecideRollsBackWhenEffectFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	analyst := h.actor(domain.RoleAnalyst)
	poam := h.openPOAM(t, "Legacy TLS")

	approval, err := h.approvals.Create(ctx, analyst, ApprovalInput{
		RequestType:   domain.ApprovalRiskAcceptance,
		TargetID:      poam.ID,
		Justification: "Vendor end of life in Q3",
	})
	require.NoError(t, err)

	h.approvals.tx = racingTx{
		TxRunner: h.approvals.tx,
		before: func() {
			stored, err := h.poamRepo.GetByID(ctx, poam.OrgID, poam.ID)
			require.NoError(t, err)
			stored.Status = domain.POAMStatusCompleted
			require.NoError(t, h.poamRepo.Update(ctx, stored))
		},
	}

	_, err = h.approvals.Decide(ctx, h.actor(domain.RoleManager), approval.ID, DecisionApprove, "")
	assert.Equal(t, "CONFLICT", errorCode(err))

	stored, err := h.approvals.Get(ctx, analyst, approval.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, stored.Status, "approval must not commit without its effect")
	assert.Nil(t, stored.ReviewerID)
	assert.Empty(t, h.events.ofType(events.EventApprovalDecided))
}
