package domain

import "time"

// ApprovalType identifies what an approval gates.
type ApprovalType string

const (
	ApprovalPolicyPublish  ApprovalType = "policy_publish"
	ApprovalRiskAcceptance ApprovalType = "risk_acceptance"
	ApprovalPOAMClosure    ApprovalType = "poam_closure"
)

// Valid reports whether t is a known approval type.
func (t ApprovalType) Valid() bool {
	return t == ApprovalPolicyPublish || t == ApprovalRiskAcceptance || t == ApprovalPOAMClosure
}

// ApprovalStatus enumerates approval states.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalWithdrawn ApprovalStatus = "withdrawn"
)

// Approval is a request for a second person to sign off on a change.
type Approval struct {
	ID            string         `db:"id" json:"id"`
	OrgID         string         `db:"org_id" json:"org_id"`
	RequestType   ApprovalType   `db:"request_type" json:"request_type"`
	TargetID      string         `db:"target_id" json:"target_id"`
	RequestedBy   string         `db:"requested_by" json:"requested_by"`
	Justification string         `db:"justification" json:"justification"`
	Status        ApprovalStatus `db:"status" json:"status"`
	ReviewerID    *string        `db:"reviewer_id" json:"reviewer_id,omitempty"`
	ReviewComment string         `db:"review_comment" json:"review_comment"`
	DecidedAt     *time.Time     `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
