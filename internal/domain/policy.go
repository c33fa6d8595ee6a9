package domain

import "time"

// PolicyStatus enumerates policy document states.
type PolicyStatus string

const (
	PolicyDraft     PolicyStatus = "draft"
	PolicyInReview  PolicyStatus = "in_review"
	PolicyApproved  PolicyStatus = "approved"
	PolicyPublished PolicyStatus = "published"
	PolicyRetired   PolicyStatus = "retired"
)

// Editable reports whether content may still change.
func (s PolicyStatus) Editable() bool {
	return s == PolicyDraft || s == PolicyInReview
}

// Policy is a governance document in the policy library.
type Policy struct {
	ID             string       `db:"id" json:"id"`
	OrgID          string       `db:"org_id" json:"org_id"`
	Title          string       `db:"title" json:"title"`
	Category       string       `db:"category" json:"category"`
	Version        string       `db:"version" json:"version"`
	Status         PolicyStatus `db:"status" json:"status"`
	Content        string       `db:"content" json:"content"`
	OwnerID        *string      `db:"owner_id" json:"owner_id,omitempty"`
	NextReviewDate *time.Time   `db:"next_review_date" json:"next_review_date,omitempty"`
	ApprovedBy     *string      `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time   `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}
