package domain

import "time"

// POAMStatus enumerates lifecycle states for a plan of action and milestones.
type POAMStatus string

const (
	POAMStatusDraft        POAMStatus = "draft"
	POAMStatusOpen         POAMStatus = "open"
	POAMStatusInProgress   POAMStatus = "in_progress"
	POAMStatusRiskAccepted POAMStatus = "risk_accepted"
	POAMStatusCompleted    POAMStatus = "completed"
	POAMStatusClosed       POAMStatus = "closed"
)

// Terminal reports whether no further work is expected.
func (s POAMStatus) Terminal() bool {
	return s == POAMStatusCompleted || s == POAMStatusClosed || s == POAMStatusRiskAccepted
}

// RiskLevel grades a weakness.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// POAM tracks remediation of a compliance gap.
type POAM struct {
	ID                  string      `db:"id" json:"id"`
	OrgID               string      `db:"org_id" json:"org_id"`
	SystemID            string      `db:"system_id" json:"system_id"`
	ControlID           *string     `db:"control_id" json:"control_id,omitempty"`
	Title               string      `db:"title" json:"title"`
	Description         string      `db:"description" json:"description"`
	WeaknessSource      string      `db:"weakness_source" json:"weakness_source"`
	RiskLevel           RiskLevel   `db:"risk_level" json:"risk_level"`
	Status              POAMStatus  `db:"status" json:"status"`
	ScheduledCompletion *time.Time  `db:"scheduled_completion" json:"scheduled_completion,omitempty"`
	ActualCompletion    *time.Time  `db:"actual_completion" json:"actual_completion,omitempty"`
	AssignedTo          *string     `db:"assigned_to" json:"assigned_to,omitempty"`
	OverdueNotified     bool        `db:"overdue_notified" json:"-"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`
	Milestones          []Milestone `db:"-" json:"milestones,omitempty"`
}

// IsOverdue reports whether the POA&M missed its scheduled completion.
func (p *POAM) IsOverdue(now time.Time) bool {
	return p.ScheduledCompletion != nil && !p.Status.Terminal() && now.After(*p.ScheduledCompletion)
}

// MilestoneStatus enumerates milestone states.
type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneCompleted MilestoneStatus = "completed"
)

// Milestone is a dated step within a POA&M.
type Milestone struct {
	ID          string          `db:"id" json:"id"`
	POAMID      string          `db:"poam_id" json:"poam_id"`
	Title       string          `db:"title" json:"title"`
	DueDate     time.Time       `db:"due_date" json:"due_date"`
	Status      MilestoneStatus `db:"status" json:"status"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Valid reports whether s is a known POA&M status.
func (s POAMStatus) Valid() bool {
	switch s {
	case POAMStatusDraft, POAMStatusOpen, POAMStatusInProgress, POAMStatusRiskAccepted, POAMStatusCompleted, POAMStatusClosed:
		return true
	}
	return false
}
