package events

import (
	"time"

	"github.com/forgecomply/forgecomply360/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPOAMStatusChanged EventType = "poam_status_changed"
	EventApprovalRequested EventType = "approval_requested"
	EventApprovalDecided   EventType = "approval_decided"
	EventEvidenceExpired   EventType = "evidence_expired"
	EventCheckDue          EventType = "check_due"
	EventPOAMOverdue       EventType = "poam_overdue"
	EventUserCreated       EventType = "user_created"
)

// AllEventTypes lists every type, for subscribers that want all of them.
var AllEventTypes = []EventType{
	EventPOAMStatusChanged,
	EventApprovalRequested,
	EventApprovalDecided,
	EventEvidenceExpired,
	EventCheckDue,
	EventPOAMOverdue,
	EventUserCreated,
}

// Event represents a domain event emitted by services and the scheduler.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	OrgID        string    `json:"org_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	ActorID      *string   `json:"actor_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Payload      any       `json:"payload,omitempty"`
}

// POAMStatusChangedPayload payload.
type POAMStatusChangedPayload struct {
	OldStatus domain.POAMStatus `json:"old_status"`
	NewStatus domain.POAMStatus `json:"new_status"`
	Title     string            `json:"title"`
}

// ApprovalPayload is shared by approval_requested and approval_decided.
type ApprovalPayload struct {
	RequestType domain.ApprovalType   `json:"request_type"`
	TargetID    string                `json:"target_id"`
	Status      domain.ApprovalStatus `json:"status"`
	Comment     string                `json:"comment,omitempty"`
}

// EvidenceExpiredPayload payload.
type EvidenceExpiredPayload struct {
	Title     string    `json:"title"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckDuePayload payload.
type CheckDuePayload struct {
	Name      string           `json:"name"`
	Frequency domain.Frequency `json:"frequency"`
	NextRunAt time.Time        `json:"next_run_at"`
}

// POAMOverduePayload payload.
type POAMOverduePayload struct {
	Title               string           `json:"title"`
	RiskLevel           domain.RiskLevel `json:"risk_level"`
	ScheduledCompletion time.Time        `json:"scheduled_completion"`
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}
