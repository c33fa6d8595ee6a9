package dto

import "github.com/forgecomply/forgecomply360/internal/domain"

// SystemRequest is used for create and partial update.
type SystemRequest struct {
	Name                  *string                     `json:"name" validate:"omitempty,min=1,max=200"`
	Acronym               *string                     `json:"acronym" validate:"omitempty,max=32"`
	Description           *string                     `json:"description" validate:"omitempty,max=10000"`
	ImpactLevel           *domain.ImpactLevel         `json:"impact_level" validate:"omitempty,oneof=low moderate high"`
	Status                *domain.SystemStatus        `json:"status" validate:"omitempty,oneof=active inactive decommissioned"`
	AuthorizationStatus   *domain.AuthorizationStatus `json:"authorization_status" validate:"omitempty,oneof=not_started in_progress authorized denied expired"`
	ATODate               *Date                       `json:"ato_date"`
	ATOExpiry             *Date                       `json:"ato_expiry"`
	CommonControlProvider *bool                       `json:"common_control_provider"`
}

// ImplementationRequest sets one control's implementation.
type ImplementationRequest struct {
	Status                domain.ImplementationStatus `json:"status" validate:"required,oneof=not_implemented planned partially_implemented implemented alternative not_applicable"`
	Origination           domain.Origination          `json:"origination" validate:"omitempty,oneof=system_specific inherited hybrid"`
	InheritedFromSystemID *string                     `json:"inherited_from_system_id" validate:"omitempty,max=64"`
	ResponsibleRole       string                      `json:"responsible_role" validate:"max=200"`
	Narrative             string                      `json:"narrative" validate:"max=20000"`
}

// BulkImplementationRequest applies one implementation to many controls.
type BulkImplementationRequest struct {
	ControlIDs []string `json:"control_ids" validate:"required,min=1,max=500,dive,required"`
	ImplementationRequest
}

// POAMRequest is used for create and partial update.
type POAMRequest struct {
	SystemID            *string           `json:"system_id" validate:"omitempty,max=64"`
	ControlID           *string           `json:"control_id" validate:"omitempty,max=64"`
	Title               *string           `json:"title" validate:"omitempty,min=1,max=300"`
	Description         *string           `json:"description" validate:"omitempty,max=20000"`
	WeaknessSource      *string           `json:"weakness_source" validate:"omitempty,max=200"`
	RiskLevel           *domain.RiskLevel `json:"risk_level" validate:"omitempty,oneof=low moderate high critical"`
	ScheduledCompletion *Date             `json:"scheduled_completion"`
	AssignedTo          *string           `json:"assigned_to" validate:"omitempty,max=64"`
}

// POAMStatusRequest requests a status transition.
type POAMStatusRequest struct {
	Status domain.POAMStatus `json:"status" validate:"required,oneof=draft open in_progress risk_accepted completed closed"`
}

// MilestoneRequest adds a milestone.
type MilestoneRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	DueDate *Date  `json:"due_date" validate:"required"`
}

// EvidenceUpdateRequest edits evidence metadata.
type EvidenceUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	ExpiresAt   *Date   `json:"expires_at"`
}

// EvidenceLinkRequest links evidence to an implementation.
type EvidenceLinkRequest struct {
	ImplementationID string `json:"implementation_id" validate:"required,max=64"`
}

// PolicyRequest is used for create and partial update.
type PolicyRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=300"`
	Category       *string `json:"category" validate:"omitempty,max=100"`
	Version        *string `json:"version" validate:"omitempty,max=32"`
	Content        *string `json:"content" validate:"omitempty,max=500000"`
	OwnerID        *string `json:"owner_id" validate:"omitempty,max=64"`
	NextReviewDate *Date   `json:"next_review_date"`
}

// SubmitPolicyRequest opens a publish request.
type SubmitPolicyRequest struct {
	Justification string `json:"justification" validate:"max=5000"`
}

// AssetRequest is used for create and partial update.
type AssetRequest struct {
	SystemID        *string             `json:"system_id" validate:"omitempty,max=64"`
	Name            *string             `json:"name" validate:"omitempty,min=1,max=200"`
	AssetType       *domain.AssetType   `json:"asset_type" validate:"omitempty,oneof=server workstation network application database cloud other"`
	Hostname        *string             `json:"hostname" validate:"omitempty,max=253"`
	IPAddress       *string             `json:"ip_address" validate:"omitempty,ip"`
	OperatingSystem *string             `json:"operating_system" validate:"omitempty,max=200"`
	Owner           *string             `json:"owner" validate:"omitempty,max=200"`
	Environment     *domain.Environment `json:"environment" validate:"omitempty,oneof=production staging development"`
	Criticality     *domain.RiskLevel   `json:"criticality" validate:"omitempty,oneof=low moderate high critical"`
	Status          *domain.AssetStatus `json:"status" validate:"omitempty,oneof=active retired"`
	LastSeenAt      *Date               `json:"last_seen_at"`
}

// CheckRequest is used for create and partial update of monitoring checks.
type CheckRequest struct {
	SystemID         *string           `json:"system_id" validate:"omitempty,max=64"`
	ImplementationID *string           `json:"implementation_id" validate:"omitempty,max=64"`
	Name             *string           `json:"name" validate:"omitempty,min=1,max=200"`
	Description      *string           `json:"description" validate:"omitempty,max=10000"`
	Frequency        *domain.Frequency `json:"frequency" validate:"omitempty,oneof=daily weekly monthly quarterly annually"`
	NextRunAt        *Date             `json:"next_run_at"`
	Active           *bool             `json:"active"`
}

// CheckResultRequest records one run.
type CheckResultRequest struct {
	Result domain.CheckResultValue `json:"result" validate:"required,oneof=pass fail warning"`
	Notes  string                  `json:"notes" validate:"max=10000"`
}

// ApprovalRequest opens an approval.
type ApprovalRequest struct {
	RequestType   domain.ApprovalType `json:"request_type" validate:"required,oneof=policy_publish risk_acceptance poam_closure"`
	TargetID      string              `json:"target_id" validate:"required,max=64"`
	Justification string              `json:"justification" validate:"max=5000"`
}

// DecisionRequest decides an approval.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Comment  string `json:"comment" validate:"max=5000"`
}
