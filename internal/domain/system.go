package domain

import "time"

// ImpactLevel is the FIPS-199 categorization of a system.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactModerate ImpactLevel = "moderate"
	ImpactHigh     ImpactLevel = "high"
)

// SystemStatus enumerates operational states.
type SystemStatus string

const (
	SystemStatusActive         SystemStatus = "active"
	SystemStatusInactive       SystemStatus = "inactive"
	SystemStatusDecommissioned SystemStatus = "decommissioned"
)

// AuthorizationStatus tracks the ATO lifecycle.
type AuthorizationStatus string

const (
	AuthorizationNotStarted AuthorizationStatus = "not_started"
	AuthorizationInProgress AuthorizationStatus = "in_progress"
	AuthorizationAuthorized AuthorizationStatus = "authorized"
	AuthorizationDenied     AuthorizationStatus = "denied"
	AuthorizationExpired    AuthorizationStatus = "expired"
)

// System is an information system under compliance tracking.
type System struct {
	ID                    string              `db:"id" json:"id"`
	OrgID                 string              `db:"org_id" json:"org_id"`
	Name                  string              `db:"name" json:"name"`
	Acronym               string              `db:"acronym" json:"acronym"`
	Description           string              `db:"description" json:"description"`
	ImpactLevel           ImpactLevel         `db:"impact_level" json:"impact_level"`
	Status                SystemStatus        `db:"status" json:"status"`
	AuthorizationStatus   AuthorizationStatus `db:"authorization_status" json:"authorization_status"`
	ATODate               *time.Time          `db:"ato_date" json:"ato_date,omitempty"`
	ATOExpiry             *time.Time          `db:"ato_expiry" json:"ato_expiry,omitempty"`
	CommonControlProvider bool                `db:"common_control_provider" json:"common_control_provider"`
	CreatedAt             time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time           `db:"updated_at" json:"updated_at"`
}
