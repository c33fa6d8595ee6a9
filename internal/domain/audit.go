package domain

import "time"

// AuditLogEntry is an immutable record of a mutating action.
type AuditLogEntry struct {
	ID           string         `db:"id" json:"id"`
	OrgID        string         `db:"org_id" json:"org_id"`
	UserID       *string        `db:"user_id" json:"user_id,omitempty"`
	Action       string         `db:"action" json:"action"`
	ResourceType string         `db:"resource_type" json:"resource_type"`
	ResourceID   string         `db:"resource_id" json:"resource_id"`
	Details      map[string]any `db:"-" json:"details,omitempty"`
	DetailsJSON  string         `db:"details" json:"-"`
	IPAddress    string         `db:"ip_address" json:"ip_address"`
	UserAgent    string         `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Actor identifies who performs a service call, for audit attribution.
type Actor struct {
	UserID    string
	OrgID     string
	Role      Role
	IPAddress string
	UserAgent string
}
