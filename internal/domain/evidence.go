package domain

import "time"

// EvidenceStatus enumerates evidence states.
type EvidenceStatus string

const (
	EvidenceActive   EvidenceStatus = "active"
	EvidenceExpired  EvidenceStatus = "expired"
	EvidenceArchived EvidenceStatus = "archived"
)

// Evidence is an uploaded artifact supporting control implementations.
type Evidence struct {
	ID                      string         `db:"id" json:"id"`
	OrgID                   string         `db:"org_id" json:"org_id"`
	Title                   string         `db:"title" json:"title"`
	Description             string         `db:"description" json:"description"`
	FileName                string         `db:"file_name" json:"file_name"`
	MimeType                string         `db:"mime_type" json:"mime_type"`
	SizeBytes               int64          `db:"size_bytes" json:"size_bytes"`
	SHA256                  string         `db:"sha256" json:"sha256"`
	StorageKey              string         `db:"storage_key" json:"-"`
	CollectedAt             time.Time      `db:"collected_at" json:"collected_at"`
	ExpiresAt               *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	Status                  EvidenceStatus `db:"status" json:"status"`
	UploadedBy              *string        `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt               time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time      `db:"updated_at" json:"updated_at"`
	LinkedImplementationIDs []string       `db:"-" json:"linked_implementation_ids,omitempty"`
}

// IsExpired reports whether the evidence has passed its expiry.
func (e *Evidence) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}
