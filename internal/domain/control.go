package domain

import "time"

// Baseline is the lowest impact baseline that selects a control.
type Baseline string

const (
	BaselineLow      Baseline = "low"
	BaselineModerate Baseline = "moderate"
	BaselineHigh     Baseline = "high"
)

// Framework is a published control catalog such as NIST SP 800-53.
type Framework struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Version     string    `db:"version" json:"version"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Control is a single requirement within a framework.
type Control struct {
	ID          string    `db:"id" json:"id"`
	FrameworkID string    `db:"framework_id" json:"framework_id"`
	ControlRef  string    `db:"control_ref" json:"control_ref"`
	Family      string    `db:"family" json:"family"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Baseline    Baseline  `db:"baseline" json:"baseline"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
