package domain

import "time"

// Frequency is how often a monitoring check must run.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

// Next returns the run time following from.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case FrequencyAnnually:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// CheckResultValue is the outcome of a check run.
type CheckResultValue string

const (
	CheckPass    CheckResultValue = "pass"
	CheckFail    CheckResultValue = "fail"
	CheckWarning CheckResultValue = "warning"
	CheckNotRun  CheckResultValue = "not_run"
)

// MonitoringCheck is a recurring continuous-monitoring activity.
type MonitoringCheck struct {
	ID               string           `db:"id" json:"id"`
	OrgID            string           `db:"org_id" json:"org_id"`
	SystemID         *string          `db:"system_id" json:"system_id,omitempty"`
	ImplementationID *string          `db:"implementation_id" json:"implementation_id,omitempty"`
	Name             string           `db:"name" json:"name"`
	Description      string           `db:"description" json:"description"`
	Frequency        Frequency        `db:"frequency" json:"frequency"`
	LastRunAt        *time.Time       `db:"last_run_at" json:"last_run_at,omitempty"`
	LastResult       CheckResultValue `db:"last_result" json:"last_result"`
	NextRunAt        time.Time        `db:"next_run_at" json:"next_run_at"`
	Active           bool             `db:"active" json:"active"`
	DueNotified      bool             `db:"due_notified" json:"-"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// CheckResult is one recorded run of a monitoring check.
type CheckResult struct {
	ID      string           `db:"id" json:"id"`
	CheckID string           `db:"check_id" json:"check_id"`
	Result  CheckResultValue `db:"result" json:"result"`
	Notes   string           `db:"notes" json:"notes"`
	RunBy   *string          `db:"run_by" json:"run_by,omitempty"`
	RunAt   time.Time        `db:"run_at" json:"run_at"`
}

// Valid reports whether v is a recordable result.
func (v CheckResultValue) Valid() bool {
	switch v {
	case CheckPass, CheckFail, CheckWarning, CheckNotRun:
		return true
	}
	return false
}
