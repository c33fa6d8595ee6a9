package domain

import "time"

// ImplementationStatus records how far a control is implemented.
type ImplementationStatus string

const (
	ImplNotImplemented       ImplementationStatus = "not_implemented"
	ImplPlanned              ImplementationStatus = "planned"
	ImplPartiallyImplemented ImplementationStatus = "partially_implemented"
	ImplImplemented          ImplementationStatus = "implemented"
	ImplAlternative          ImplementationStatus = "alternative"
	ImplNotApplicable        ImplementationStatus = "not_applicable"
)

// Valid reports whether s is a known status.
func (s ImplementationStatus) Valid() bool {
	switch s {
	case ImplNotImplemented, ImplPlanned, ImplPartiallyImplemented, ImplImplemented, ImplAlternative, ImplNotApplicable:
		return true
	}
	return false
}

// Satisfied reports whether the status counts toward compliance.
func (s ImplementationStatus) Satisfied() bool {
	return s == ImplImplemented || s == ImplAlternative || s == ImplNotApplicable
}

// Origination says where a control implementation comes from.
type Origination string

const (
	OriginSystemSpecific Origination = "system_specific"
	OriginInherited      Origination = "inherited"
	OriginHybrid         Origination = "hybrid"
)

// Valid reports whether o is a known origination.
func (o Origination) Valid() bool {
	return o == OriginSystemSpecific || o == OriginInherited || o == OriginHybrid
}

// Implementation records how a system satisfies one control.
type Implementation struct {
	ID                    string               `db:"id" json:"id"`
	OrgID                 string               `db:"org_id" json:"org_id"`
	SystemID              string               `db:"system_id" json:"system_id"`
	ControlID             string               `db:"control_id" json:"control_id"`
	Status                ImplementationStatus `db:"status" json:"status"`
	Origination           Origination          `db:"origination" json:"origination"`
	InheritedFromSystemID *string              `db:"inherited_from_system_id" json:"inherited_from_system_id,omitempty"`
	ResponsibleRole       string               `db:"responsible_role" json:"responsible_role"`
	Narrative             string               `db:"narrative" json:"narrative"`
	LastReviewedAt        *time.Time           `db:"last_reviewed_at" json:"last_reviewed_at,omitempty"`
	CreatedAt             time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time            `db:"updated_at" json:"updated_at"`
}

// ImplementationView joins an implementation with its control metadata.
type ImplementationView struct {
	Implementation
	ControlRef   string `db:"control_ref" json:"control_ref"`
	ControlTitle string `db:"control_title" json:"control_title"`
	Family       string `db:"family" json:"family"`
}
