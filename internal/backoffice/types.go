// Package backoffice implements the HTTP client for the upstream HCM
// back-office API: employee profile lookups and signed SSO redirect URLs.
// Response shape discrimination happens once, here, at the client boundary —
// callers receive a tagged ProfileEnvelope and never probe for field presence
// themselves.
package backoffice

import "encoding/json"

// ProfileKind tags the two possible shapes of a profile response.
type ProfileKind string

const (
	// ProfileKindEarlyExit is a status-only response: the employee cannot
	// enter the portal yet (or any more) and the status says why.
	ProfileKindEarlyExit ProfileKind = "early_exit"

	// ProfileKindFull is a complete profile payload for an employee in good
	// standing.
	ProfileKindFull ProfileKind = "full_profile"
)

// Early-exit status values returned by the back office.
const (
	StatusEnrollmentIncomplete = "benefit_enrollment_incomplete"
	StatusPayrollInactive      = "payroll_inactive"
)

// EarlyExitStatus is the status-only profile response body.
type EarlyExitStatus struct {
	Status         string `json:"status"`
	EmployeeStatus string `json:"employee_status,omitempty"`
}

// ConfigEntry is one company configuration flag. Data carries optional
// flag-specific payload (e.g. an external account id) and is passed through
// opaquely.
type ConfigEntry struct {
	Flag  string          `json:"flag"`
	Value bool            `json:"value"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Company is the employer company record attached to a full profile. Config
// arrives as an ordered list; consumers build a flag map from it once (see
// session.NewConfigMap).
type Company struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	LogoURL string        `json:"logo_url,omitempty"`
	Config  []ConfigEntry `json:"config"`
}

// ClientEntity is one legal employer entity a login may act under. A user
// with several entities has exactly one current at a time.
type ClientEntity struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// FullProfile is the complete employee profile payload. FirstName and Company
// are the structural markers the back office guarantees on every full
// response; their presence is what distinguishes this shape on the wire.
type FullProfile struct {
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	Email            string         `json:"email"`
	EmployeeStatus   string         `json:"employee_status"`
	EnrollmentStatus string         `json:"enrollment_status,omitempty"`
	ShowTaxForms     bool           `json:"show_tax_forms"`
	HasHandbook      bool           `json:"has_handbook"`
	Company          *Company       `json:"company"`
	Entities         []ClientEntity `json:"entities,omitempty"`
}

// ProfileEnvelope is the discriminated union of the two profile shapes.
// Exactly one of EarlyExit/Full is non-nil, matching Kind.
type ProfileEnvelope struct {
	Kind      ProfileKind
	EarlyExit *EarlyExitStatus
	Full      *FullProfile
}

// EmployeeStatus returns the employee status code regardless of envelope
// shape, or "" when the response carries none.
func (e *ProfileEnvelope) EmployeeStatus() string {
	switch e.Kind {
	case ProfileKindEarlyExit:
		return e.EarlyExit.EmployeeStatus
	case ProfileKindFull:
		return e.Full.EmployeeStatus
	}
	return ""
}
