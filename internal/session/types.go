// Package session implements the portal's session bootstrap state machine.
// A bootstrap pass resolves an identity provider session into exactly one
// terminal outcome — a hire-flow hold, a redirect instruction, or a fully
// normalized active-user snapshot — checked in strict priority order with an
// early return at the first match.
package session

import (
	"errors"
	"time"

	"github.com/hcm-portal/hcm-portal/internal/backoffice"
)

// OutcomeKind tags the terminal states of a bootstrap pass.
type OutcomeKind string

const (
	// OutcomeQuickhireInProgress holds the user at a minimal session while
	// the streamlined quickhire flow completes. Re-evaluated on every pass.
	OutcomeQuickhireInProgress OutcomeKind = "quickhire_in_progress"

	// OutcomePrehireRedirect sends the SPA to the onboarding start route.
	OutcomePrehireRedirect OutcomeKind = "prehire_redirect"

	// OutcomeEnrollmentIncompleteRedirect sends the SPA to the benefits
	// enrollment wrapper route.
	OutcomeEnrollmentIncompleteRedirect OutcomeKind = "enrollment_incomplete_redirect"

	// OutcomeTerminatedRedirect sends the browser to an external back-office
	// URL via full navigation.
	OutcomeTerminatedRedirect OutcomeKind = "terminated_redirect"

	// OutcomeInactiveLogout sends the SPA to the logout route.
	OutcomeInactiveLogout OutcomeKind = "inactive_logout"

	// OutcomeActive is the default terminal state: a normalized user with
	// company and entity context.
	OutcomeActive OutcomeKind = "active"
)

// RedirectType distinguishes client-side route navigation from a full
// browser navigation to an external URL.
type RedirectType string

const (
	RedirectRoute    RedirectType = "route"
	RedirectExternal RedirectType = "external"
)

// Redirect is a navigation instruction attached to a redirect outcome.
type Redirect struct {
	Type   RedirectType `json:"type"`
	Target string       `json:"target"`
}

// NormalizedUser is the profile model the rest of the portal consumes. Role
// booleans derive from the raw hcm_roles list and capability booleans derive
// from company config and feature roles; all of them are recomputed on every
// bootstrap and refresh, never carried over.
type NormalizedUser struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	EmployeeStatus string `json:"employee_status,omitempty"`

	IsAdmin   bool `json:"is_admin"`
	IsManager bool `json:"is_manager"`

	EnrollmentStatus string `json:"enrollment_status,omitempty"`
	ShowTaxForms     bool   `json:"show_tax_forms"`
	HasHandbook      bool   `json:"has_handbook"`

	IsPTOEnabled              bool `json:"is_pto_enabled"`
	IsTimeClockEnabled        bool `json:"is_time_clock_enabled"`
	IsOrgChartEnabled         bool `json:"is_org_chart_enabled"`
	IsBenefitsEnabled         bool `json:"is_benefits_enabled"`
	IsCustomFieldsEnabled     bool `json:"is_custom_fields_enabled"`
	IsExpenseReportingEnabled bool `json:"is_expense_reporting_enabled"`
	IsBetaDashboardEnabled    bool `json:"is_beta_dashboard_enabled"`

	// Roles is the raw hcm_roles list, kept for feature membership tests in
	// the navigation resolver.
	Roles []string `json:"hcm_roles,omitempty"`
}

// Snapshot is the bootstrapped session model for an active user. It is
// replaced wholesale on refresh, never patched.
type Snapshot struct {
	User        *NormalizedUser           `json:"user"`
	Company     *backoffice.Company       `json:"company"`
	Entity      *backoffice.ClientEntity  `json:"entity,omitempty"`
	Entities    []backoffice.ClientEntity `json:"entities,omitempty"`
	RefreshedAt time.Time                 `json:"refreshed_at"`
}

// Outcome is the tagged result of a bootstrap pass. Exactly one shape is
// populated for its Kind: Redirect for the redirect kinds, User (alone) for
// quickhire, the full snapshot fields for active.
type Outcome struct {
	Kind     OutcomeKind               `json:"kind"`
	Redirect *Redirect                 `json:"redirect,omitempty"`
	User     *NormalizedUser           `json:"user,omitempty"`
	Company  *backoffice.Company       `json:"company,omitempty"`
	Entity   *backoffice.ClientEntity  `json:"entity,omitempty"`
	Entities []backoffice.ClientEntity `json:"entities,omitempty"`
}

// ErrRedirectTargetMissing is returned when a mandatory external redirect
// (terminated-employee flow) got a successful but empty response from the
// back office. It is a fatal bootstrap error: without the URL the user has
// nowhere to go.
var ErrRedirectTargetMissing = errors.New("back office returned no redirect URL for mandatory redirect")

// ErrNotFullProfile is returned by Refresh when the upstream responds with an
// early-exit status instead of a full profile. Refresh deliberately does not
// re-run the redirect checks; the caller surfaces this as a refresh failure
// and a full reload (fresh Initialize) picks up the new state.
var ErrNotFullProfile = errors.New("profile refresh did not return a full profile")
