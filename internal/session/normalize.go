// normalize.go derives the NormalizedUser model from an identity session and
// a full profile payload. Derivation is total and pure: role booleans come
// from the raw role list, capability booleans from the company flag map and
// feature roles. Nothing here is cached between passes.
package session

import (
	"github.com/hcm-portal/hcm-portal/internal/auth"
	"github.com/hcm-portal/hcm-portal/internal/backoffice"
)

// NormalizeUser builds the full user model for an active employee.
func NormalizeUser(sess *auth.IdentitySession, profile *backoffice.FullProfile, flags *ConfigMap) *NormalizedUser {
	swipeclock := flags.Get(FlagSwipeclock, false)

	return &NormalizedUser{
		FirstName:      profile.FirstName,
		LastName:       profile.LastName,
		Email:          sess.Email,
		EmployeeStatus: profile.EmployeeStatus,

		IsAdmin:   auth.IsAdmin(sess.Roles),
		IsManager: auth.IsManager(sess.Roles),

		EnrollmentStatus: profile.EnrollmentStatus,
		ShowTaxForms:     profile.ShowTaxForms,
		HasHandbook:      profile.HasHandbook,

		// PTO and the external time clock are mutually exclusive: companies
		// on the swipeclock integration track time off there.
		IsPTOEnabled:              flags.Get(FlagPTOEnabled, false) && !swipeclock,
		IsTimeClockEnabled:        swipeclock,
		IsOrgChartEnabled:         flags.Get(FlagShowOrgChart, true),
		IsBenefitsEnabled:         flags.Get(FlagBenefits, true),
		IsCustomFieldsEnabled:     flags.Get(FlagCustomFields, false),
		IsExpenseReportingEnabled: auth.HasRole(sess.Roles, auth.RoleExpenseReporting),
		IsBetaDashboardEnabled:    auth.HasRole(sess.Roles, auth.RoleBetaDashboard),

		Roles: sess.Roles,
	}
}

// MinimalUser builds the name-only user model for the quickhire hold state.
// No company or entity context exists yet, and no profile fetch has happened.
func MinimalUser(sess *auth.IdentitySession) *NormalizedUser {
	return &NormalizedUser{
		FirstName: sess.GivenName,
		LastName:  sess.FamilyName,
		Email:     sess.Email,
	}
}
