// roles.go defines the HCM role constants asserted by the identity provider
// and the membership helpers used by the bootstrap normalizer and the
// navigation resolver. Roles are re-read from the raw list on every pass —
// they are never cached into derived claims, so a role change at the IdP takes
// effect on the next token.
package auth

// Role represents one entry of the hcm_roles claim
type Role string

const (
	// RoleAdmin grants the company admin navigation group and admin-only
	// back-office integrations.
	RoleAdmin Role = "hcm_admin"

	// RoleManager grants the manager navigation group (direct reports,
	// approvals). Admin and manager are independent: a user may hold both.
	RoleManager Role = "hcm_manager"

	// Feature roles gate individual navigation items rather than groups.
	RoleBetaDashboard    Role = "beta_dashboard"
	RoleExpenseReporting Role = "expense_reporting"
	RoleReportWriter     Role = "report_writer"
)

// HasRole checks for exact membership in the raw role list.
func HasRole(roles []string, required Role) bool {
	for _, r := range roles {
		if r == string(required) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role list carries the admin role.
func IsAdmin(roles []string) bool {
	return HasRole(roles, RoleAdmin)
}

// IsManager reports whether the role list carries the manager role.
// Not exclusive with IsAdmin.
func IsManager(roles []string) bool {
	return HasRole(roles, RoleManager)
}
