package nav

import (
	"github.com/hcm-portal/hcm-portal/internal/auth"
	"github.com/hcm-portal/hcm-portal/internal/backoffice"
	"github.com/hcm-portal/hcm-portal/internal/session"
)

// Generate computes the navigation tree for a user. It is pure: identical
// inputs yield structurally identical trees, and nothing is cached between
// calls. A nil user yields an empty tree; that is the only guard.
//
// Visibility is driven by the user's normalized flags and the company config
// map. The current entity plays no part here: entity scoping happens when an
// SSO command executes, not when the menu is drawn.
//
// Group and item order below is the menu's visual order. Do not sort.
func Generate(user *session.NormalizedUser, company *backoffice.Company) *Tree {
	if user == nil {
		return &Tree{Items: []Group{}}
	}

	flags := session.NewConfigMap(company)

	selfService := Group{
		Key:     "self_service",
		Label:   "My Stuff",
		Visible: true,
		Items: []Item{
			{
				Key:     "dashboard",
				Label:   "Dashboard",
				Icon:    "home",
				Action:  ActionRoute,
				Route:   "/dashboard",
				Visible: true,
			},
			{
				Key:     "time_off",
				Label:   "Time off",
				Icon:    "calendar",
				Action:  ActionRoute,
				Route:   "/time-off",
				Visible: user.IsPTOEnabled,
			},
			{
				Key:     "time_clock",
				Label:   "Time clock",
				Icon:    "clock",
				Action:  ActionCommand,
				Command: CommandTimeClock,
				Visible: user.IsTimeClockEnabled,
			},
			{
				Key:     "pay_stubs",
				Label:   "Pay stubs",
				Icon:    "payments",
				Action:  ActionCommand,
				Command: CommandPayStubs,
				Visible: true,
			},
			{
				Key:     "tax_forms",
				Label:   "Tax forms",
				Icon:    "description",
				Action:  ActionRoute,
				Route:   "/tax-forms",
				Visible: user.ShowTaxForms,
			},
			{
				Key:     "benefits",
				Label:   "Benefits",
				Icon:    "health",
				Action:  ActionRoute,
				Route:   "/benefits",
				Visible: user.IsBenefitsEnabled,
			},
			{
				Key:     "expense_reporting",
				Label:   "Expense reports",
				Icon:    "receipt",
				Action:  ActionCommand,
				Command: CommandExpenseReporting,
				Visible: user.IsExpenseReportingEnabled,
			},
			{
				Key:     "custom_fields",
				Label:   "My details",
				Icon:    "badge",
				Action:  ActionRoute,
				Route:   "/profile/details",
				Visible: user.IsCustomFieldsEnabled,
			},
		},
	}

	companyGroup := Group{
		Key:     "company",
		Label:   "Company",
		Visible: true,
		Items: []Item{
			{
				Key:     "directory",
				Label:   "Directory",
				Icon:    "people",
				Action:  ActionRoute,
				Route:   "/directory",
				Visible: true,
			},
			{
				Key:     "org_chart",
				Label:   "Org chart",
				Icon:    "account_tree",
				Action:  ActionRoute,
				Route:   "/org-chart",
				Visible: user.IsOrgChartEnabled,
			},
			{
				Key:     "handbook",
				Label:   "Employee handbook",
				Icon:    "menu_book",
				Action:  ActionRoute,
				Route:   "/handbook",
				Visible: user.HasHandbook,
			},
			{
				Key:     "documents",
				Label:   "Company documents",
				Icon:    "folder",
				Action:  ActionRoute,
				Route:   "/documents",
				Visible: flags.Get(session.FlagCompanyDocuments, false),
			},
		},
	}

	manager := Group{
		Key:   "manager",
		Label: "My Team",
		// Admins see the admin group instead; the manager group is for
		// managers who are not also admins.
		Visible: user.IsManager && !user.IsAdmin,
		Items: []Item{
			{
				Key:     "team",
				Label:   "Team",
				Icon:    "groups",
				Action:  ActionRoute,
				Route:   "/manager/team",
				Visible: true,
			},
			{
				Key:     "approvals",
				Label:   "Time off approvals",
				Icon:    "task",
				Action:  ActionRoute,
				Route:   "/manager/approvals",
				Visible: user.IsPTOEnabled,
			},
			{
				Key:     "team_time_clock",
				Label:   "Team time clock",
				Icon:    "clock",
				Action:  ActionCommand,
				Command: CommandTimeClock,
				Visible: user.IsTimeClockEnabled,
			},
		},
	}

	admin := Group{
		Key:     "admin",
		Label:   "Administration",
		Visible: user.IsAdmin,
		Items: []Item{
			{
				Key:     "beta_dashboard",
				Label:   "Insights dashboard",
				Icon:    "insights",
				Action:  ActionRoute,
				Route:   "/admin/insights",
				Visible: user.IsBetaDashboardEnabled,
			},
			{
				Key:     "payroll_admin",
				Label:   "Payroll console",
				Icon:    "payments",
				Action:  ActionCommand,
				Command: CommandPayrollAdmin,
				Visible: true,
			},
			{
				Key:     "reports",
				Label:   "Reports",
				Icon:    "bar_chart",
				Action:  ActionRoute,
				Route:   "/admin/reports",
				Visible: auth.HasRole(user.Roles, auth.RoleReportWriter),
			},
			{
				Key:     "company_settings",
				Label:   "Company settings",
				Icon:    "settings",
				Action:  ActionRoute,
				Route:   "/admin/settings",
				Visible: true,
			},
		},
	}

	return &Tree{Items: []Group{selfService, companyGroup, manager, admin}}
}
