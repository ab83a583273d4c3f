package nav

import (
	"context"
	"errors"
	"sync"

	"github.com/hcm-portal/hcm-portal/internal/config"
	"github.com/hcm-portal/hcm-portal/internal/telemetry"
)

// Command names an SSO action into an external back-office system. Navigation
// items reference commands; the Executor owns the fetch/open/fallback policy
// so it lives in exactly one place.
type Command string

const (
	// CommandTimeClock opens the external time clock (swipeclock).
	CommandTimeClock Command = "time_clock"

	// CommandPayStubs opens the employee's pay stub history in the payroll
	// back office.
	CommandPayStubs Command = "pay_stubs"

	// CommandExpenseReporting opens the expense reporting system.
	CommandExpenseReporting Command = "expense_reporting"

	// CommandPayrollAdmin opens the payroll back office's admin console.
	CommandPayrollAdmin Command = "payroll_admin"
)

// commandSystems maps each command to the external system name used for the
// signed-redirect request and the per-system fallback table.
var commandSystems = map[Command]string{
	CommandTimeClock:        "swipeclock",
	CommandPayStubs:         "payroll",
	CommandExpenseReporting: "expense",
	CommandPayrollAdmin:     "payroll_admin",
}

// ErrUnknownCommand is returned when the requested command is not in the
// catalog. The API layer maps it to 404.
var ErrUnknownCommand = errors.New("unknown sso command")

// RedirectFetcher obtains a signed redirect URL for a system scoped to a
// client entity. Satisfied by *backoffice.Client.
type RedirectFetcher interface {
	GetRedirect(ctx context.Context, system, clientID string) (string, error)
}

// Result is the outcome of executing a command. Exactly one of URL,
// FallbackURL, or a bare Notification is the primary payload: URL on success,
// FallbackURL (with Notification) when policy says to open the public login
// page, Notification alone otherwise.
type Result struct {
	URL          string `json:"url,omitempty"`
	FallbackURL  string `json:"fallback_url,omitempty"`
	Notification string `json:"notification,omitempty"`
}

// Executor resolves SSO commands. Upstream failures never escape Execute;
// they surface as fallback or notification results per the system's policy.
// The fallback table is replaceable at runtime for config hot reload.
type Executor struct {
	fetcher RedirectFetcher

	mu      sync.RWMutex
	systems map[string]config.SSOSystemConfig
}

// NewExecutor builds an executor over the configured system table.
func NewExecutor(fetcher RedirectFetcher, systems []config.SSOSystemConfig) *Executor {
	e := &Executor{fetcher: fetcher}
	e.SetSystems(systems)
	return e
}

// SetSystems replaces the fallback table wholesale. Called by the config
// watcher on file change.
func (e *Executor) SetSystems(systems []config.SSOSystemConfig) {
	table := make(map[string]config.SSOSystemConfig, len(systems))
	for _, s := range systems {
		table[s.Name] = s
	}
	e.mu.Lock()
	e.systems = table
	e.mu.Unlock()
}

// Execute resolves a command to a redirect result for the given entity.
// Unknown commands are the only error; everything upstream-related resolves
// to a Result.
func (e *Executor) Execute(ctx context.Context, cmd Command, clientID string) (*Result, error) {
	system, ok := commandSystems[cmd]
	if !ok {
		return nil, ErrUnknownCommand
	}

	e.mu.RLock()
	policy := e.systems[system]
	e.mu.RUnlock()

	url, err := e.fetcher.GetRedirect(ctx, system, clientID)
	if err != nil {
		if policy.FallbackURL != "" {
			return fallback(system, policy), nil
		}
		return failed(system, policy), nil
	}

	// Some systems report "no account provisioned" as an empty success
	// instead of an error. The per-system policy decides which way it goes.
	if url == "" {
		if policy.OpenFallbackOnEmpty && policy.FallbackURL != "" {
			return fallback(system, policy), nil
		}
		return failed(system, policy), nil
	}

	telemetry.SSORedirectsIssuedTotal.WithLabelValues(system).Inc()
	return &Result{URL: url}, nil
}

func fallback(system string, policy config.SSOSystemConfig) *Result {
	telemetry.SSORedirectFallbacksTotal.WithLabelValues(system).Inc()
	return &Result{
		FallbackURL:  policy.FallbackURL,
		Notification: notification(policy),
	}
}

func failed(system string, policy config.SSOSystemConfig) *Result {
	telemetry.SSORedirectFailuresTotal.WithLabelValues(system).Inc()
	return &Result{Notification: notification(policy)}
}

func notification(policy config.SSOSystemConfig) string {
	if policy.FailureMessage != "" {
		return policy.FailureMessage
	}
	return "We couldn't open this service right now. Please try again later."
}
