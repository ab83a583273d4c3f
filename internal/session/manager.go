// manager.go is the session bootstrap state machine. All session state
// mutation flows through the three named operations — Initialize, Refresh,
// RefreshEntity — and each pass reaches at most one terminal outcome, checked
// in strict priority order with an early return once a navigating state is
// hit.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hcm-portal/hcm-portal/internal/auth"
	"github.com/hcm-portal/hcm-portal/internal/backoffice"
	"github.com/hcm-portal/hcm-portal/internal/config"
	"github.com/hcm-portal/hcm-portal/internal/safego"
	"github.com/hcm-portal/hcm-portal/internal/telemetry"
)

// ProfileService is the upstream surface the state machine depends on,
// satisfied by *backoffice.Client.
type ProfileService interface {
	GetUserProfile(ctx context.Context, subject, entityID string) (*backoffice.ProfileEnvelope, error)
	GetRedirect(ctx context.Context, system, clientID string) (string, error)
}

// PreferenceStore persists the last selected entity per subject so
// multi-entity users resume where they left off.
type PreferenceStore interface {
	GetPreferredEntity(ctx context.Context, subject string) (string, error)
	SetPreferredEntity(ctx context.Context, subject, entityID string) error
}

// AuditSink records session lifecycle events. Implementations must be safe
// for concurrent use; recording is best-effort from the manager's point of
// view.
type AuditSink interface {
	Record(ctx context.Context, action, subject string, metadata map[string]interface{})
}

// RefreshOptions controls a Refresh pass. Entity, when set, scopes the
// profile fetch to that legal entity.
type RefreshOptions struct {
	Entity string
}

// Manager owns bootstrapped session state. The snapshot cache is the single
// slot per subject; every write replaces it wholesale.
type Manager struct {
	profiles    ProfileService
	preferences PreferenceStore
	cache       SnapshotCache
	audit       AuditSink
	portal      config.PortalConfig
}

// NewManager wires the state machine. preferences, cache, and audit may be
// nil; the corresponding behavior (entity stickiness, snapshot reuse,
// auditing) is skipped.
func NewManager(profiles ProfileService, preferences PreferenceStore, cache SnapshotCache, audit AuditSink, portal config.PortalConfig) *Manager {
	return &Manager{
		profiles:    profiles,
		preferences: preferences,
		cache:       cache,
		audit:       audit,
		portal:      portal,
	}
}

// Initialize runs one full bootstrap pass for the given identity session.
// The checks run in strict order; the first match is terminal for this pass:
//
//  1. quickhire in progress  — minimal user, no profile fetch
//  2. prehire                — route redirect, no profile fetch
//  3. enrollment incomplete  — route redirect
//  4. terminated             — external redirect (missing URL is fatal)
//  5. payroll inactive       — route redirect to logout
//  6. active                 — normalized user snapshot
//
// Any error is a fatal bootstrap error; the caller renders the full-page
// error state and no partial session survives.
func (m *Manager) Initialize(ctx context.Context, sess *auth.IdentitySession) (*Outcome, error) {
	outcome, err := m.initialize(ctx, sess)
	if err != nil {
		telemetry.BootstrapOutcomesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	telemetry.BootstrapOutcomesTotal.WithLabelValues(string(outcome.Kind)).Inc()
	m.record("session.bootstrap", sess.Subject, map[string]interface{}{"outcome": string(outcome.Kind)})
	return outcome, nil
}

func (m *Manager) initialize(ctx context.Context, sess *auth.IdentitySession) (*Outcome, error) {
	// 1. Streamlined quickhire with no prehire key yet: hold at a minimal
	// session. Not cached — the flow completes out of band and the next pass
	// must re-evaluate.
	if sess.IsQuickhireInProgress() {
		return &Outcome{
			Kind: OutcomeQuickhireInProgress,
			User: MinimalUser(sess),
		}, nil
	}

	// 2. Prehire accounts go to onboarding before any profile exists.
	if sess.IsPrehire() {
		return &Outcome{
			Kind:     OutcomePrehireRedirect,
			Redirect: &Redirect{Type: RedirectRoute, Target: m.portal.OnboardingStartPath},
		}, nil
	}

	// Serve from the snapshot cache when possible. Only active outcomes are
	// ever cached, so a hit skips straight past the profile-status checks —
	// the employee-status webhook evicts the entry when that would be wrong.
	if m.cache != nil {
		snap, err := m.cache.Get(ctx, sess.Subject)
		if err != nil {
			slog.Warn("snapshot cache unavailable, falling through to profile fetch", "error", err)
		} else if snap != nil {
			telemetry.SnapshotCacheHitsTotal.Inc()
			return activeOutcome(snap), nil
		}
		telemetry.SnapshotCacheMissesTotal.Inc()
	}

	entityID := m.preferredEntity(ctx, sess.Subject)

	profile, err := m.profiles.GetUserProfile(ctx, sess.Subject, entityID)
	if err != nil {
		return nil, fmt.Errorf("bootstrap profile fetch: %w", err)
	}

	// 3. Benefits enrollment incomplete: into the enrollment wrapper.
	if profile.Kind == backoffice.ProfileKindEarlyExit &&
		profile.EarlyExit.Status == backoffice.StatusEnrollmentIncomplete {
		return &Outcome{
			Kind:     OutcomeEnrollmentIncompleteRedirect,
			Redirect: &Redirect{Type: RedirectRoute, Target: m.portal.EnrollmentWrapperPath},
		}, nil
	}

	// 4. Terminated employees leave via a full browser navigation to the
	// back office. A missing URL is fatal: there is nowhere else to send
	// them.
	if profile.EmployeeStatus() == m.portal.TerminatedStatusCode {
		target, err := m.profiles.GetRedirect(ctx, "", "")
		if err != nil {
			return nil, fmt.Errorf("terminated redirect fetch: %w", err)
		}
		if target == "" {
			return nil, ErrRedirectTargetMissing
		}
		return &Outcome{
			Kind:     OutcomeTerminatedRedirect,
			Redirect: &Redirect{Type: RedirectExternal, Target: target},
		}, nil
	}

	// 5. Not active in the payroll system: log out.
	if profile.Kind == backoffice.ProfileKindEarlyExit &&
		profile.EarlyExit.Status == backoffice.StatusPayrollInactive {
		return &Outcome{
			Kind:     OutcomeInactiveLogout,
			Redirect: &Redirect{Type: RedirectRoute, Target: m.portal.LogoutPath},
		}, nil
	}

	if profile.Kind != backoffice.ProfileKindFull {
		return nil, fmt.Errorf("unexpected early-exit status %q during bootstrap", profile.EarlyExit.Status)
	}

	// 6. Active user.
	snap := m.buildSnapshot(sess, profile.Full, entityID)
	m.storeSnapshot(ctx, sess.Subject, snap)
	return activeOutcome(snap), nil
}

// Refresh refetches the profile and replaces the snapshot wholesale. It does
// NOT re-run the redirect checks — a user who became terminated mid-session
// is only caught by a fresh Initialize (full reload) or by the
// employee-status webhook evicting the snapshot. An early-exit response here
// therefore surfaces as ErrNotFullProfile rather than a redirect.
func (m *Manager) Refresh(ctx context.Context, sess *auth.IdentitySession, opts RefreshOptions) (*Snapshot, error) {
	entityID := opts.Entity
	if entityID == "" {
		entityID = m.preferredEntity(ctx, sess.Subject)
	}

	profile, err := m.profiles.GetUserProfile(ctx, sess.Subject, entityID)
	if err != nil {
		return nil, fmt.Errorf("profile refresh: %w", err)
	}
	if profile.Kind != backoffice.ProfileKindFull {
		return nil, ErrNotFullProfile
	}

	snap := m.buildSnapshot(sess, profile.Full, entityID)
	m.storeSnapshot(ctx, sess.Subject, snap)
	m.record("session.refresh", sess.Subject, map[string]interface{}{"entity_id": entityID})
	return snap, nil
}

// RefreshEntity switches the current legal entity: it refreshes scoped to the
// entity and persists the choice so later bootstraps resume there.
func (m *Manager) RefreshEntity(ctx context.Context, sess *auth.IdentitySession, entityID string) (*Snapshot, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}

	snap, err := m.Refresh(ctx, sess, RefreshOptions{Entity: entityID})
	if err != nil {
		return nil, err
	}

	if m.preferences != nil {
		if err := m.preferences.SetPreferredEntity(ctx, sess.Subject, entityID); err != nil {
			// Stickiness is a convenience; the switch itself already took
			// effect in the snapshot.
			slog.Warn("failed to persist entity preference", "subject", sess.Subject, "error", err)
		}
	}
	m.record("session.entity_switch", sess.Subject, map[string]interface{}{"entity_id": entityID})
	return snap, nil
}

// Invalidate evicts the cached snapshot for a subject. Called by the
// employee-status webhook when the back office reports a status change.
func (m *Manager) Invalidate(ctx context.Context, subject string) error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Delete(ctx, subject)
}

// buildSnapshot normalizes a full profile into a snapshot, selecting the
// current entity: the requested/preferred entity when it is one of the
// profile's entities, otherwise the first entity.
func (m *Manager) buildSnapshot(sess *auth.IdentitySession, profile *backoffice.FullProfile, entityID string) *Snapshot {
	flags := NewConfigMap(profile.Company)

	var current *backoffice.ClientEntity
	if len(profile.Entities) > 0 {
		current = &profile.Entities[0]
		for i := range profile.Entities {
			if profile.Entities[i].ClientID == entityID {
				current = &profile.Entities[i]
				break
			}
		}
	}

	return &Snapshot{
		User:        NormalizeUser(sess, profile, flags),
		Company:     profile.Company,
		Entity:      current,
		Entities:    profile.Entities,
		RefreshedAt: time.Now().UTC(),
	}
}

// storeSnapshot writes the snapshot to the cache, best-effort.
func (m *Manager) storeSnapshot(ctx context.Context, subject string, snap *Snapshot) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, subject, snap); err != nil {
		slog.Warn("failed to cache session snapshot", "subject", subject, "error", err)
	}
}

// preferredEntity reads the sticky entity choice, tolerating store failures.
func (m *Manager) preferredEntity(ctx context.Context, subject string) string {
	if m.preferences == nil {
		return ""
	}
	entityID, err := m.preferences.GetPreferredEntity(ctx, subject)
	if err != nil {
		slog.Warn("failed to read entity preference", "subject", subject, "error", err)
		return ""
	}
	return entityID
}

// record emits an audit event without blocking the request path. The event
// deliberately outlives the request context.
func (m *Manager) record(action, subject string, metadata map[string]interface{}) {
	if m.audit == nil {
		return
	}
	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.audit.Record(ctx, action, subject, metadata)
	})
}

func activeOutcome(snap *Snapshot) *Outcome {
	return &Outcome{
		Kind:     OutcomeActive,
		User:     snap.User,
		Company:  snap.Company,
		Entity:   snap.Entity,
		Entities: snap.Entities,
	}
}
