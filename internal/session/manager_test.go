package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcm-portal/hcm-portal/internal/auth"
	"github.com/hcm-portal/hcm-portal/internal/backoffice"
	"github.com/hcm-portal/hcm-portal/internal/config"
)

func boolPtr(v bool) *bool { return &v }

type fakeProfiles struct {
	envelope     *backoffice.ProfileEnvelope
	profileErr   error
	redirectURL  string
	redirectErr  error
	profileCalls int
	redirectCalls int
	lastEntityID string
}

func (f *fakeProfiles) GetUserProfile(ctx context.Context, subject, entityID string) (*backoffice.ProfileEnvelope, error) {
	f.profileCalls++
	f.lastEntityID = entityID
	return f.envelope, f.profileErr
}

func (f *fakeProfiles) GetRedirect(ctx context.Context, system, clientID string) (string, error) {
	f.redirectCalls++
	return f.redirectURL, f.redirectErr
}

type fakePreferences struct {
	preferred string
	getErr    error
	setCalls  []string
	setErr    error
}

func (f *fakePreferences) GetPreferredEntity(ctx context.Context, subject string) (string, error) {
	return f.preferred, f.getErr
}

func (f *fakePreferences) SetPreferredEntity(ctx context.Context, subject, entityID string) error {
	f.setCalls = append(f.setCalls, entityID)
	return f.setErr
}

type fakeCache struct {
	snap    *Snapshot
	getErr  error
	sets    int
	deletes int
}

func (f *fakeCache) Get(ctx context.Context, subject string) (*Snapshot, error) {
	return f.snap, f.getErr
}

func (f *fakeCache) Set(ctx context.Context, subject string, snap *Snapshot) error {
	f.sets++
	f.snap = snap
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, subject string) error {
	f.deletes++
	f.snap = nil
	return nil
}

func testPortalConfig() config.PortalConfig {
	return config.PortalConfig{
		TerminatedStatusCode:  "T",
		OnboardingStartPath:   "/onboarding/start",
		EnrollmentWrapperPath: "/benefits/enrollment",
		LogoutPath:            "/logout",
	}
}

func activeSession() *auth.IdentitySession {
	return &auth.IdentitySession{
		Subject:    "auth0|emp-1",
		Email:      "jdoe@example.com",
		GivenName:  "Jordan",
		FamilyName: "Doe",
		Roles:      []string{"hcm_manager"},
	}
}

func fullEnvelope() *backoffice.ProfileEnvelope {
	return &backoffice.ProfileEnvelope{
		Kind: backoffice.ProfileKindFull,
		Full: &backoffice.FullProfile{
			FirstName:      "Jordan",
			LastName:       "Doe",
			Email:          "jdoe@example.com",
			EmployeeStatus: "A",
			Company: &backoffice.Company{
				ID:   "co-1",
				Name: "Acme Staffing",
				Config: []backoffice.ConfigEntry{
					{Flag: FlagPTOEnabled, Value: true},
				},
			},
			Entities: []backoffice.ClientEntity{
				{ClientID: "ent-1", Name: "Acme East"},
				{ClientID: "ent-2", Name: "Acme West"},
			},
		},
	}
}

func TestInitializeQuickhireSkipsProfileFetch(t *testing.T) {
	profiles := &fakeProfiles{}
	sess := activeSession()
	sess.Metadata.StreamlinedQuickhire = boolPtr(true)

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, OutcomeQuickhireInProgress, outcome.Kind)
	assert.Equal(t, 0, profiles.profileCalls)
	require.NotNil(t, outcome.User)
	assert.Equal(t, "Jordan", outcome.User.FirstName)
	assert.Nil(t, outcome.Company)
	assert.Nil(t, outcome.Redirect)
}

func TestInitializePrehireBeatsQuickhire(t *testing.T) {
	profiles := &fakeProfiles{}
	sess := activeSession()
	// Once the prehire key is written the quickhire hold no longer applies,
	// even with the quickhire flag still set.
	sess.Metadata.StreamlinedQuickhire = boolPtr(true)
	sess.Metadata.Prehire = boolPtr(true)

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, OutcomePrehireRedirect, outcome.Kind)
	require.NotNil(t, outcome.Redirect)
	assert.Equal(t, RedirectRoute, outcome.Redirect.Type)
	assert.Equal(t, "/onboarding/start", outcome.Redirect.Target)
	assert.Equal(t, 0, profiles.profileCalls)
}

func TestInitializePrehireFalseProceedsToProfile(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	sess := activeSession()
	sess.Metadata.Prehire = boolPtr(false)

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, OutcomeActive, outcome.Kind)
	assert.Equal(t, 1, profiles.profileCalls)
}

func TestInitializeEnrollmentIncomplete(t *testing.T) {
	profiles := &fakeProfiles{envelope: &backoffice.ProfileEnvelope{
		Kind:      backoffice.ProfileKindEarlyExit,
		EarlyExit: &backoffice.EarlyExitStatus{Status: backoffice.StatusEnrollmentIncomplete},
	}}

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, OutcomeEnrollmentIncompleteRedirect, outcome.Kind)
	require.NotNil(t, outcome.Redirect)
	assert.Equal(t, RedirectRoute, outcome.Redirect.Type)
	assert.Equal(t, "/benefits/enrollment", outcome.Redirect.Target)
}

func TestInitializeTerminatedFetchesExternalRedirect(t *testing.T) {
	profiles := &fakeProfiles{
		envelope: &backoffice.ProfileEnvelope{
			Kind:      backoffice.ProfileKindEarlyExit,
			EarlyExit: &backoffice.EarlyExitStatus{Status: "other", EmployeeStatus: "T"},
		},
		redirectURL: "https://backoffice.example.com/exit?sig=abc",
	}

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, OutcomeTerminatedRedirect, outcome.Kind)
	require.NotNil(t, outcome.Redirect)
	assert.Equal(t, RedirectExternal, outcome.Redirect.Type)
	assert.Equal(t, "https://backoffice.example.com/exit?sig=abc", outcome.Redirect.Target)
	assert.Equal(t, 1, profiles.redirectCalls)
}

func TestInitializeTerminatedOnFullProfile(t *testing.T) {
	env := fullEnvelope()
	env.Full.EmployeeStatus = "T"
	profiles := &fakeProfiles{envelope: env, redirectURL: "https://backoffice.example.com/exit"}

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, OutcomeTerminatedRedirect, outcome.Kind)
}

func TestInitializeTerminatedEmptyRedirectIsFatal(t *testing.T) {
	profiles := &fakeProfiles{
		envelope: &backoffice.ProfileEnvelope{
			Kind:      backoffice.ProfileKindEarlyExit,
			EarlyExit: &backoffice.EarlyExitStatus{Status: "other", EmployeeStatus: "T"},
		},
		redirectURL: "",
	}

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRedirectTargetMissing)
	assert.Nil(t, outcome)
}

func TestInitializePayrollInactive(t *testing.T) {
	profiles := &fakeProfiles{envelope: &backoffice.ProfileEnvelope{
		Kind:      backoffice.ProfileKindEarlyExit,
		EarlyExit: &backoffice.EarlyExitStatus{Status: backoffice.StatusPayrollInactive},
	}}

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, OutcomeInactiveLogout, outcome.Kind)
	require.NotNil(t, outcome.Redirect)
	assert.Equal(t, "/logout", outcome.Redirect.Target)
}

func TestInitializeActiveBuildsSnapshot(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	cache := &fakeCache{}

	m := NewManager(profiles, nil, cache, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, OutcomeActive, outcome.Kind)
	require.NotNil(t, outcome.User)
	assert.True(t, outcome.User.IsManager)
	assert.False(t, outcome.User.IsAdmin)
	assert.True(t, outcome.User.IsPTOEnabled)
	require.NotNil(t, outcome.Entity)
	assert.Equal(t, "ent-1", outcome.Entity.ClientID, "first entity wins without a preference")
	assert.Equal(t, 1, cache.sets)
}

func TestInitializePreferredEntitySelected(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	prefs := &fakePreferences{preferred: "ent-2"}

	m := NewManager(profiles, prefs, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, "ent-2", profiles.lastEntityID)
	require.NotNil(t, outcome.Entity)
	assert.Equal(t, "ent-2", outcome.Entity.ClientID)
}

func TestInitializeStalePreferenceFallsBackToFirstEntity(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	prefs := &fakePreferences{preferred: "ent-gone"}

	m := NewManager(profiles, prefs, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	require.NotNil(t, outcome.Entity)
	assert.Equal(t, "ent-1", outcome.Entity.ClientID)
}

func TestInitializePreferenceStoreFailureIsNonFatal(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	prefs := &fakePreferences{getErr: errors.New("db down")}

	m := NewManager(profiles, prefs, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)
	assert.Equal(t, OutcomeActive, outcome.Kind)
	assert.Equal(t, "", profiles.lastEntityID)
}

func TestInitializeCacheHitSkipsProfileFetch(t *testing.T) {
	profiles := &fakeProfiles{}
	cache := &fakeCache{snap: &Snapshot{
		User:    &NormalizedUser{FirstName: "Jordan"},
		Company: &backoffice.Company{ID: "co-1"},
	}}

	m := NewManager(profiles, nil, cache, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, OutcomeActive, outcome.Kind)
	assert.Equal(t, 0, profiles.profileCalls)
	assert.Equal(t, "Jordan", outcome.User.FirstName)
}

func TestInitializeCacheErrorFallsThrough(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	cache := &fakeCache{getErr: errors.New("redis down")}

	m := NewManager(profiles, nil, cache, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)
	assert.Equal(t, OutcomeActive, outcome.Kind)
	assert.Equal(t, 1, profiles.profileCalls)
}

func TestInitializeProfileFetchErrorIsFatal(t *testing.T) {
	profiles := &fakeProfiles{profileErr: errors.New("upstream 502")}

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	outcome, err := m.Initialize(context.Background(), activeSession())
	require.Error(t, err)
	assert.Nil(t, outcome)
}

func TestInitializeIsDeterministic(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	m := NewManager(profiles, nil, nil, nil, testPortalConfig())

	first, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)
	second, err := m.Initialize(context.Background(), activeSession())
	require.NoError(t, err)

	assert.Equal(t, first.Kind, second.Kind)
	assert.Equal(t, first.User, second.User)
	assert.Equal(t, first.Entity, second.Entity)
}

func TestRefreshReplacesSnapshotWholesale(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	cache := &fakeCache{snap: &Snapshot{User: &NormalizedUser{FirstName: "Stale"}}}

	m := NewManager(profiles, nil, cache, nil, testPortalConfig())
	snap, err := m.Refresh(context.Background(), activeSession(), RefreshOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Jordan", snap.User.FirstName)
	assert.Equal(t, "Jordan", cache.snap.User.FirstName)
	assert.Equal(t, 1, profiles.profileCalls)
}

func TestRefreshDoesNotRedirectOnEarlyExit(t *testing.T) {
	profiles := &fakeProfiles{envelope: &backoffice.ProfileEnvelope{
		Kind:      backoffice.ProfileKindEarlyExit,
		EarlyExit: &backoffice.EarlyExitStatus{Status: "other", EmployeeStatus: "T"},
	}}

	m := NewManager(profiles, nil, nil, nil, testPortalConfig())
	snap, err := m.Refresh(context.Background(), activeSession(), RefreshOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFullProfile)
	assert.Nil(t, snap)
	assert.Equal(t, 0, profiles.redirectCalls, "refresh never fetches redirects")
}

func TestRefreshEntityPersistsPreference(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	prefs := &fakePreferences{}

	m := NewManager(profiles, prefs, nil, nil, testPortalConfig())
	snap, err := m.RefreshEntity(context.Background(), activeSession(), "ent-2")
	require.NoError(t, err)

	assert.Equal(t, "ent-2", profiles.lastEntityID)
	require.NotNil(t, snap.Entity)
	assert.Equal(t, "ent-2", snap.Entity.ClientID)
	assert.Equal(t, []string{"ent-2"}, prefs.setCalls)
}

func TestRefreshEntityRequiresEntityID(t *testing.T) {
	m := NewManager(&fakeProfiles{}, nil, nil, nil, testPortalConfig())
	_, err := m.RefreshEntity(context.Background(), activeSession(), "")
	require.Error(t, err)
}

func TestRefreshEntityPreferenceWriteFailureIsNonFatal(t *testing.T) {
	profiles := &fakeProfiles{envelope: fullEnvelope()}
	prefs := &fakePreferences{setErr: errors.New("db down")}

	m := NewManager(profiles, prefs, nil, nil, testPortalConfig())
	snap, err := m.RefreshEntity(context.Background(), activeSession(), "ent-2")
	require.NoError(t, err)
	require.NotNil(t, snap.Entity)
	assert.Equal(t, "ent-2", snap.Entity.ClientID)
}

func TestInvalidateEvictsSnapshot(t *testing.T) {
	cache := &fakeCache{snap: &Snapshot{User: &NormalizedUser{FirstName: "Jordan"}}}
	m := NewManager(&fakeProfiles{}, nil, cache, nil, testPortalConfig())

	require.NoError(t, m.Invalidate(context.Background(), "auth0|emp-1"))
	assert.Equal(t, 1, cache.deletes)
	assert.Nil(t, cache.snap)
}
