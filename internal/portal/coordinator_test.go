package portal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/patient-portal/internal/clinicapi"
	"github.com/clinicware/patient-portal/internal/session"
)

type fakeAPI struct {
	mu           sync.Mutex
	doctors      []clinicapi.Doctor
	doctorsErr   error
	profile      *clinicapi.UserProfile
	profileErr   error
	listCalls    int
	profileCalls int
	blockList    chan struct{}
}

func (f *fakeAPI) ListDoctors(ctx context.Context) ([]clinicapi.Doctor, error) {
	f.mu.Lock()
	f.listCalls++
	block := f.blockList
	doctors, err := f.doctors, f.doctorsErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return doctors, err
}

func (f *fakeAPI) GetProfile(ctx context.Context) (*clinicapi.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	return f.profile, f.profileErr
}

func (f *fakeAPI) calls() (list, profile int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.profileCalls
}

type notedErrors struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notedErrors) Success(string) {}
func (n *notedErrors) Warning(string) {}
func (n *notedErrors) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *notedErrors) errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func newTestSession(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(session.NewFileTokenStore(filepath.Join(t.TempDir(), "session.json")), nil)
}

func TestLoginTriggersBothLoads(t *testing.T) {
	api := &fakeAPI{
		doctors: []clinicapi.Doctor{
			{ID: 1, Name: "Adaeze Okafor", ClinicTypeSlug: "general-outpatient-clinic"},
			{ID: 2, Name: "Tunde Bello", ClinicTypeSlug: "surgery-clinic"},
			{ID: 3, Name: "Bisi Adewale", ClinicTypeSlug: "surgery-clinic"},
		},
		profile: &clinicapi.UserProfile{UID: 7, Name: "Amaka"},
	}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()

	require.NoError(t, sess.Set(context.Background(), "tok-1"))
	c.Wait()

	assert.Len(t, c.Doctors(), 3)
	require.NotNil(t, c.Profile())
	assert.Equal(t, 7, c.Profile().UID)

	list, profile := api.calls()
	assert.Equal(t, 1, list)
	assert.Equal(t, 1, profile)
}

func TestCachesClearOnLogout(t *testing.T) {
	api := &fakeAPI{
		doctors: []clinicapi.Doctor{{ID: 1, Name: "Adaeze Okafor"}},
		profile: &clinicapi.UserProfile{UID: 7},
	}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, sess.Set(ctx, "tok-1"))
	c.Wait()
	require.Len(t, c.Doctors(), 1)

	require.NoError(t, sess.Clear(ctx))
	assert.Empty(t, c.Doctors())
	assert.Nil(t, c.Profile())
}

func TestReloginRerunsFetches(t *testing.T) {
	api := &fakeAPI{doctors: []clinicapi.Doctor{{ID: 1}}, profile: &clinicapi.UserProfile{UID: 7}}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, sess.Set(ctx, "tok-1"))
	c.Wait()
	// Re-login with a different token, no intervening logout.
	require.NoError(t, sess.Set(ctx, "tok-2"))
	c.Wait()

	list, profile := api.calls()
	assert.Equal(t, 2, list)
	assert.Equal(t, 2, profile)
}

func TestFetchFailureDoesNotBlockTheOther(t *testing.T) {
	api := &fakeAPI{
		doctorsErr: &clinicapi.APIError{StatusCode: 500, Message: "Roster unavailable"},
		profile:    &clinicapi.UserProfile{UID: 7},
	}
	sess := newTestSession(t)
	notifier := &notedErrors{}
	c := NewCoordinator(api, sess, notifier, nil, nil)
	defer c.Close()

	require.NoError(t, sess.Set(context.Background(), "tok-1"))
	c.Wait()

	assert.Empty(t, c.Doctors())
	require.NotNil(t, c.Profile(), "profile load is independent of the roster failure")
	assert.Contains(t, notifier.errors(), "Roster unavailable")
}

func TestLateResultDiscardedAfterLogout(t *testing.T) {
	block := make(chan struct{})
	api := &fakeAPI{
		doctors:   []clinicapi.Doctor{{ID: 1, Name: "Adaeze Okafor"}},
		profile:   &clinicapi.UserProfile{UID: 7},
		blockList: block,
	}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, sess.Set(ctx, "tok-1"))
	// Logout lands while the roster request is still in flight.
	require.NoError(t, sess.Clear(ctx))
	close(block)
	c.Wait()

	assert.Empty(t, c.Doctors(), "a stale roster response must not repopulate a logged-out cache")
}

func TestRefreshRosterRequiresSession(t *testing.T) {
	api := &fakeAPI{doctors: []clinicapi.Doctor{{ID: 1}}}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()

	c.RefreshRoster(context.Background())

	list, _ := api.calls()
	assert.Equal(t, 0, list, "no fetch may be issued while the session is absent")
	assert.Empty(t, c.Doctors())
}

func TestRefreshRosterReloads(t *testing.T) {
	api := &fakeAPI{doctors: []clinicapi.Doctor{{ID: 1}}, profile: &clinicapi.UserProfile{UID: 7}}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, sess.Set(ctx, "tok-1"))
	c.Wait()

	api.mu.Lock()
	api.doctors = append(api.doctors, clinicapi.Doctor{ID: 2})
	api.mu.Unlock()

	c.RefreshRoster(ctx)
	assert.Len(t, c.Doctors(), 2)
}

func TestDoctorsBySpecialty(t *testing.T) {
	api := &fakeAPI{
		doctors: []clinicapi.Doctor{
			{ID: 1, ClinicTypeSlug: "surgery-clinic"},
			{ID: 2, ClinicTypeSlug: "wellness-clinic"},
			{ID: 3, ClinicTypeSlug: "surgery-clinic"},
		},
		profile: &clinicapi.UserProfile{UID: 7},
	}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()

	require.NoError(t, sess.Set(context.Background(), "tok-1"))
	c.Wait()

	assert.Len(t, c.DoctorsBySpecialty("surgery-clinic"), 2)
	assert.Len(t, c.DoctorsBySpecialty(""), 3)
	assert.Empty(t, c.DoctorsBySpecialty("antenatal-clinic"))
}

func TestRosterListenerNotified(t *testing.T) {
	api := &fakeAPI{doctors: []clinicapi.Doctor{{ID: 1}}, profile: &clinicapi.UserProfile{UID: 7}}
	sess := newTestSession(t)
	c := NewCoordinator(api, sess, &notedErrors{}, nil, nil)
	defer c.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var got [][]clinicapi.Doctor
	cancel := c.OnRosterChange(func(doctors []clinicapi.Doctor) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, doctors)
	})
	defer cancel()

	require.NoError(t, sess.Set(ctx, "tok-1"))
	c.Wait()
	require.NoError(t, sess.Clear(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Len(t, got[0], 1)
	assert.Nil(t, got[1])
}
