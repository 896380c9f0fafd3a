// Package portal binds the session to the data it implies: whenever a token
// appears, the doctor roster and the patient profile are loaded; whenever it
// goes away, both caches are dropped.
package portal

import (
	"context"
	"errors"
	"sync"

	"github.com/clinicware/patient-portal/internal/clinicapi"
	"github.com/clinicware/patient-portal/internal/observability/metrics"
	"github.com/clinicware/patient-portal/internal/session"
	"github.com/clinicware/patient-portal/internal/ui"
	"github.com/clinicware/patient-portal/pkg/logging"
)

// DataAPI is the slice of the clinic client the coordinator needs.
type DataAPI interface {
	ListDoctors(ctx context.Context) ([]clinicapi.Doctor, error)
	GetProfile(ctx context.Context) (*clinicapi.UserProfile, error)
}

// RosterListener receives the new roster on every change; nil means the
// roster was cleared.
type RosterListener func(doctors []clinicapi.Doctor)

// Coordinator owns the roster and profile caches and keeps them consistent
// with the session.
type Coordinator struct {
	api      DataAPI
	session  *session.Store
	notifier ui.Notifier
	metrics  *metrics.PortalMetrics
	logger   *logging.Logger

	mu        sync.Mutex
	gen       int
	doctors   []clinicapi.Doctor
	profile   *clinicapi.UserProfile
	listeners map[int]RosterListener
	nextID    int

	wg          sync.WaitGroup
	unsubscribe func()
}

// NewCoordinator creates the coordinator and subscribes it to the session
// store. Call Close to detach it.
func NewCoordinator(api DataAPI, sess *session.Store, notifier ui.Notifier, m *metrics.PortalMetrics, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Coordinator{
		api:       api,
		session:   sess,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.Component("sync"),
		listeners: make(map[int]RosterListener),
	}
	c.unsubscribe = sess.Subscribe(c.onToken)
	return c
}

// Close detaches the coordinator from the session store and waits for any
// in-flight loads to settle.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.wg.Wait()
}

// Wait blocks until in-flight loads triggered by a token change finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Doctors returns the cached roster.
func (c *Coordinator) Doctors() []clinicapi.Doctor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]clinicapi.Doctor, len(c.doctors))
	copy(out, c.doctors)
	return out
}

// DoctorsBySpecialty filters the roster by clinic type slug; an empty slug
// returns the whole roster.
func (c *Coordinator) DoctorsBySpecialty(slug string) []clinicapi.Doctor {
	if slug == "" {
		return c.Doctors()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []clinicapi.Doctor
	for _, d := range c.doctors {
		if d.ClinicTypeSlug == slug {
			out = append(out, d)
		}
	}
	return out
}

// Profile returns the cached patient profile, or nil while none is loaded.
func (c *Coordinator) Profile() *clinicapi.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	return &p
}

// OnRosterChange registers a listener for roster updates and returns its
// cancel function.
func (c *Coordinator) OnRosterChange(fn RosterListener) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// RefreshRoster reloads the roster on demand, used after a successful
// booking. Failures are reported, never propagated.
func (c *Coordinator) RefreshRoster(ctx context.Context) {
	if !c.session.Present() {
		c.logger.Debug("roster refresh skipped, no session")
		return
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.fetchRoster(ctx, gen)
}

// LoadProfile reloads the profile on demand. Failures are reported, never
// propagated.
func (c *Coordinator) LoadProfile(ctx context.Context) {
	if !c.session.Present() {
		c.logger.Debug("profile load skipped, no session")
		return
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.fetchProfile(ctx, gen)
}

func (c *Coordinator) onToken(token string) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if token == "" {
		c.doctors = nil
		c.profile = nil
		fns := c.snapshotListenersLocked()
		c.mu.Unlock()
		for _, fn := range fns {
			fn(nil)
		}
		return
	}
	c.mu.Unlock()

	// A fresh token, including re-login with a different one: both loads
	// re-run, independently and in no particular order.
	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.fetchRoster(context.Background(), gen)
	}()
	go func() {
		defer c.wg.Done()
		c.fetchProfile(context.Background(), gen)
	}()
}

func (c *Coordinator) fetchRoster(ctx context.Context, gen int) {
	doctors, err := c.api.ListDoctors(ctx)
	if err != nil {
		c.metrics.ObserveFetch("roster", "error")
		c.logger.Error("roster load failed", "error", err)
		c.notifier.Error(userMessage(err))
		return
	}
	c.mu.Lock()
	if gen != c.gen {
		// The session changed while the request was in flight.
		c.mu.Unlock()
		c.metrics.ObserveFetch("roster", "stale")
		return
	}
	c.doctors = doctors
	fns := c.snapshotListenersLocked()
	c.mu.Unlock()

	c.metrics.ObserveFetch("roster", "ok")
	c.logger.Info("roster loaded", "doctors", len(doctors))
	for _, fn := range fns {
		fn(doctors)
	}
}

func (c *Coordinator) fetchProfile(ctx context.Context, gen int) {
	profile, err := c.api.GetProfile(ctx)
	if err != nil {
		c.metrics.ObserveFetch("profile", "error")
		c.logger.Error("profile load failed", "error", err)
		c.notifier.Error(userMessage(err))
		return
	}
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.metrics.ObserveFetch("profile", "stale")
		return
	}
	c.profile = profile
	c.mu.Unlock()
	c.metrics.ObserveFetch("profile", "ok")
	c.logger.Info("profile loaded", "uid", profile.UID)
}

func (c *Coordinator) snapshotListenersLocked() []RosterListener {
	fns := make([]RosterListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// userMessage extracts the backend-supplied message when there is one.
func userMessage(err error) string {
	var apiErr *clinicapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, clinicapi.ErrUnauthorized) {
		return "Session expired. Please login again."
	}
	return "Something went wrong. Please try again."
}
