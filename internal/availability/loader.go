// Package availability loads a single doctor's bookable days and slots,
// keyed by the doctor currently in view.
package availability

import (
	"context"
	"sync"

	"github.com/clinicware/patient-portal/internal/clinicapi"
	"github.com/clinicware/patient-portal/internal/observability/metrics"
	"github.com/clinicware/patient-portal/internal/ui"
	"github.com/clinicware/patient-portal/pkg/logging"
)

// Fetcher is the slice of the clinic client the loader needs.
type Fetcher interface {
	GetAvailability(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error)
}

// DoctorListener receives the new (specialty, doctor id) key whenever the
// viewed doctor changes. State keyed to the previous doctor, like a booking
// draft, must be reset on this signal.
type DoctorListener func(specialty string, docID int)

// Loader fetches per-doctor availability. A fetch fires once both triggers
// have happened: the roster is non-empty and a doctor is in view. Responses
// that arrive for a doctor no longer in view are discarded, so a slow fetch
// can never overwrite a fresher one.
type Loader struct {
	api      Fetcher
	notifier ui.Notifier
	metrics  *metrics.PortalMetrics
	logger   *logging.Logger

	mu          sync.Mutex
	gen         uint64
	rosterReady bool
	specialty   string
	docID       int
	current     *clinicapi.DoctorAvailability
	listeners   map[int]DoctorListener
	nextID      int

	wg sync.WaitGroup
}

// NewLoader creates an availability loader. Register OnRosterChange with the
// coordinator so the roster trigger reaches it.
func NewLoader(api Fetcher, notifier ui.Notifier, m *metrics.PortalMetrics, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{
		api:       api,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.Component("availability"),
		listeners: make(map[int]DoctorListener),
	}
}

// OnRosterChange is the coordinator-facing trigger. An empty roster (logout)
// clears the current view; a non-empty one arms or re-fires the fetch for
// the doctor in view.
func (l *Loader) OnRosterChange(doctors []clinicapi.Doctor) {
	l.mu.Lock()
	if len(doctors) == 0 {
		l.rosterReady = false
		l.current = nil
		l.gen++
		l.mu.Unlock()
		return
	}
	l.rosterReady = true
	l.mu.Unlock()
	l.maybeFetch()
}

// SetDoctor points the loader at a doctor, as on route change. Prior
// availability is discarded immediately and doctor listeners fire; nothing
// is kept across doctors.
func (l *Loader) SetDoctor(specialty string, docID int) {
	l.mu.Lock()
	if l.specialty == specialty && l.docID == docID {
		l.mu.Unlock()
		return
	}
	l.specialty = specialty
	l.docID = docID
	l.current = nil
	l.gen++
	fns := make([]DoctorListener, 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(specialty, docID)
	}
	l.maybeFetch()
}

// OnDoctorChange registers a listener for doctor changes and returns its
// cancel function. Listeners run synchronously from SetDoctor, before the
// new doctor's fetch is issued.
func (l *Loader) OnDoctorChange(fn DoctorListener) (cancel func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// Current returns the availability for the doctor in view, or nil while none
// is loaded.
func (l *Loader) Current() *clinicapi.DoctorAvailability {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Days returns the bookable days of the current view, in backend order.
func (l *Loader) Days() []clinicapi.AvailabilityDay {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil
	}
	return l.current.Availability
}

// Wait blocks until in-flight fetches settle.
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) maybeFetch() {
	l.mu.Lock()
	if !l.rosterReady || l.docID == 0 {
		l.mu.Unlock()
		return
	}
	gen := l.gen
	specialty, docID := l.specialty, l.docID
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.fetch(context.Background(), gen, specialty, docID)
	}()
}

func (l *Loader) fetch(ctx context.Context, gen uint64, specialty string, docID int) {
	av, err := l.api.GetAvailability(ctx, specialty, docID)
	if err != nil {
		l.metrics.ObserveFetch("availability", "error")
		l.logger.Error("availability load failed", "doctor", docID, "error", err)
		l.notifier.Error("Could not load availability. Please try again.")
		return
	}

	l.mu.Lock()
	if gen != l.gen {
		// The viewed doctor changed while this request was in flight; the
		// latest requested doctor's result wins.
		l.mu.Unlock()
		l.metrics.ObserveStaleDiscard()
		l.logger.Debug("stale availability response discarded", "doctor", docID)
		return
	}
	l.current = av
	l.mu.Unlock()

	l.metrics.ObserveFetch("availability", "ok")
	l.logger.Info("availability loaded", "doctor", docID, "days", len(av.Availability))
}
