// Package booking drives the slot-selection and submission workflow for one
// appointment: a draft of {day, slot, note} validated in a fixed order.
package booking

import (
	"context"
	"errors"
	"sync"

	"github.com/clinicware/patient-portal/internal/clinicapi"
	"github.com/clinicware/patient-portal/internal/observability/metrics"
	"github.com/clinicware/patient-portal/internal/ui"
	"github.com/clinicware/patient-portal/pkg/logging"
)

// User-facing validation messages, in the order they are checked.
const (
	msgLoginRequired = "Login to book appointment"
	msgSelectDate    = "Please select a date"
	msgSelectSlot    = "Please select a time slot"
	msgDescribeNeed  = "Please describe your need for consultation"
)

// ValidationError is a client-side precondition failure; no request was
// sent and the draft is untouched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "booking: " + e.Message }

// Submitter is the slice of the clinic client the workflow needs.
type Submitter interface {
	BookAppointment(ctx context.Context, slotID, patientID int, note string) (string, error)
}

// SessionState reports whether a session token is held. *session.Store
// satisfies it.
type SessionState interface {
	Present() bool
}

// AvailabilityView exposes the bookable days of the doctor in view.
// *availability.Loader satisfies it.
type AvailabilityView interface {
	Days() []clinicapi.AvailabilityDay
}

// ProfileSource exposes the logged-in patient. *portal.Coordinator
// satisfies it.
type ProfileSource interface {
	Profile() *clinicapi.UserProfile
}

// RosterRefresher reloads the roster after a successful booking.
// *portal.Coordinator satisfies it.
type RosterRefresher interface {
	RefreshRoster(ctx context.Context)
}

// Workflow holds the in-progress draft for a single appointment submission.
type Workflow struct {
	api       Submitter
	session   SessionState
	days      AvailabilityView
	profiles  ProfileSource
	refresher RosterRefresher
	notifier  ui.Notifier
	nav       ui.Navigator
	metrics   *metrics.PortalMetrics
	logger    *logging.Logger

	mu       sync.Mutex
	dayIndex int
	slot     *clinicapi.Slot
	note     string
}

// NewWorkflow creates a booking workflow over the given collaborators. The
// draft starts at {day 0, no slot, empty note}.
func NewWorkflow(api Submitter, sess SessionState, days AvailabilityView, profiles ProfileSource, refresher RosterRefresher, notifier ui.Notifier, nav ui.Navigator, m *metrics.PortalMetrics, logger *logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{
		api:       api,
		session:   sess,
		days:      days,
		profiles:  profiles,
		refresher: refresher,
		notifier:  notifier,
		nav:       nav,
		metrics:   m,
		logger:    logger.Component("booking"),
	}
}

// SelectDay picks a day by index. A slot only means something within its
// owning day, so changing days drops the selected slot; the note survives.
func (w *Workflow) SelectDay(index int) {
	if index < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if index == w.dayIndex {
		return
	}
	w.dayIndex = index
	w.slot = nil
}

// SelectSlot picks a time slot within the selected day.
func (w *Workflow) SelectSlot(slot clinicapi.Slot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.slot = &slot
}

// SetNote replaces the free-text consultation note.
func (w *Workflow) SetNote(note string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.note = note
}

// Draft returns the current selection state.
func (w *Workflow) Draft() (dayIndex int, slot *clinicapi.Slot, note string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.slot != nil {
		s := *w.slot
		slot = &s
	}
	return w.dayIndex, slot, w.note
}

// Reset returns the draft to its initial state. Call it whenever the viewed
// doctor changes.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dayIndex = 0
	w.slot = nil
	w.note = ""
}

// Submit validates the draft in a fixed order, short-circuiting at the first
// unmet precondition, then submits the booking. On success the roster is
// refreshed and navigation moves to the bookings list; on failure the draft
// is preserved so the user can correct and resubmit.
func (w *Workflow) Submit(ctx context.Context) error {
	if !w.session.Present() {
		w.metrics.ObserveBooking("invalid")
		w.notifier.Warning(msgLoginRequired)
		w.nav.NavigateTo(ui.RouteLogin)
		return &ValidationError{Message: msgLoginRequired}
	}

	w.mu.Lock()
	dayIndex, slot, note := w.dayIndex, w.slot, w.note
	w.mu.Unlock()
	days := w.days.Days()

	preconditions := []struct {
		met     bool
		message string
	}{
		{dayIndex < len(days), msgSelectDate},
		{slot != nil, msgSelectSlot},
		{note != "", msgDescribeNeed},
	}
	for _, p := range preconditions {
		if !p.met {
			w.metrics.ObserveBooking("invalid")
			w.notifier.Error(p.message)
			return &ValidationError{Message: p.message}
		}
	}

	patientID := 0
	if profile := w.profiles.Profile(); profile != nil {
		patientID = profile.UID
	}

	message, err := w.api.BookAppointment(ctx, slot.ID, patientID, note)
	if err != nil {
		w.metrics.ObserveBooking("rejected")
		w.logger.Error("booking rejected", "slot", slot.ID, "error", err)
		w.notifier.Error(backendMessage(err))
		return err
	}

	w.metrics.ObserveBooking("success")
	w.logger.Info("appointment booked", "slot", slot.ID)
	w.notifier.Success(message)
	w.refresher.RefreshRoster(ctx)
	w.nav.NavigateTo(ui.RouteBookings)
	return nil
}

func backendMessage(err error) string {
	var apiErr *clinicapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Booking failed. Please try again."
}
