package availability

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clinicware/patient-portal/internal/clinicapi"
)

type fetcherFunc func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error)

func (f fetcherFunc) GetAvailability(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
	return f(ctx, specialty, docID)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
func (nopNotifier) Warning(string) {}

func availabilityFor(docID int) *clinicapi.DoctorAvailability {
	return &clinicapi.DoctorAvailability{
		DoctorID: docID,
		Name:     fmt.Sprintf("Doctor %d", docID),
		Availability: []clinicapi.AvailabilityDay{
			{Date: "2026-09-01", Slots: []clinicapi.Slot{{ID: docID*100 + 1, Time: "09:00"}}},
		},
	}
}

func roster(ids ...int) []clinicapi.Doctor {
	out := make([]clinicapi.Doctor, 0, len(ids))
	for _, id := range ids {
		out = append(out, clinicapi.Doctor{ID: id})
	}
	return out
}

func TestFetchNeedsBothTriggers(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	l := NewLoader(fetcherFunc(func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return availabilityFor(docID), nil
	}), nopNotifier{}, nil, nil)

	// Doctor set but no roster yet: nothing may fire.
	l.SetDoctor("surgery-clinic", 7)
	l.Wait()
	mu.Lock()
	if calls != 0 {
		t.Fatalf("fetch fired before the roster arrived (calls=%d)", calls)
	}
	mu.Unlock()
	if l.Current() != nil {
		t.Fatal("no availability expected yet")
	}

	// The roster arriving completes the trigger pair.
	l.OnRosterChange(roster(7))
	l.Wait()
	cur := l.Current()
	if cur == nil || cur.DoctorID != 7 {
		t.Fatalf("Current() = %+v", cur)
	}
}

func TestRosterFirstThenDoctor(t *testing.T) {
	l := NewLoader(fetcherFunc(func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
		return availabilityFor(docID), nil
	}), nopNotifier{}, nil, nil)

	l.OnRosterChange(roster(7))
	if l.Current() != nil {
		t.Fatal("no doctor in view yet")
	}
	l.SetDoctor("surgery-clinic", 7)
	l.Wait()
	if cur := l.Current(); cur == nil || cur.DoctorID != 7 {
		t.Fatalf("Current() = %+v", cur)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	releaseA := make(chan struct{})
	l := NewLoader(fetcherFunc(func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
		if docID == 1 {
			<-releaseA // doctor 1's response is slow
		}
		return availabilityFor(docID), nil
	}), nopNotifier{}, nil, nil)

	l.OnRosterChange(roster(1, 2))
	l.SetDoctor("surgery-clinic", 1)
	l.SetDoctor("surgery-clinic", 2)

	// Doctor 2's fast response lands first...
	waitFor(t, func() bool {
		cur := l.Current()
		return cur != nil && cur.DoctorID == 2
	})
	// ...then doctor 1's slow one arrives, and must be discarded.
	close(releaseA)
	l.Wait()

	cur := l.Current()
	if cur == nil || cur.DoctorID != 2 {
		t.Fatalf("displayed availability must be doctor 2's, got %+v", cur)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSwitchingDoctorDiscardsPriorView(t *testing.T) {
	release := make(chan struct{})
	l := NewLoader(fetcherFunc(func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
		if docID == 2 {
			<-release
		}
		return availabilityFor(docID), nil
	}), nopNotifier{}, nil, nil)

	l.OnRosterChange(roster(1, 2))
	l.SetDoctor("surgery-clinic", 1)
	l.Wait()

	// Immediately after the switch, before the new fetch resolves, the old
	// doctor's availability is already gone.
	l.SetDoctor("surgery-clinic", 2)
	if cur := l.Current(); cur != nil {
		t.Fatalf("prior doctor's availability still visible: %+v", cur)
	}
	close(release)
	l.Wait()
	if cur := l.Current(); cur == nil || cur.DoctorID != 2 {
		t.Fatalf("Current() = %+v", cur)
	}
}

func TestFailureKeepsPriorState(t *testing.T) {
	var mu sync.Mutex
	fail := false
	l := NewLoader(fetcherFunc(func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, &clinicapi.APIError{StatusCode: 500, Message: "backend down"}
		}
		return availabilityFor(docID), nil
	}), nopNotifier{}, nil, nil)

	l.OnRosterChange(roster(1))
	l.SetDoctor("surgery-clinic", 1)
	l.Wait()
	if l.Current() == nil {
		t.Fatal("expected availability loaded")
	}

	mu.Lock()
	fail = true
	mu.Unlock()
	// A failed refresh (roster trigger re-fires the same doctor) leaves the
	// prior view untouched.
	l.OnRosterChange(roster(1))
	l.Wait()
	if cur := l.Current(); cur == nil || cur.DoctorID != 1 {
		t.Fatalf("prior availability should be retained, got %+v", cur)
	}
}

func TestDoctorListenersFireOnChange(t *testing.T) {
	l := NewLoader(fetcherFunc(func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
		return availabilityFor(docID), nil
	}), nopNotifier{}, nil, nil)

	var keys []string
	cancel := l.OnDoctorChange(func(specialty string, docID int) {
		keys = append(keys, fmt.Sprintf("%s/%d", specialty, docID))
	})

	l.OnRosterChange(roster(1, 2))
	l.SetDoctor("surgery-clinic", 1)
	l.Wait()
	// Re-selecting the doctor in view is a no-op and must not re-fire.
	l.SetDoctor("surgery-clinic", 1)
	l.SetDoctor("physician-clinic", 2)
	l.Wait()

	want := []string{"surgery-clinic/1", "physician-clinic/2"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("doctor listener keys = %v, want %v", keys, want)
	}

	cancel()
	l.SetDoctor("surgery-clinic", 1)
	l.Wait()
	if len(keys) != 2 {
		t.Fatalf("cancelled listener still fired: %v", keys)
	}
}

func TestLogoutClearsView(t *testing.T) {
	l := NewLoader(fetcherFunc(func(ctx context.Context, specialty string, docID int) (*clinicapi.DoctorAvailability, error) {
		return availabilityFor(docID), nil
	}), nopNotifier{}, nil, nil)

	l.OnRosterChange(roster(1))
	l.SetDoctor("surgery-clinic", 1)
	l.Wait()

	l.OnRosterChange(nil)
	if l.Current() != nil {
		t.Fatal("availability must clear when the roster does")
	}
	if l.Days() != nil {
		t.Fatal("Days() must be empty after clear")
	}
}
