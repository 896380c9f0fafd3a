package clinicstub

import (
	"fmt"
	"sync"
	"time"
)

type patient struct {
	UID         int
	Email       string
	Password    string
	Name        string
	Phone       string
	Gender      string
	DateOfBirth string
}

type stubSlot struct {
	ID       int
	Time     string
	BookedBy int // patient UID, 0 when free
}

type stubDay struct {
	Date  string
	Slots []stubSlot
}

type stubDoctor struct {
	ID             int
	Name           string
	Speciality     string
	About          string
	ClinicType     string
	ClinicTypeSlug string
	IsAvailable    bool
	Days           []stubDay
}

type appointment struct {
	ID     int
	Doctor string
	Date   string
	Time   string
	UID    int
}

// store is the stub's in-memory state. It stands in for the EMR the real
// backend fronts.
type store struct {
	mu           sync.Mutex
	patients     []patient
	doctors      []stubDoctor
	appointments []appointment
	nextApptID   int
}

var clinicTypes = []struct{ name, slug string }{
	{"General Outpatient Clinic", "general-outpatient-clinic"},
	{"Surgery Clinic", "surgery-clinic"},
	{"Physician Clinic", "physician-clinic"},
	{"Immunization Clinic", "immunization-clinic"},
	{"Antenatal Clinic", "antenatal-clinic"},
	{"Wellness Clinic", "wellness-clinic"},
}

var slotTimes = []string{"09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM", "02:00 PM", "03:00 PM", "04:00 PM"}

// seedStore builds a deterministic clinic: one doctor per clinic type, a
// week of availability each, and two known patients.
func seedStore(now time.Time) *store {
	names := []string{"Adaeze Okafor", "Tunde Bello", "Bisi Adewale", "Chinedu Eze", "Funmi Alade", "Kunle Ojo"}
	specialities := []string{"General Medicine", "Surgery", "Internal Medicine", "Paediatrics", "Obstetrics", "Family Medicine"}

	s := &store{nextApptID: 1}
	for i, ct := range clinicTypes {
		doc := stubDoctor{
			ID:             i + 1,
			Name:           names[i],
			Speciality:     specialities[i],
			About:          fmt.Sprintf("%s has been with the clinic since 2019 and consults at the %s.", names[i], ct.name),
			ClinicType:     ct.name,
			ClinicTypeSlug: ct.slug,
			IsAvailable:    true,
		}
		for d := 0; d < 7; d++ {
			day := stubDay{Date: now.AddDate(0, 0, d+1).Format("2006-01-02")}
			for t, slotTime := range slotTimes {
				day.Slots = append(day.Slots, stubSlot{
					ID:   doc.ID*10000 + d*100 + t,
					Time: slotTime,
				})
			}
			doc.Days = append(doc.Days, day)
		}
		s.doctors = append(s.doctors, doc)
	}

	s.patients = []patient{
		{UID: 1, Email: "amaka@example.com", Password: "amaka-pass", Name: "Amaka Obi", Phone: "+2348010000001", Gender: "female", DateOfBirth: "1992-03-14"},
		{UID: 2, Email: "emeka@example.com", Password: "emeka-pass", Name: "Emeka Nwosu", Phone: "+2348010000002", Gender: "male", DateOfBirth: "1987-11-02"},
	}
	return s
}

func (s *store) findPatient(email, password string) (patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.Email == email && p.Password == password {
			return p, true
		}
	}
	return patient{}, false
}

func (s *store) findDoctor(slug string, id int) (stubDoctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doctors {
		if d.ID == id && d.ClinicTypeSlug == slug {
			return d, true
		}
	}
	return stubDoctor{}, false
}

// book marks a slot as taken and records the appointment. The second return
// is false when the slot does not exist, the third when it is already booked.
func (s *store) book(slotID, uid int) (appointment, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for di := range s.doctors {
		doc := &s.doctors[di]
		for dayIdx := range doc.Days {
			day := &doc.Days[dayIdx]
			for si := range day.Slots {
				slot := &day.Slots[si]
				if slot.ID != slotID {
					continue
				}
				if slot.BookedBy != 0 {
					return appointment{}, true, false
				}
				slot.BookedBy = uid
				appt := appointment{
					ID:     s.nextApptID,
					Doctor: doc.Name,
					Date:   day.Date,
					Time:   slot.Time,
					UID:    uid,
				}
				s.nextApptID++
				s.appointments = append(s.appointments, appt)
				return appt, true, true
			}
		}
	}
	return appointment{}, false, false
}

func (s *store) appointmentsFor(uid int) []appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []appointment
	for _, a := range s.appointments {
		if a.UID == uid {
			out = append(out, a)
		}
	}
	return out
}
