// Package clinicstub is a self-contained fake of the clinic backend: the
// same wire surface the portal core consumes, backed by seeded in-memory
// data. It powers local development (cmd/clinic-stub) and end-to-end tests.
package clinicstub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/clinicware/patient-portal/pkg/logging"
)

// Server implements the clinic backend API over seeded data.
type Server struct {
	store    *store
	secret   []byte
	tokenTTL time.Duration
	logger   *logging.Logger
}

// NewServer creates a stub backend seeded relative to now.
func NewServer(secret string, tokenTTL time.Duration, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		store:    seedStore(time.Now()),
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger.Component("clinicstub"),
	}
}

// Router returns the chi router with all clinic routes configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.patientJWT)
		r.Get("/api/doctor/list", s.handleDoctorList)
		r.Get("/api/doctor/{specialty}/{docId}/availability", s.handleAvailability)
		r.Get("/api/user/get-profile", s.handleProfile)
		r.Post("/api/user/book-appointment", s.handleBook)
		r.Get("/api/user/appointments", s.handleAppointments)
	})

	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	p, ok := s.store.findPatient(req.Email, req.Password)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Invalid credentials"})
		return
	}
	token, err := s.issueToken(p)
	if err != nil {
		s.logger.Error("token issue failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "could not issue token"})
		return
	}
	s.logger.Info("patient logged in", "uid", p.UID)
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleDoctorList(w http.ResponseWriter, r *http.Request) {
	s.store.mu.Lock()
	doctors := make([]map[string]any, 0, len(s.store.doctors))
	for _, d := range s.store.doctors {
		doctors = append(doctors, map[string]any{
			"id":               d.ID,
			"name":             d.Name,
			"speciality":       d.Speciality,
			"about":            d.About,
			"clinic_type":      d.ClinicType,
			"clinic_type_slug": d.ClinicTypeSlug,
			"is_available":     d.IsAvailable,
		})
	}
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "doctorData": doctors})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"userData": map[string]any{
			"uid":           claims.UID,
			"email":         claims.Email,
			"name":          claims.Name,
			"phone":         claims.Phone,
			"gender":        claims.Gender,
			"date_of_birth": claims.DateOfBirth,
		},
	})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "specialty")
	docID, err := strconv.Atoi(chi.URLParam(r, "docId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid doctor id"})
		return
	}
	doc, ok := s.store.findDoctor(slug, docID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Doctor not found"})
		return
	}

	days := make([]map[string]any, 0, len(doc.Days))
	for _, day := range doc.Days {
		// Availability is computed fresh on every request: booked slots are
		// simply absent from the response.
		slots := make([]map[string]any, 0, len(day.Slots))
		for _, slot := range day.Slots {
			if slot.BookedBy != 0 {
				continue
			}
			slots = append(slots, map[string]any{"id": slot.ID, "time": slot.Time})
		}
		days = append(days, map[string]any{"date": day.Date, "slots": slots})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":             doc.Name,
		"about":            doc.About,
		"doctor_id":        doc.ID,
		"speciality":       doc.Speciality,
		"clinic_type":      doc.ClinicType,
		"clinic_type_slug": doc.ClinicTypeSlug,
		"availability":     days,
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}
	var req struct {
		SlotID    int    `json:"slotId"`
		PatientID int    `json:"patientId"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if req.Note == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "A consultation note is required"})
		return
	}

	appt, found, booked := s.store.book(req.SlotID, claims.UID)
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Slot not found"})
		return
	}
	if !booked {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Slot already booked"})
		return
	}
	reference := uuid.NewString()
	s.logger.Info("appointment booked", "appointment", appt.ID, "reference", reference, "uid", claims.UID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Appointment booked successfully"})
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}
	appts := s.store.appointmentsFor(claims.UID)
	out := make([]map[string]any, 0, len(appts))
	for _, a := range appts {
		out = append(out, map[string]any{
			"id":     a.ID,
			"doctor": a.Doctor,
			"date":   a.Date,
			"time":   a.Time,
			"status": "booked",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
