package clinicapi

// Doctor is one entry of the bookable roster.
type Doctor struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Speciality     string `json:"speciality"`
	About          string `json:"about"`
	ClinicType     string `json:"clinic_type"`
	ClinicTypeSlug string `json:"clinic_type_slug"`
	IsAvailable    bool   `json:"is_available"`
}

// UserProfile is the logged-in patient's record as the backend reports it.
type UserProfile struct {
	UID         int    `json:"uid"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
}

// Slot is a single bookable time within a day.
type Slot struct {
	ID   int    `json:"id"`
	Time string `json:"time"`
}

// AvailabilityDay groups the slots of one calendar day, in backend order.
type AvailabilityDay struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// DoctorAvailability is the per-doctor availability view.
type DoctorAvailability struct {
	Name           string            `json:"name"`
	Speciality     string            `json:"speciality"`
	About          string            `json:"about"`
	DoctorID       int               `json:"doctor_id"`
	ClinicType     string            `json:"clinic_type"`
	ClinicTypeSlug string            `json:"clinic_type_slug"`
	Availability   []AvailabilityDay `json:"availability"`
}

// Appointment is one row of the patient's booking history.
type Appointment struct {
	ID     int    `json:"id"`
	Doctor string `json:"doctor"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Message     string `json:"message"`
}

type doctorListResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	DoctorData []Doctor `json:"doctorData"`
}

type profileResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	UserData UserProfile `json:"userData"`
}

type bookAppointmentRequest struct {
	SlotID    int    `json:"slotId"`
	PatientID int    `json:"patientId"`
	Note      string `json:"note"`
}

type bookAppointmentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
