package portal

import "time"

// Role identifies the portal a user belongs to.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ConsultationStatus is the server-authoritative lifecycle state. The client
// only requests transitions and re-fetches; it never computes one.
type ConsultationStatus string

const (
	ConsultationPending   ConsultationStatus = "PENDING"
	ConsultationActive    ConsultationStatus = "ACTIVE"
	ConsultationCompleted ConsultationStatus = "COMPLETED"
	ConsultationCancelled ConsultationStatus = "CANCELLED"
)

// PrescriptionStatus mirrors the server's prescription lifecycle.
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "ACTIVE"
	PrescriptionCompleted PrescriptionStatus = "COMPLETED"
	PrescriptionCancelled PrescriptionStatus = "CANCELLED"
)

// Message is one entry of a consultation's embedded message list.
type Message struct {
	ID             string    `json:"id"`
	ConsultationID string    `json:"consultation_id"`
	SenderID       string    `json:"sender_id"`
	SenderRole     Role      `json:"sender_role"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// Consultation is a scheduled or in-progress patient-doctor interaction.
type Consultation struct {
	ID             string             `json:"id"`
	PatientID      string             `json:"patient_id"`
	PatientName    string             `json:"patient_name,omitempty"`
	DoctorID       string             `json:"doctor_id"`
	DoctorName     string             `json:"doctor_name,omitempty"`
	Status         ConsultationStatus `json:"status"`
	ScheduledStart time.Time          `json:"scheduled_start"`
	ScheduledEnd   time.Time          `json:"scheduled_end"`
	Reason         string             `json:"reason,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	Messages       []Message          `json:"messages,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// MedicationEntry is one line of a prescription's ordered medication list.
type MedicationEntry struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription is a server-owned prescription record.
type Prescription struct {
	ID          string             `json:"id"`
	PatientID   string             `json:"patient_id"`
	DoctorID    string             `json:"doctor_id"`
	Medications []MedicationEntry  `json:"medications"`
	Diagnosis   string             `json:"diagnosis,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Allergies   string             `json:"allergies,omitempty"`
	Status      PrescriptionStatus `json:"status"`
	SMSSent     bool               `json:"sms_sent"`
	SMSSentAt   *time.Time         `json:"sms_sent_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// AvailabilitySlot is a doctor-defined bookable time window.
type AvailabilitySlot struct {
	ID           string    `json:"id"`
	DoctorID     string    `json:"doctor_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	DurationMins int       `json:"duration_mins"`
	BufferMins   int       `json:"buffer_mins"`
	Booked       bool      `json:"booked"`
}

// User is a portal account. Role-specific attributes are populated only for
// the matching role.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	NRC       string    `json:"nrc,omitempty"`
	Specialty string    `json:"specialty,omitempty"`
	AdminTier string    `json:"admin_tier,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// VitalSigns is one vital-sign reading; BMI is derived client-side.
type VitalSigns struct {
	HeightCm      float64   `json:"height_cm"`
	WeightKg      float64   `json:"weight_kg"`
	BloodPressure string    `json:"blood_pressure,omitempty"`
	HeartRate     int       `json:"heart_rate,omitempty"`
	TemperatureC  float64   `json:"temperature_c,omitempty"`
	BMI           float64   `json:"bmi,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Allergy is one coded or free-text allergy record.
type Allergy struct {
	Code     string `json:"code,omitempty"`
	Name     string `json:"name"`
	Reaction string `json:"reaction,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// CurrentMedication is a medication the patient takes now.
type CurrentMedication struct {
	Code      string `json:"code,omitempty"`
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// Surgery is a past surgical procedure.
type Surgery struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name"`
	Year int    `json:"year,omitempty"`
}

// FamilyHistoryEntry records a condition affecting a relative.
type FamilyHistoryEntry struct {
	Relation  string `json:"relation"`
	Condition string `json:"condition"`
}

// SocialHistory covers lifestyle factors.
type SocialHistory struct {
	Smoking   string `json:"smoking,omitempty"`
	Alcohol   string `json:"alcohol,omitempty"`
	Lifestyle string `json:"lifestyle,omitempty"`
}

// EmergencyContact is a person to reach when the patient cannot respond.
type EmergencyContact struct {
	Name     string `json:"name"`
	Relation string `json:"relation,omitempty"`
	Phone    string `json:"phone"`
}

// MedicalHistory is a patient's clinical record. Each section is replaced as
// a whole on update; there are no per-item server calls.
type MedicalHistory struct {
	PatientID         string               `json:"patient_id"`
	ChronicConditions []string             `json:"chronic_conditions,omitempty"`
	Allergies         []Allergy            `json:"allergies,omitempty"`
	Medications       []CurrentMedication  `json:"medications,omitempty"`
	Surgeries         []Surgery            `json:"surgeries,omitempty"`
	FamilyHistory     []FamilyHistoryEntry `json:"family_history,omitempty"`
	Social            SocialHistory        `json:"social_history,omitempty"`
	Vitals            []VitalSigns         `json:"vital_signs,omitempty"`
	EmergencyContacts []EmergencyContact   `json:"emergency_contacts,omitempty"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// TermResult is one coded-terminology search hit.
type TermResult struct {
	Code    string `json:"code"`
	Display string `json:"display"`
	System  string `json:"system,omitempty"`
}

// DashboardStats is the admin dashboard snapshot served by the API.
type DashboardStats struct {
	TotalPatients       int64     `json:"total_patients"`
	TotalDoctors        int64     `json:"total_doctors"`
	TotalConsultations  int64     `json:"total_consultations"`
	ActiveConsultations int64     `json:"active_consultations"`
	TotalPrescriptions  int64     `json:"total_prescriptions"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// AuthStatus is the session check result.
type AuthStatus struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}
