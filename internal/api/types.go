package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking/internal/booking"
)

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Active   bool      `json:"active"`
	Verified bool      `json:"verified"`
}

type PatientRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Reason    string `json:"reason"`
	NextVisit string `json:"next_visit,omitempty"` // YYYY-MM-DD, optional
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	NextVisit string    `json:"next_visit,omitempty"`
}

type CreateTokenRequest struct {
	PatientID string `json:"patient_id"`
}

type TokenResponse struct {
	ID    uuid.UUID `json:"id"`
	Token string    `json:"token"`
}

type DaySlotsRequest struct {
	Token string `json:"token"`
	Date  string `json:"date"` // YYYY-MM-DD
}

type TokenContextResponse struct {
	PatientName string   `json:"patient_name"`
	ClinicName  string   `json:"clinic_name"`
	NextDays    []string `json:"next_days"`
}

type DaySlotsResponse struct {
	Date  string                       `json:"date"`
	Slots map[string]booking.SlotState `json:"slots"`
}

type ReserveRequest struct {
	Token string `json:"token"`
	Date  string `json:"date"` // YYYY-MM-DD
	Slot  string `json:"slot"`
}

type ConfirmationResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Slot    string `json:"slot"`
}

type AuditEntryResponse struct {
	PatientName string `json:"name"`
	Date        string `json:"date"`
	Slot        string `json:"slot"`
}

type ReminderRequest struct {
	ClinicName   string `json:"clinic_name"`
	Link         string `json:"link"`
	PatientEmail string `json:"patient_email"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func patientResponse(id uuid.UUID, name, email, phone, reason string, nextVisit *time.Time) PatientResponse {
	resp := PatientResponse{
		ID:     id,
		Name:   name,
		Email:  email,
		Phone:  phone,
		Reason: reason,
	}
	if nextVisit != nil {
		resp.NextVisit = nextVisit.Format(booking.DateFormat)
	}
	return resp
}
