package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking/internal/auth"
	"github.com/clinicdesk/clinic-booking/internal/booking"
	"github.com/clinicdesk/clinic-booking/internal/clinic"
)

func signupHandler(svc ClinicService, sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Email == "" || req.Password == "" || req.Username == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "username, email and password are required")
			return
		}

		c, err := svc.Signup(r.Context(), req.Email, req.Username, req.Password)
		if err != nil {
			if errors.Is(err, clinic.ErrEmailTaken) {
				writeError(w, http.StatusBadRequest, "email_taken", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		issueSession(w, sessions, c.Email)
		writeJSON(w, http.StatusCreated, sessionResponse(c))
	}
}

func loginHandler(svc ClinicService, sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		c, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, clinic.ErrBadCredentials) {
				writeError(w, http.StatusBadRequest, "bad_credentials", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		issueSession(w, sessions, c.Email)
		writeJSON(w, http.StatusOK, sessionResponse(c))
	}
}

// refreshHandler reissues the session cookie and returns the clinic profile
// together with its patient list, the payload the dashboard boots from.
func refreshHandler(svc ClinicService, sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClinicFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
			return
		}

		patients, err := svc.ListPatients(r.Context(), c.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		issueSession(w, sessions, c.Email)

		list := make([]PatientResponse, 0, len(patients))
		for _, p := range patients {
			list = append(list, patientResponse(p.ID, p.Name, p.Email, p.Phone, p.Reason, p.NextVisit))
		}

		writeJSON(w, http.StatusOK, struct {
			SessionResponse
			Patients []PatientResponse `json:"patient_list"`
		}{sessionResponse(c), list})
	}
}

func logoutHandler(sessions *auth.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, sessions.ClearCookie())
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func addPatientHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClinicFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
			return
		}

		var req PatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "name is required")
			return
		}

		p := &clinic.Patient{
			ClinicID: c.ID,
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Reason:   req.Reason,
		}
		if req.NextVisit != "" {
			nv, err := time.Parse(booking.DateFormat, req.NextVisit)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "next_visit must be YYYY-MM-DD")
				return
			}
			p.NextVisit = &nv
		}

		if err := svc.AddPatient(r.Context(), p); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, patientResponse(p.ID, p.Name, p.Email, p.Phone, p.Reason, p.NextVisit))
	}
}

func listPatientsHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClinicFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
			return
		}

		patients, err := svc.ListPatients(r.Context(), c.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		list := make([]PatientResponse, 0, len(patients))
		for _, p := range patients {
			list = append(list, patientResponse(p.ID, p.Name, p.Email, p.Phone, p.Reason, p.NextVisit))
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func deletePatientHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "id")
		id, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeletePatient(r.Context(), id); err != nil {
			if errors.Is(err, clinic.ErrPatientNotFound) {
				writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}
}

// purchaseWebhookHandler receives the payment provider's form-encoded
// purchase event. Only the configured product id activates an account;
// unrecognized events are acknowledged and ignored.
func purchaseWebhookHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_form", "could not parse form body")
			return
		}

		accountID := r.PostFormValue("url_params[user_id]")
		productID := r.PostFormValue("product_id")

		clinicID, err := uuid.Parse(accountID)
		if err != nil {
			// Missing or malformed account ids are ignored, not errored.
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		if err := svc.Activate(r.Context(), clinicID, productID); err != nil {
			if errors.Is(err, clinic.ErrClinicNotFound) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// reminderHandler mails a patient their booking link. Delivery is best
// effort: the request succeeds whether or not the mail went out.
func reminderHandler(svc ClinicService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.PatientEmail == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "patient_email is required")
			return
		}

		// Failure is already logged by the service; the caller only needs
		// to know the request was taken.
		_ = svc.SendReminder(req.ClinicName, req.Link, req.PatientEmail)

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func issueSession(w http.ResponseWriter, sessions *auth.Sessions, email string) {
	token, err := sessions.Issue(email)
	if err != nil {
		return
	}
	http.SetCookie(w, sessions.Cookie(token))
}

func sessionResponse(c *clinic.Clinic) SessionResponse {
	return SessionResponse{
		ID:       c.ID,
		Username: c.Name,
		Email:    c.Email,
		Active:   c.Active,
		Verified: c.Verification == clinic.Verified,
	}
}
