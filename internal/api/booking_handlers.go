package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-booking/internal/booking"
	redisclient "github.com/clinicdesk/clinic-booking/internal/redis"
)

func setTemplateHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClinicFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
			return
		}

		var tpl booking.WeeklyTemplate
		if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.SetTemplate(r.Context(), c.ID, tpl); err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func getTemplateHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClinicFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
			return
		}

		tpl, err := svc.GetTemplate(r.Context(), c.ID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]booking.WeeklyTemplate{"clinic_slots": tpl})
	}
}

func createTokenHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		t, err := svc.IssueToken(r.Context(), patientID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, TokenResponse{ID: t.ID, Token: t.Token})
	}
}

func tokenContextHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		tc, err := svc.TokenContext(r.Context(), token)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		days := make([]string, 0, len(tc.NextDays))
		for _, d := range tc.NextDays {
			days = append(days, d.Format(booking.DateFormat))
		}
		writeJSON(w, http.StatusOK, TokenContextResponse{
			PatientName: tc.PatientName,
			ClinicName:  tc.ClinicName,
			NextDays:    days,
		})
	}
}

func daySlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DaySlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := time.Parse(booking.DateFormat, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.DaySlots(r.Context(), req.Token, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, DaySlotsResponse{
			Date:  date.Format(booking.DateFormat),
			Slots: slots,
		})
	}
}

func reserveHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReserveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := time.Parse(booking.DateFormat, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		conf, err := svc.Reserve(r.Context(), req.Token, date, req.Slot)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ConfirmationResponse{
			Status:  "success",
			Message: "Appointment confirmed",
			Date:    conf.Date.Format(booking.DateFormat),
			Slot:    conf.Slot,
		})
	}
}

func upcomingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClinicFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
			return
		}

		entries, err := svc.Upcoming(r.Context(), c.ID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		list := make([]AuditEntryResponse, 0, len(entries))
		for _, e := range entries {
			list = append(list, AuditEntryResponse{
				PatientName: e.PatientName,
				Date:        e.Date.Format(booking.DateFormat),
				Slot:        e.Slot,
			})
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidToken):
		writeError(w, http.StatusNotFound, "invalid_token", err.Error())
	case errors.Is(err, booking.ErrTokenUsed):
		writeError(w, http.StatusBadRequest, "token_used", err.Error())
	case errors.Is(err, booking.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, "token_expired", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrClinicNotFound):
		writeError(w, http.StatusNotFound, "clinic_not_found", err.Error())
	case errors.Is(err, booking.ErrInventoryNotFound):
		writeError(w, http.StatusNotFound, "day_slots_not_found", err.Error())
	case errors.Is(err, booking.ErrUnknownSlot):
		writeError(w, http.StatusBadRequest, "unknown_slot", err.Error())
	case errors.Is(err, booking.ErrAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrConflict):
		writeError(w, http.StatusConflict, "booking_conflict", err.Error())
	case errors.Is(err, booking.ErrUnknownWeekday),
		errors.Is(err, booking.ErrDuplicateWeekday):
		writeError(w, http.StatusBadRequest, "invalid_template", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "day_being_prepared", "day slots are being prepared, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
