package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-booking/internal/auth"
	"github.com/clinicdesk/clinic-booking/internal/booking"
	"github.com/clinicdesk/clinic-booking/internal/clinic"
)

// BookingService is the slice of the booking engine the handlers use.
type BookingService interface {
	SetTemplate(ctx context.Context, clinicID uuid.UUID, tpl booking.WeeklyTemplate) error
	GetTemplate(ctx context.Context, clinicID uuid.UUID) (booking.WeeklyTemplate, error)
	IssueToken(ctx context.Context, patientID uuid.UUID) (*booking.BookingToken, error)
	TokenContext(ctx context.Context, token string) (*booking.TokenContext, error)
	DaySlots(ctx context.Context, token string, date time.Time) (map[string]booking.SlotState, error)
	Reserve(ctx context.Context, token string, date time.Time, slot string) (*booking.Confirmation, error)
	Upcoming(ctx context.Context, clinicID uuid.UUID) ([]booking.AuditEntry, error)
}

// ClinicService is the slice of the accounts service the handlers use.
type ClinicService interface {
	Signup(ctx context.Context, email, name, password string) (*clinic.Clinic, error)
	Login(ctx context.Context, email, password string) (*clinic.Clinic, error)
	Activate(ctx context.Context, clinicID uuid.UUID, productID string) error
	GetByEmail(ctx context.Context, email string) (*clinic.Clinic, error)
	AddPatient(ctx context.Context, p *clinic.Patient) error
	ListPatients(ctx context.Context, clinicID uuid.UUID) ([]clinic.Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
	SendReminder(clinicName, link, patientEmail string) error
}

type RouterConfig struct {
	Booking  BookingService
	Clinic   ClinicService
	Sessions *auth.Sessions
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Session endpoints
	r.Post("/signup", signupHandler(cfg.Clinic, cfg.Sessions))
	r.Post("/login", loginHandler(cfg.Clinic, cfg.Sessions))
	r.Post("/logout", logoutHandler(cfg.Sessions))

	// Patient-facing booking endpoints: authorized by the one-time booking
	// token, not by a session.
	r.Get("/book/{token}", tokenContextHandler(cfg.Booking))
	r.Post("/day-slots", daySlotsHandler(cfg.Booking))
	r.Post("/reserve", reserveHandler(cfg.Booking))

	// Payment provider webhook
	r.Post("/webhooks/purchase", purchaseWebhookHandler(cfg.Clinic))

	// Clinic-scoped endpoints behind the session cookie
	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Sessions, cfg.Clinic))

		r.Post("/refresh", refreshHandler(cfg.Clinic, cfg.Sessions))

		r.Post("/patients", addPatientHandler(cfg.Clinic))
		r.Get("/patients", listPatientsHandler(cfg.Clinic))
		r.Delete("/patients/{id}", deletePatientHandler(cfg.Clinic))

		r.Post("/clinic-slots", setTemplateHandler(cfg.Booking))
		r.Get("/clinic-slots", getTemplateHandler(cfg.Booking))

		r.Post("/booking-tokens", createTokenHandler(cfg.Booking))
		r.Get("/upcoming", upcomingHandler(cfg.Booking))

		r.Post("/reminder-email", reminderHandler(cfg.Clinic))
	})

	return r
}
