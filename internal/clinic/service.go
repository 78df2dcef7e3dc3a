package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinic-booking/internal/config"
	"github.com/clinicdesk/clinic-booking/internal/mailer"
)

type Service struct {
	repo     Repository
	notifier mailer.Notifier
	cfg      config.Config
	log      zerolog.Logger
}

func NewService(repo Repository, notifier mailer.Notifier, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With().Str("component", "clinic").Logger(),
	}
}

// Signup registers a clinic account. When email verification is required the
// account starts unverified and a verification mail goes out; otherwise it is
// verified immediately. Mail delivery is best effort either way: a failed send
// never fails the signup.
func (s *Service) Signup(ctx context.Context, email, name, password string) (*Clinic, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	state := Verified
	if s.cfg.RequireEmailVerification {
		state = Unverified
	}

	c := &Clinic{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Active:       false,
		Verification: state,
	}
	if err := s.repo.CreateClinic(ctx, c); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Welcome to %s", c.Name)
	body := fmt.Sprintf("Hi %s,\n\nYour clinic account is ready.", c.Name)
	if s.cfg.RequireEmailVerification {
		subject = "Verify your clinic account"
		body = fmt.Sprintf("Hi %s,\n\nPlease verify your email to finish setting up your account.", c.Name)
	}
	if err := s.notifier.Send(c.Email, subject, body); err != nil {
		s.log.Warn().Err(err).Str("clinic_id", c.ID.String()).Msg("signup mail failed")
	}

	return c, nil
}

// Login checks credentials and returns the clinic on success.
func (s *Service) Login(ctx context.Context, email, password string) (*Clinic, error) {
	c, err := s.repo.GetClinicByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	return c, nil
}

// Verify moves a clinic from unverified to verified. Verifying an already
// verified clinic is a no-op.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetClinicByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Verification == Verified {
		return nil
	}
	return s.repo.SetVerification(ctx, id, Verified)
}

// Activate handles the purchase-webhook event. Only the configured product
// id flips the account active; anything else is ignored without error.
func (s *Service) Activate(ctx context.Context, clinicID uuid.UUID, productID string) error {
	if productID == "" || productID != s.cfg.ActivationProductID {
		s.log.Debug().Str("product_id", productID).Msg("ignoring unrecognized purchase event")
		return nil
	}

	if err := s.repo.SetActive(ctx, clinicID, true); err != nil {
		return err
	}

	s.log.Info().Str("clinic_id", clinicID.String()).Msg("clinic activated")
	return nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Clinic, error) {
	return s.repo.GetClinicByEmail(ctx, email)
}

func (s *Service) AddPatient(ctx context.Context, p *Patient) error {
	if _, err := s.repo.GetClinicByID(ctx, p.ClinicID); err != nil {
		return err
	}
	return s.repo.CreatePatient(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, clinicID uuid.UUID) ([]Patient, error) {
	return s.repo.ListPatientsByClinic(ctx, clinicID)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeletePatient(ctx, id)
}

// SendReminder mails a patient their one-time booking link. The result is
// reported to the caller but a failure has no effect on any stored state.
func (s *Service) SendReminder(clinicName, link, patientEmail string) error {
	subject, body := mailer.ReminderBody(clinicName, link)
	if err := s.notifier.Send(patientEmail, subject, body); err != nil {
		s.log.Warn().Err(err).Str("to", patientEmail).Msg("reminder mail failed")
		return err
	}
	return nil
}
