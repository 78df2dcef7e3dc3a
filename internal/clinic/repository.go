package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrClinicNotFound  = errors.New("clinic not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrBadCredentials  = errors.New("invalid email or password")
)

// Repository contains all DB interactions needed by the clinic service.
type Repository interface {
	CreateClinic(ctx context.Context, c *Clinic) error
	GetClinicByEmail(ctx context.Context, email string) (*Clinic, error)
	GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	SetVerification(ctx context.Context, id uuid.UUID, state VerificationState) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	CreatePatient(ctx context.Context, p *Patient) error
	ListPatientsByClinic(ctx context.Context, clinicID uuid.UUID) ([]Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
}
