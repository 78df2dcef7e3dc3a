package clinic

import (
	"time"

	"github.com/google/uuid"
)

// VerificationState is the clinic email-verification state machine:
// unverified -> verified, one way.
type VerificationState string

const (
	Unverified VerificationState = "unverified"
	Verified   VerificationState = "verified"
)

type Clinic struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Active       bool
	Verification VerificationState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Patient struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	Name      string
	Email     string
	Phone     string
	Reason    string
	NextVisit *time.Time
	CreatedAt time.Time
}
