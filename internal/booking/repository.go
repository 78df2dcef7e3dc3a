package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken      = errors.New("booking token not found")
	ErrTokenUsed         = errors.New("booking token already used")
	ErrTokenExpired      = errors.New("booking token expired")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrClinicNotFound    = errors.New("clinic not found")
	ErrInventoryNotFound = errors.New("day slots not found")
	ErrInventoryExists   = errors.New("day slots already materialized")
	ErrUnknownSlot       = errors.New("slot does not exist")
	ErrAlreadyBooked     = errors.New("slot already booked")
	ErrConflict          = errors.New("slot was booked concurrently")
	ErrUnknownWeekday    = errors.New("unknown weekday code")
	ErrDuplicateWeekday  = errors.New("duplicate weekday in template")
)

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetClinicName(ctx context.Context, clinicID uuid.UUID) (string, error)

	// Weekly templates. GetTemplate returns a nil template when the clinic
	// has not defined one (or its stored JSON is unreadable).
	GetTemplate(ctx context.Context, clinicID uuid.UUID) (WeeklyTemplate, error)
	SetTemplate(ctx context.Context, clinicID uuid.UUID, tpl WeeklyTemplate) error

	// Booking tokens.
	CreateToken(ctx context.Context, t *BookingToken) error
	GetTokenByString(ctx context.Context, token string) (*BookingToken, error)

	// Day inventories. InsertInventory fails with ErrInventoryExists when a
	// row for the same (clinic, date) is already present.
	GetInventory(ctx context.Context, clinicID uuid.UUID, date time.Time) (*DayInventory, error)
	InsertInventory(ctx context.Context, inv *DayInventory) error

	// ApplyReservation performs the four reservation effects in one
	// transaction: conditional slot flip, audit append, token consumption,
	// patient next-visit update. A slot no longer free at commit time
	// surfaces as ErrConflict with nothing applied.
	ApplyReservation(ctx context.Context, res Reservation) error

	// Audit log.
	ListAuditByClinic(ctx context.Context, clinicID uuid.UUID) ([]AuditEntry, error)

	// Reconciliation: booked slots with no matching audit row.
	FindDanglingSlots(ctx context.Context) ([]DanglingSlot, error)
}
