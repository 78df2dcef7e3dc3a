package booking

import (
	"time"

	"github.com/google/uuid"
)

// DateFormat is the wire and storage format for calendar dates.
const DateFormat = "2006-01-02"

type SlotState string

const (
	SlotFree   SlotState = "free"
	SlotBooked SlotState = "booked"
)

// Patient carries the subset of a patient record the booking engine needs.
// The mutable NextVisit field is denormalized convenience data; the
// authoritative record of bookings is the append-only audit log.
type Patient struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	Name      string
	Email     string
	NextVisit *time.Time
}

// BookingToken authorizes exactly one slot reservation for one patient.
// A token transitions unused -> used at most once. Tokens older than the
// configured TTL are treated as expired regardless of the stored flag.
type BookingToken struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Token     string
	Used      bool
	Expired   bool
	CreatedAt time.Time
}

// DayInventory is the materialized slot set for one clinic on one date.
// The slot-label set is frozen at creation; only states mutate afterwards.
type DayInventory struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	Date      time.Time
	Slots     map[string]SlotState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuditEntry is one append-only row written per successful reservation.
type AuditEntry struct {
	ID          int64
	ClinicID    uuid.UUID
	PatientName string
	Date        time.Time
	Slot        string
	CreatedAt   time.Time
}

// Confirmation is returned to the patient after a successful reservation.
type Confirmation struct {
	Date time.Time
	Slot string
}

// TokenContext is what a booking page renders before the patient picks a
// date: who is booking, where, and which dates are open for selection.
type TokenContext struct {
	PatientName string
	ClinicName  string
	NextDays    []time.Time
}

// Reservation bundles the four effects of a successful booking so the
// repository can apply them in a single transaction: slot flip, audit
// append, token consumption, patient next-visit update.
type Reservation struct {
	TokenID     uuid.UUID
	PatientID   uuid.UUID
	ClinicID    uuid.UUID
	PatientName string
	Date        time.Time
	Slot        string
}

// DanglingSlot is a booked slot with no matching audit row, the one
// inconsistency the reconcile tool scans for.
type DanglingSlot struct {
	ClinicID uuid.UUID
	Date     time.Time
	Slot     string
}
