package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-booking/internal/config"
	redisclient "github.com/clinicdesk/clinic-booking/internal/redis"
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	log    zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		log:    log.With().Str("component", "booking").Logger(),
		now:    time.Now,
	}
}

// SetTemplate replaces a clinic's weekly availability wholesale. Templates
// repeating a weekday are rejected rather than silently resolved by entry
// order.
func (s *Service) SetTemplate(ctx context.Context, clinicID uuid.UUID, tpl WeeklyTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	return s.repo.SetTemplate(ctx, clinicID, tpl)
}

// GetTemplate returns the clinic's weekly template, or nil when none is set.
func (s *Service) GetTemplate(ctx context.Context, clinicID uuid.UUID) (WeeklyTemplate, error) {
	return s.repo.GetTemplate(ctx, clinicID)
}

// IssueToken creates a single-use booking token bound to a patient.
func (s *Service) IssueToken(ctx context.Context, patientID uuid.UUID) (*BookingToken, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	str, err := newTokenString()
	if err != nil {
		return nil, err
	}

	t := &BookingToken{
		ID:        uuid.New(),
		PatientID: patientID,
		Token:     str,
	}
	if err := s.repo.CreateToken(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// resolveToken validates a booking token string and loads its patient.
// Failure kinds are distinct: ErrInvalidToken for unknown strings,
// ErrTokenUsed for consumed tokens, ErrTokenExpired when the stored flag is
// set or the token has outlived its TTL. The computed age dominates the
// stored flag.
func (s *Service) resolveToken(ctx context.Context, token string) (*BookingToken, *Patient, error) {
	t, err := s.repo.GetTokenByString(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	if t.Used {
		return nil, nil, ErrTokenUsed
	}
	if t.Expired || s.now().Sub(t.CreatedAt) > s.cfg.BookingTokenTTL {
		return nil, nil, ErrTokenExpired
	}

	p, err := s.repo.GetPatientByID(ctx, t.PatientID)
	if err != nil {
		return nil, nil, err
	}

	return t, p, nil
}

// TokenContext resolves a booking token into what the booking page needs:
// the patient, the clinic name, and the next seven candidate dates.
func (s *Service) TokenContext(ctx context.Context, token string) (*TokenContext, error) {
	_, patient, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	clinicName, err := s.repo.GetClinicName(ctx, patient.ClinicID)
	if err != nil {
		return nil, err
	}

	days := make([]time.Time, 0, 7)
	start := s.now()
	for i := 1; i <= 7; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}

	return &TokenContext{
		PatientName: patient.Name,
		ClinicName:  clinicName,
		NextDays:    days,
	}, nil
}

// DaySlots returns the slot inventory for the patient's clinic on a date,
// materializing it from the weekly template on first access. Once a day has
// been materialized its slot set is frozen: later template edits do not
// reshape it.
func (s *Service) DaySlots(ctx context.Context, token string, date time.Time) (map[string]SlotState, error) {
	_, patient, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.GetInventory(ctx, patient.ClinicID, date)
	if err == nil {
		return inv.Slots, nil
	}
	if !errors.Is(err, ErrInventoryNotFound) {
		return nil, fmt.Errorf("load day slots: %w", err)
	}

	var slots map[string]SlotState

	lockErr := s.locker.WithDayLock(ctx, patient.ClinicID, date.Format(DateFormat), func(lockCtx context.Context) error {
		// Re-check inside the critical section: a concurrent request may
		// have materialized the day while we waited for the lock key.
		existing, err := s.repo.GetInventory(lockCtx, patient.ClinicID, date)
		if err == nil {
			slots = existing.Slots
			return nil
		}
		if !errors.Is(err, ErrInventoryNotFound) {
			return fmt.Errorf("recheck day slots: %w", err)
		}

		built, err := s.materializeDay(lockCtx, patient.ClinicID, date)
		if err != nil {
			return err
		}
		slots = built
		return nil
	})

	if lockErr != nil {
		if errors.Is(lockErr, redisclient.ErrLockNotAcquired) {
			// Another request holds the day lock; it is building the same
			// inventory, so fall back to a plain read.
			inv, err := s.repo.GetInventory(ctx, patient.ClinicID, date)
			if err != nil {
				return nil, lockErr
			}
			return inv.Slots, nil
		}
		return nil, lockErr
	}

	return slots, nil
}

func (s *Service) materializeDay(ctx context.Context, clinicID uuid.UUID, date time.Time) (map[string]SlotState, error) {
	tpl, err := s.repo.GetTemplate(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("load weekly template: %w", err)
	}

	// No entry for this weekday means an empty inventory, not an error.
	slots := make(map[string]SlotState)
	for _, label := range tpl.SlotsFor(WeekdayCode(date)) {
		slots[label] = SlotFree
	}

	inv := &DayInventory{
		ClinicID: clinicID,
		Date:     date,
		Slots:    slots,
	}
	if err := s.repo.InsertInventory(ctx, inv); err != nil {
		if errors.Is(err, ErrInventoryExists) {
			// The unique constraint is the hard guarantee; losing the
			// insert race degrades to a read of the winner's row.
			existing, err := s.repo.GetInventory(ctx, clinicID, date)
			if err != nil {
				return nil, fmt.Errorf("reread day slots: %w", err)
			}
			return existing.Slots, nil
		}
		return nil, err
	}

	s.log.Info().
		Str("clinic_id", clinicID.String()).
		Str("date", date.Format(DateFormat)).
		Int("slots", len(slots)).
		Msg("materialized day slots")

	return slots, nil
}

// Reserve books one slot for the token's patient. Validation failures
// (steps before the transaction) mutate nothing; the four effects of a
// successful booking apply atomically or not at all. This endpoint never
// materializes: the caller is expected to have fetched day slots first.
func (s *Service) Reserve(ctx context.Context, token string, date time.Time, slot string) (*Confirmation, error) {
	t, patient, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.GetInventory(ctx, patient.ClinicID, date)
	if err != nil {
		return nil, err
	}

	state, ok := inv.Slots[slot]
	if !ok {
		return nil, ErrUnknownSlot
	}
	if state != SlotFree {
		return nil, ErrAlreadyBooked
	}

	res := Reservation{
		TokenID:     t.ID,
		PatientID:   patient.ID,
		ClinicID:    patient.ClinicID,
		PatientName: patient.Name,
		Date:        date,
		Slot:        slot,
	}
	if err := s.repo.ApplyReservation(ctx, res); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		s.log.Error().Err(err).
			Str("clinic_id", patient.ClinicID.String()).
			Str("slot", slot).
			Msg("reservation transaction failed")
		return nil, err
	}

	s.log.Info().
		Str("clinic_id", patient.ClinicID.String()).
		Str("patient_id", patient.ID.String()).
		Str("date", date.Format(DateFormat)).
		Str("slot", slot).
		Msg("slot reserved")

	return &Confirmation{Date: date, Slot: slot}, nil
}

// Upcoming lists the clinic's append-only reservation audit log.
func (s *Service) Upcoming(ctx context.Context, clinicID uuid.UUID) ([]AuditEntry, error) {
	return s.repo.ListAuditByClinic(ctx, clinicID)
}

// Reconcile scans for booked slots with no matching audit row and logs each.
// It returns the findings so the caller can decide its exit status.
func (s *Service) Reconcile(ctx context.Context) ([]DanglingSlot, error) {
	dangling, err := s.repo.FindDanglingSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("find dangling slots: %w", err)
	}

	for _, d := range dangling {
		s.log.Warn().
			Str("clinic_id", d.ClinicID.String()).
			Str("date", d.Date.Format(DateFormat)).
			Str("slot", d.Slot).
			Msg("booked slot has no audit row")
	}

	return dangling, nil
}
