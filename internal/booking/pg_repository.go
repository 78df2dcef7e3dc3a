package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string
	var nextVisit *time.Time

	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.Name,
		&email,
		&nextVisit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	if email != nil {
		p.Email = *email
	}
	p.NextVisit = nextVisit
	return &p, nil
}

func scanToken(row pgx.Row) (*BookingToken, error) {
	var t BookingToken

	err := row.Scan(
		&t.ID,
		&t.PatientID,
		&t.Token,
		&t.Used,
		&t.Expired,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, name, email, next_visit
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetClinicName(ctx context.Context, clinicID uuid.UUID) (string, error) {
	var name string

	err := r.pool.QueryRow(ctx, `
		SELECT clinic_name
		FROM clinics
		WHERE id = $1
	`, clinicID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrClinicNotFound
		}
		return "", err
	}

	return name, nil
}

func (r *PgRepository) GetTemplate(ctx context.Context, clinicID uuid.UUID) (WeeklyTemplate, error) {
	var raw *string

	err := r.pool.QueryRow(ctx, `
		SELECT clinic_slots
		FROM clinics
		WHERE id = $1
	`, clinicID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, err
	}

	if raw == nil || *raw == "" {
		return nil, nil
	}

	var tpl WeeklyTemplate
	if err := json.Unmarshal([]byte(*raw), &tpl); err != nil {
		// A malformed stored template behaves like an empty one: the
		// materializer finds no matching weekday rather than failing hard.
		return nil, nil
	}

	return tpl, nil
}

func (r *PgRepository) SetTemplate(ctx context.Context, clinicID uuid.UUID, tpl WeeklyTemplate) error {
	raw, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("marshal weekly template: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE clinics
		SET clinic_slots = $2,
		    updated_at = now()
		WHERE id = $1
	`, clinicID, string(raw))
	if err != nil {
		return fmt.Errorf("store weekly template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClinicNotFound
	}

	return nil
}

func (r *PgRepository) CreateToken(ctx context.Context, t *BookingToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, token, used, expired, created_at)
		VALUES ($1, $2, $3, false, false, now())
		RETURNING created_at
	`, t.ID, t.PatientID, t.Token)

	if err := row.Scan(&t.CreatedAt); err != nil {
		return fmt.Errorf("insert booking token: %w", err)
	}

	return nil
}

func (r *PgRepository) GetTokenByString(ctx context.Context, token string) (*BookingToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, token, used, expired, created_at
		FROM appointments
		WHERE token = $1
	`, token)
	return scanToken(row)
}

func (r *PgRepository) GetInventory(ctx context.Context, clinicID uuid.UUID, date time.Time) (*DayInventory, error) {
	var inv DayInventory
	var slotsJSON []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, slot_date, slots, created_at, updated_at
		FROM day_slots
		WHERE clinic_id = $1 AND slot_date = $2
	`, clinicID, date).Scan(
		&inv.ID,
		&inv.ClinicID,
		&inv.Date,
		&slotsJSON,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(slotsJSON, &inv.Slots); err != nil {
		return nil, fmt.Errorf("decode day slots: %w", err)
	}

	return &inv, nil
}

func (r *PgRepository) InsertInventory(ctx context.Context, inv *DayInventory) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	slotsJSON, err := json.Marshal(inv.Slots)
	if err != nil {
		return fmt.Errorf("encode day slots: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO day_slots (id, clinic_id, slot_date, slots, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`, inv.ID, inv.ClinicID, inv.Date, slotsJSON)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrInventoryExists
		}
		return fmt.Errorf("insert day slots: %w", err)
	}

	return nil
}

// ApplyReservation runs the reservation transaction. The slot flip is a
// conditional update: it only matches while the slot is still free, so the
// loser of a concurrent race affects zero rows and the whole transaction
// rolls back with ErrConflict.
func (r *PgRepository) ApplyReservation(ctx context.Context, res Reservation) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reservation tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE day_slots
		SET slots = jsonb_set(slots, ARRAY[$3], '"booked"'),
		    updated_at = now()
		WHERE clinic_id = $1
		  AND slot_date = $2
		  AND slots->>$3 = 'free'
	`, res.ClinicID, res.Date, res.Slot)
	if err != nil {
		return fmt.Errorf("flip slot state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment_log (clinic_id, patient_name, visit_date, slot, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, res.ClinicID, res.PatientName, res.Date, res.Slot)
	if err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET used = true
		WHERE id = $1
	`, res.TokenID)
	if err != nil {
		return fmt.Errorf("consume booking token: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE patients
		SET next_visit = $2
		WHERE id = $1
	`, res.PatientID, res.Date)
	if err != nil {
		return fmt.Errorf("update patient next visit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reservation tx: %w", err)
	}

	return nil
}

func (r *PgRepository) ListAuditByClinic(ctx context.Context, clinicID uuid.UUID) ([]AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, patient_name, visit_date, slot, created_at
		FROM appointment_log
		WHERE clinic_id = $1
		ORDER BY visit_date, slot
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ClinicID, &e.PatientName, &e.Date, &e.Slot, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// FindDanglingSlots reports booked slots with no matching audit row. With
// the reservation running in one transaction this should stay empty; a
// non-empty result means a partially applied booking needs operator review.
func (r *PgRepository) FindDanglingSlots(ctx context.Context) ([]DanglingSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.clinic_id, d.slot_date, s.key
		FROM day_slots d, jsonb_each_text(d.slots) s
		WHERE s.value = 'booked'
		  AND NOT EXISTS (
			SELECT 1
			FROM appointment_log l
			WHERE l.clinic_id = d.clinic_id
			  AND l.visit_date = d.slot_date
			  AND l.slot = s.key
		  )
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DanglingSlot
	for rows.Next() {
		var d DanglingSlot
		if err := rows.Scan(&d.ClinicID, &d.Date, &d.Slot); err != nil {
			return nil, err
		}
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
