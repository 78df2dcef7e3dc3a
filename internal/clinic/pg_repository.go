package clinic

import (
	"context"
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

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic

	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.Name,
		&c.PasswordHash,
		&c.Active,
		&c.Verification,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, err
	}

	return &c, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email, phone, reason *string
	var nextVisit *time.Time

	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.Name,
		&email,
		&phone,
		&reason,
		&nextVisit,
		&p.CreatedAt,
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
	if phone != nil {
		p.Phone = *phone
	}
	if reason != nil {
		p.Reason = *reason
	}
	p.NextVisit = nextVisit
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PgRepository) CreateClinic(ctx context.Context, c *Clinic) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO clinics (id, email, clinic_name, password_hash, is_active, verification, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at
	`, c.ID, c.Email, c.Name, c.PasswordHash, c.Active, c.Verification)

	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert clinic: %w", err)
	}

	return nil
}

func (r *PgRepository) GetClinicByEmail(ctx context.Context, email string) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, clinic_name, password_hash, is_active, verification, created_at, updated_at
		FROM clinics
		WHERE email = $1
	`, email)
	return scanClinic(row)
}

func (r *PgRepository) GetClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, clinic_name, password_hash, is_active, verification, created_at, updated_at
		FROM clinics
		WHERE id = $1
	`, id)
	return scanClinic(row)
}

func (r *PgRepository) SetVerification(ctx context.Context, id uuid.UUID, state VerificationState) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clinics
		SET verification = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, state)
	if err != nil {
		return fmt.Errorf("update verification state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClinicNotFound
	}
	return nil
}

func (r *PgRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clinics
		SET is_active = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("update active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClinicNotFound
	}
	return nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, clinic_id, name, email, phone, reason, next_visit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING created_at
	`, p.ID, p.ClinicID, p.Name, p.Email, p.Phone, p.Reason, p.NextVisit)

	if err := row.Scan(&p.CreatedAt); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	return nil
}

func (r *PgRepository) ListPatientsByClinic(ctx context.Context, clinicID uuid.UUID) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, clinic_id, name, email, phone, reason, next_visit, created_at
		FROM patients
		WHERE clinic_id = $1
		ORDER BY created_at
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeletePatient(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM patients
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}
