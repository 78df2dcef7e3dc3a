package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicdesk/clinic-booking/internal/db"
)

const seedPassword = "changeme123"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicIDs, err := seedClinics(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	if err := seedPatients(context.Background(), pool, clinicIDs, 50); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

// weeklyTemplate builds a plausible availability layout: half-hour labels
// on weekdays, a shorter Saturday.
func weeklyTemplate() string {
	weekdaySlots := []string{
		"09:00-09:30", "09:30-10:00", "10:00-10:30", "10:30-11:00",
		"11:00-11:30", "14:00-14:30", "14:30-15:00", "15:00-15:30",
	}
	saturdaySlots := []string{"10:00-10:30", "10:30-11:00", "11:00-11:30"}

	tpl := []map[string][]string{
		{"mon": weekdaySlots},
		{"tue": weekdaySlots},
		{"wed": weekdaySlots},
		{"thu": weekdaySlots},
		{"fri": weekdaySlots},
		{"sat": saturdaySlots},
	}

	raw, _ := json.Marshal(tpl)
	return string(raw)
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clinics", count)

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Clinic"
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO clinics (id, email, clinic_name, password_hash, clinic_slots, is_active, verification, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, 'verified', now(), now())
		`, id, email, name, string(hash), weeklyTemplate())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("clinics seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, clinicIDs []uuid.UUID, perClinic int) error {
	log.Printf("seeding %d patients per clinic", perClinic)

	reasons := []string{
		"Checkup",
		"Follow-up",
		"Consultation",
		"Vaccination",
		"Lab results",
	}

	for _, clinicID := range clinicIDs {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := 0; i < perClinic; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			phone := gofakeit.Phone()
			reason := reasons[gofakeit.Number(0, len(reasons)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, clinic_id, name, email, phone, reason, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, now())
			`, id, clinicID, name, email, phone, reason)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("patients seeded")
	return nil
}
