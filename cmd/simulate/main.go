// simulate drives concurrent reservation attempts against a running
// api-server to demonstrate the one-winner property: many patients racing
// for the same slot must produce exactly one success and conflicts for the
// rest. It mints booking tokens directly in Postgres for seeded patients.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinic-booking/internal/booking"
	"github.com/clinicdesk/clinic-booking/internal/db"
)

type simConfig struct {
	APIBaseURL string
	Workers    int
	Date       string
	Slot       string
}

type counters struct {
	success  int64
	conflict int64
	errors   int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := simConfig{}
	flag.StringVar(&cfg.APIBaseURL, "api", "http://localhost:8080", "api-server base URL")
	flag.IntVar(&cfg.Workers, "workers", 20, "concurrent reservation attempts")
	flag.StringVar(&cfg.Date, "date", time.Now().AddDate(0, 0, 1).Format(booking.DateFormat), "target date (YYYY-MM-DD)")
	flag.StringVar(&cfg.Slot, "slot", "", "target slot label (default: first free slot)")
	flag.Parse()

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

	patients, err := loadPatients(ctx, pool, cfg.Workers)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if len(patients) < cfg.Workers {
		log.Fatalf("need %d patients in one clinic, found %d (run cmd/seed first)", cfg.Workers, len(patients))
	}

	tokens := make([]string, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		tokens[i], err = mintToken(ctx, pool, patients[i])
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
	}

	slot := cfg.Slot
	if slot == "" {
		slot, err = firstFreeSlot(cfg.APIBaseURL, tokens[0], cfg.Date)
		if err != nil {
			log.Fatalf("pick slot: %v", err)
		}
	}
	log.Printf("racing %d workers for %s %s", cfg.Workers, cfg.Date, slot)

	var c counters
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			<-start
			status, err := reserve(cfg.APIBaseURL, token, cfg.Date, slot)
			switch {
			case err != nil:
				atomic.AddInt64(&c.errors, 1)
			case status == http.StatusOK:
				atomic.AddInt64(&c.success, 1)
			case status == http.StatusConflict:
				atomic.AddInt64(&c.conflict, 1)
			default:
				atomic.AddInt64(&c.errors, 1)
			}
		}(tokens[i])
	}

	close(start)
	wg.Wait()

	log.Printf("success=%d conflict=%d errors=%d", c.success, c.conflict, c.errors)
	if c.success > 1 {
		log.Fatalf("INVARIANT VIOLATED: %d reservations succeeded for one slot", c.success)
	}
	log.Println("one-winner property held")
}

// loadPatients returns up to limit patient ids all belonging to the same
// clinic, so every minted token targets the same day inventory.
func loadPatients(ctx context.Context, pool *pgxpool.Pool, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, `
		SELECT id FROM patients
		WHERE clinic_id = (SELECT clinic_id FROM patients LIMIT 1)
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func mintToken(ctx context.Context, pool *pgxpool.Pool, patientID uuid.UUID) (string, error) {
	token := uuid.NewString() + uuid.NewString()[:6]
	_, err := pool.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, token, used, expired, created_at)
		VALUES ($1, $2, $3, false, false, now())
	`, uuid.New(), patientID, token)
	return token, err
}

func firstFreeSlot(baseURL, token, date string) (string, error) {
	body, _ := json.Marshal(map[string]string{"token": token, "date": date})
	resp, err := http.Post(baseURL+"/day-slots", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("day-slots returned %d", resp.StatusCode)
	}

	var out struct {
		Slots map[string]string `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	for label, state := range out.Slots {
		if state == "free" {
			return label, nil
		}
	}
	return "", fmt.Errorf("no free slot on %s", date)
}

func reserve(baseURL, token, date, slot string) (int, error) {
	body, _ := json.Marshal(map[string]string{"token": token, "date": date, "slot": slot})
	resp, err := http.Post(baseURL+"/reserve", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
