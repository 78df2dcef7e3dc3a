package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic-booking/internal/booking"
	"github.com/clinicdesk/clinic-booking/internal/config"
	"github.com/clinicdesk/clinic-booking/internal/db"
	redisclient "github.com/clinicdesk/clinic-booking/internal/redis"
)

// reconcile scans for booked slots that have no matching audit row, the one
// inconsistency a reservation interrupted mid-transaction could leave behind.
// It exits non-zero when it finds any, so it can run as a cron'd check.
func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "reconcile").Logger()
	log.Info().Msg("reconcile starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer rdb.Close()

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, cfg, log)

	runCtx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer cancel()

	start := time.Now()
	dangling, err := svc.Reconcile(runCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("reconcile run error")
	}

	log.Info().
		Int("dangling", len(dangling)).
		Dur("took", time.Since(start)).
		Msg("reconcile run complete")

	if len(dangling) > 0 {
		os.Exit(1)
	}
}
