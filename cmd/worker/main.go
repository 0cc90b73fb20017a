package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/lifeledger/internal/app"
	"github.com/dvloznov/lifeledger/internal/config"
	"github.com/dvloznov/lifeledger/internal/jobs"
	"github.com/dvloznov/lifeledger/internal/jobs/inmemory"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	interval := flag.Duration("interval", cfg.BackupInterval, "Time between runs (or set BACKUP_INTERVAL env)")
	once := flag.Bool("once", false, "Run a single pass and exit")
	flag.Parse()

	log := logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if *interval <= 0 {
		log.Fatal().Dur("interval", *interval).Msg("Interval must be positive")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer a.Close()

	router := a.JobRouter()
	types := scheduledTypes(a)

	if *once {
		// Run inline so that every job has finished when main returns.
		runPass(ctx, log, a, types, func(job *jobs.Job) error {
			if err := router.Handle(ctx, job); err != nil {
				log.Error().Err(err).Str("user_id", job.UserID).Str("job_type", string(job.Type)).Msg("Job failed")
			}
			return nil
		})
		return
	}

	jobStore := inmemory.NewStore(inmemory.WithRetention(cfg.JobRetention))
	jobQueue := inmemory.NewQueue(100, jobStore)
	if err := jobQueue.Start(ctx, router.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}
	enqueue := func(job *jobs.Job) error { return jobQueue.Publish(ctx, job) }

	log.Info().
		Dur("interval", *interval).
		Interface("job_types", types).
		Msg("Worker service started")

	runPass(ctx, log, a, types, enqueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ticker.C:
			runPass(ctx, log, a, types, enqueue)
		case <-quit:
			break loop
		}
	}
	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

// scheduledTypes are the job types a pass enqueues for every user. Backups
// always run; the others only when their integration is configured.
func scheduledTypes(a *app.App) []jobs.JobType {
	types := []jobs.JobType{jobs.JobTypeBackupSnapshot}
	if a.Warehouse != nil {
		types = append(types, jobs.JobTypeExportWarehouse)
	}
	if a.Notion != nil {
		types = append(types, jobs.JobTypeSyncNotion)
	}
	return types
}

func runPass(ctx context.Context, log zerolog.Logger, a *app.App, types []jobs.JobType, submit func(*jobs.Job) error) {
	ids, err := a.UserIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		return
	}

	var submitted int
	for _, id := range ids {
		for _, t := range types {
			if err := submit(&jobs.Job{Type: t, UserID: id}); err != nil {
				log.Error().Err(err).Str("user_id", id).Str("job_type", string(t)).Msg("Failed to enqueue job")
				continue
			}
			submitted++
		}
	}
	log.Info().Int("users", len(ids)).Int("jobs", submitted).Msg("Scheduled pass submitted")
}
