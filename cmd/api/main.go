package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/lifeledger/internal/api/handlers"
	"github.com/dvloznov/lifeledger/internal/app"
	"github.com/dvloznov/lifeledger/internal/config"
	"github.com/dvloznov/lifeledger/internal/jobs/inmemory"
	"github.com/dvloznov/lifeledger/internal/logger"
	"github.com/dvloznov/lifeledger/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()

	log := logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}
	defer a.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore(inmemory.WithRetention(cfg.JobRetention))
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, a.JobRouter().Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	hub := realtime.NewHub()
	router := handlers.NewRouter(handlers.Deps{
		Auth:        a.Auth,
		Users:       a.Users,
		Finance:     a.Finance,
		Wellness:    a.Wellness,
		Lists:       a.Lists,
		Categorizer: a.Categorizer,
		Jobs:        jobQueue,
		JobStore:    jobStore,
		Realtime:    realtime.NewHandler(hub, a.RealtimeSources()),
	}, log)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Str("store", cfg.Store).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	hub.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
