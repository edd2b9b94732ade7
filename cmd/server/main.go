package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/sehatlink/teleconsult/internal/adapters/http"
	"github.com/sehatlink/teleconsult/internal/app"
	"github.com/sehatlink/teleconsult/internal/app/orch"
	"github.com/sehatlink/teleconsult/internal/config"
	"github.com/sehatlink/teleconsult/internal/metrics"
	"github.com/sehatlink/teleconsult/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	store := storage.New(db)

	mets := metrics.New(prometheus.DefaultRegisterer)
	presence := app.NewPresenceRegistry()
	rooms := app.NewRoomRegistry()
	sessions := app.NewSessionManager(store)

	o := &orch.Orchestrator{
		Presence: presence,
		Rooms:    rooms,
		Chat:     sessions,
		Metrics:  mets,
	}

	r := router.SetupRouter(ctx, cfg, o, sessions)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("teleconsult coordinator started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
