package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/avelis/collabd/internal/adapters/http"
	"github.com/avelis/collabd/internal/adapters/ws"
	"github.com/avelis/collabd/internal/auth"
	"github.com/avelis/collabd/internal/config"
	"github.com/avelis/collabd/internal/session"
	"github.com/avelis/collabd/internal/store"
	"github.com/avelis/collabd/internal/store/memory"
	"github.com/avelis/collabd/internal/store/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("jwt_secret is required (set JWT_SECRET)")
	}

	var membership store.Membership
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open membership store")
		}
		defer pg.Close()
		membership = pg
	} else {
		log.Warn().Msg("no database_url configured, using in-memory membership store")
		membership = memory.NewMembershipStore()
	}

	sessions := session.NewManager(membership, cfg.CursorWindow)
	verifier := auth.NewVerifier(cfg.JWTSecret)
	ctl := ws.NewController(verifier, sessions, ws.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	})

	r := router.SetupRouter(ctx, cfg, sessions, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("collabd server started")
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
