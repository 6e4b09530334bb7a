package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/venturebnb/concierge/internal/app"
	"github.com/venturebnb/concierge/internal/config"
	"github.com/venturebnb/concierge/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", false)
		log.Fatal().Err(err).Msg("config error")
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	result, err := app.Build(runCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build failed")
	}

	result.Sessions.StartJanitor(runCtx, time.Minute)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: result.API.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.BindAddr).Str("company", cfg.CompanyName).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	if err := result.Cleanup(); err != nil {
		log.Warn().Err(err).Msg("cleanup failed")
	}
	log.Info().Msg("shutdown complete")
}
