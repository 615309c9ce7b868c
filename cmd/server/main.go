package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	router "github.com/dkeye/VoiceBridge/internal/adapters/http"
	"github.com/dkeye/VoiceBridge/internal/adapters/provider"
	"github.com/dkeye/VoiceBridge/internal/adapters/token"
	"github.com/dkeye/VoiceBridge/internal/app"
	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/dkeye/VoiceBridge/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logCloser := logging.Configure(cfg.Mode, cfg.Log)
	defer logCloser.Close()

	reg := app.NewRegistry()
	dispatch := app.NewDispatcher(reg, app.PolicyByName(cfg.Signal.Backpressure))
	orch := &app.Orchestrator{
		Registry: reg,
		Relay:    app.NewRelay(dispatch, cfg.Signal.Strict),
	}

	if cfg.PipelineEnabled() {
		providers, err := provider.Build(ctx, cfg.Provider)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build providers")
		}
		defer providers.Close()
		orch.Pipeline = app.NewPipeline(dispatch, providers.Speech, providers.Secondary, app.PipelineConfig{
			ProviderTimeout: cfg.Pipeline.ProviderTimeout,
			MaxConcurrent:   cfg.Pipeline.MaxConcurrent,
			Limiter:         app.NewRateLimiter(cfg.Pipeline.RateLimit, cfg.Pipeline.RateInterval),
		})
	} else {
		log.Warn().Msg("no recognizer configured, audio recordings will be rejected")
	}

	issuer := token.NewIssuer(cfg.LiveKit)
	if !issuer.Configured() {
		log.Warn().Msg("livekit credentials missing, /getToken disabled")
	}

	r := router.SetupRouter(ctx, cfg, orch, issuer)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if orch.Pipeline != nil {
		orch.Pipeline.Close()
	}
	log.Info().Msg("Server exited gracefully")
}
