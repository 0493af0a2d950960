package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brandsight/rfpd/internal/api"
	"github.com/brandsight/rfpd/internal/config"
	"github.com/brandsight/rfpd/internal/health"
	"github.com/brandsight/rfpd/internal/metrics"
	"github.com/brandsight/rfpd/internal/project"
	"github.com/brandsight/rfpd/internal/scheduler"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, lerr := zerolog.ParseLevel(cfg.LogLevel); lerr == nil {
		zerolog.SetGlobalLevel(level)
	}

	template, err := config.LoadJourneyTemplate(cfg.JourneyTemplatePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load journey template")
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Dur("processing_delay", cfg.ProcessingDelay).
		Dur("reply_delay", cfg.ReplyDelay).
		Int("journey_stages", len(template)).
		Msg("starting rfpd")

	m := metrics.New()

	store := project.NewStore(logger, project.WithTemplate(template))
	sched := scheduler.New(scheduler.Config{
		ProcessingDelay: cfg.ProcessingDelay,
		ReplyDelay:      cfg.ReplyDelay,
	}, logger)
	store.SetScheduler(sched)

	if cfg.SeedDemoProjects {
		project.SeedDemoProjects(store)
		logger.Info().Int("projects", store.Len()).Msg("demo projects seeded")
	}

	// Feed store change notifications into the metrics counters.
	changes := store.Watch()
	go func() {
		for c := range changes {
			switch c.Kind {
			case project.ChangeJourneyAdvanced:
				m.ProcessingCompleted.Inc()
			case project.ChangeMessageAppended:
				m.RecordMessage(string(c.Role))
			}
		}
	}()

	checker := health.NewChecker(logger)
	checker.Register("store", func(ctx context.Context) health.Status {
		return health.StatusOK
	})

	handlers := api.NewHandlers(store, checker, m, cfg, logger)
	server := api.NewServer(api.ServerConfig{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit: api.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	}, handlers, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server exited")
		}
	}

	sched.Stop()
	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("rfpd stopped")
}
