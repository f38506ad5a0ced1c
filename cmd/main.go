package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"wadigest/internal/config"
	"wadigest/internal/infrastructure"
	"wadigest/internal/interfaces"
	httpiface "wadigest/internal/interfaces/http"
	"wadigest/internal/usecases"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") == "true" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := infrastructure.OpenStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("store initialization failed")
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error().Err(err).Msg("closing store failed")
		}
	}()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("store ready")

	transcriber := infrastructure.NewGladiaClient(infrastructure.GladiaConfig{
		APIKey:          cfg.Transcription.APIKey,
		BaseURL:         cfg.Transcription.BaseURL,
		PollInterval:    cfg.Transcription.PollInterval,
		Timeout:         cfg.Transcription.Timeout,
		DefaultLanguage: cfg.Transcription.DefaultLanguage,
	}, logger)

	summarizer := infrastructure.NewQwenSummarizer(
		cfg.Summarizer.APIKey,
		cfg.Summarizer.BaseURL,
		cfg.Summarizer.Model,
		cfg.Summarizer.UseMock,
		logger,
	)

	links := httpiface.NewLinkSigner(cfg.Server.BaseURL, cfg.Webhook.LinkSecret)
	channels := buildChannels(cfg, logger)
	for _, ch := range channels {
		logger.Info().Str("channel", ch.Name()).Msg("notification channel enabled")
	}

	ingest := usecases.NewIngestService(store, transcriber, logger)
	digest := usecases.NewDigestService(store, summarizer, links, channels, logger)
	digest.RetentionDays = cfg.Digest.RetentionDays
	digest.MaxStartJitter = cfg.Digest.MaxStartJitter
	weekly := usecases.NewWeeklyService(store, summarizer, links, channels, logger)

	middleware := httpiface.NewMiddleware(cfg.Webhook.Secret, cfg.Webhook.CronSecret)
	handler := httpiface.NewHandler(ingest, digest, weekly, store, links, logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	httpiface.SetupRoutes(r, handler, middleware)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
		errCh <- r.Run(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("HTTP server failed")
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}
}

func buildChannels(cfg *config.Config, logger zerolog.Logger) []interfaces.NotificationChannel {
	var channels []interfaces.NotificationChannel

	if cfg.Notify.TeamsWebhookURL != "" {
		channels = append(channels, infrastructure.NewTeamsChannel(cfg.Notify.TeamsWebhookURL))
	}
	if cfg.Notify.ZAPIInstanceID != "" && cfg.Notify.ZAPIToken != "" {
		channels = append(channels, infrastructure.NewZAPIChannel(
			cfg.Notify.ZAPIInstanceID,
			cfg.Notify.ZAPIToken,
			cfg.Notify.ZAPIClientToken,
			logger,
		))
	}
	if tg := infrastructure.NewTelegramChannel(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID, logger); tg.Enabled() {
		channels = append(channels, tg)
	}

	if len(channels) == 0 {
		logger.Warn().Msg("no notification channels configured, digests will only be stored")
	}
	return channels
}
