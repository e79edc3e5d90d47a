package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/config"
	"github.com/smileclinic/whatsbot/internal/observability/metrics"
	"github.com/smileclinic/whatsbot/internal/repository/mongodb"
	"github.com/smileclinic/whatsbot/internal/repository/sheets"
	"github.com/smileclinic/whatsbot/internal/repository/state"
	"github.com/smileclinic/whatsbot/internal/scheduler"
	"github.com/smileclinic/whatsbot/internal/server/handlers"
	"github.com/smileclinic/whatsbot/internal/server/router"
	"github.com/smileclinic/whatsbot/internal/service/clinic"
	"github.com/smileclinic/whatsbot/internal/service/conversation"
	"github.com/smileclinic/whatsbot/internal/service/guard"
	reportingsvc "github.com/smileclinic/whatsbot/internal/service/reporting"
	whatsappsvc "github.com/smileclinic/whatsbot/internal/service/whatsapp"
	"github.com/smileclinic/whatsbot/pkg/clients/anthropic"
	"github.com/smileclinic/whatsbot/pkg/clients/elevenlabs"
	"github.com/smileclinic/whatsbot/pkg/clients/gemini"
	"github.com/smileclinic/whatsbot/pkg/clients/speech"
	whatsappclient "github.com/smileclinic/whatsbot/pkg/clients/whatsapp"
	"github.com/smileclinic/whatsbot/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Warn("unknown timezone, using UTC", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
		loc = time.UTC
	}

	mongoRepo, err := mongodb.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named(baseLogger, "repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		baseLogger.Warn("failed to ensure mongodb indexes", zap.Error(err))
	}

	settings := clinic.NewProvider(mongoRepo, cfg.Clinic, logger.Named(baseLogger, "svc.clinic"))
	if err := settings.Refresh(ctx); err != nil {
		baseLogger.Warn("using configured clinic settings", zap.Error(err))
	}

	store, closeStore := newStateStore(cfg.State, baseLogger)
	defer closeStore()

	botMetrics := metrics.NewBotMetrics(prometheus.DefaultRegisterer)
	whatsClient := whatsappclient.NewClient(cfg.WhatsApp)

	deps := conversation.Dependencies{
		Store:     store,
		Messenger: whatsClient,
		Bookings:  mongoRepo,
		Metrics:   botMetrics,
	}

	switch cfg.AI.Provider {
	case config.ProviderGemini:
		geminiClient, err := gemini.NewClient(ctx, cfg.AI.GeminiKey, cfg.AI.Model, settings)
		if err != nil {
			baseLogger.Fatal("failed to init gemini client", zap.Error(err))
		}
		defer func() { _ = geminiClient.Close() }()
		deps.Assistant = geminiClient
	default:
		opts := []anthropic.Option{anthropic.WithClinic(settings)}
		if cfg.AI.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.AI.Model))
		}
		deps.Assistant = anthropic.NewClient(cfg.AI.AnthropicKey, opts...)
	}
	baseLogger.Info("ai responder enabled", zap.String("provider", cfg.AI.Provider))

	if cfg.Voice.APIKey != "" {
		deps.Voice = elevenlabs.NewClient(cfg.Voice)
		baseLogger.Info("voice replies enabled")
	} else {
		baseLogger.Warn("elevenlabs api key missing, replying to voice notes with text")
	}

	if cfg.Speech.CredentialsPath != "" {
		speechClient, err := speech.NewClient(ctx, cfg.Speech)
		if err != nil {
			baseLogger.Fatal("failed to init speech client", zap.Error(err))
		}
		defer func() { _ = speechClient.Close() }()
		deps.Speech = speechClient
	} else {
		baseLogger.Warn("speech credentials missing, voice notes disabled")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		exporter := sheets.NewExporter(sheetsRepo, loc, logger.Named(baseLogger, "repo.sheets"))
		if err := exporter.EnsureHeaders(ctx); err != nil {
			baseLogger.Warn("failed to prepare sheet headers", zap.Error(err))
		}
		deps.Mirror = exporter
	}

	convRouter, err := conversation.NewRouter(deps, cfg.Clinic, settings, logger.Named(baseLogger, "svc.conversation"))
	if err != nil {
		baseLogger.Fatal("failed to init conversation router", zap.Error(err))
	}

	limiter := guard.NewLimiter(guard.Options{
		ProcessingTimeout: cfg.Guard.ProcessingTimeout,
		DuplicateWindow:   cfg.Guard.DuplicateWindow,
		RateWindow:        cfg.Guard.RateWindow,
		RateLimit:         cfg.Guard.RateLimit,
	})

	messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, convRouter, limiter,
		logger.Named(baseLogger, "svc.whatsapp"),
		whatsappsvc.WithMetrics(botMetrics),
		whatsappsvc.WithNotifyPhone(cfg.Clinic.NotifyPhone))
	webhookHandler := handlers.NewWebhookHandler(messagingSvc, botMetrics, logger.Named(baseLogger, "handlers.whatsapp"))
	engine := router.New(webhookHandler, prometheus.DefaultGatherer, logger.Named(baseLogger, "router"))

	reportingSvc := reportingsvc.NewService(mongoRepo, loc, logger.Named(baseLogger, "svc.reporting"))
	sched := scheduler.NewScheduler(scheduler.Jobs{
		Digest:     reportingSvc,
		Sender:     messagingSvc,
		DigestTo:   cfg.Clinic.AdminPhone,
		DigestSpec: cfg.Reporting.CronSchedule,
		Guard:      limiter,
		Settings:   settings,
	}, loc, logger.Named(baseLogger, "scheduler"))
	if err := sched.Register(); err != nil {
		baseLogger.Fatal("failed to register scheduled jobs", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newStateStore(cfg config.StateConfig, baseLogger *zap.Logger) (state.Store, func()) {
	if cfg.Backend != config.StateBackendRedis {
		baseLogger.Info("using in-memory session store")
		return state.NewMemoryStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	baseLogger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	return state.NewRedisStore(client, cfg.TTL), func() {
		if err := client.Close(); err != nil {
			baseLogger.Error("failed to close redis client", zap.Error(err))
		}
	}
}
