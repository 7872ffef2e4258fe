package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/diegodemontetech/boneheal-messaging/internal/ai"
	"github.com/diegodemontetech/boneheal-messaging/internal/api/router"
	appconfig "github.com/diegodemontetech/boneheal-messaging/internal/config"
	"github.com/diegodemontetech/boneheal-messaging/internal/leads"
	"github.com/diegodemontetech/boneheal-messaging/internal/messages"
	"github.com/diegodemontetech/boneheal-messaging/internal/notifications"
	"github.com/diegodemontetech/boneheal-messaging/internal/observability/metrics"
	"github.com/diegodemontetech/boneheal-messaging/internal/policy"
	"github.com/diegodemontetech/boneheal-messaging/internal/providers"
	"github.com/diegodemontetech/boneheal-messaging/internal/webhook"
	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting boneheal-messaging API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Redis is optional; without it duplicate webhook deliveries are
	// processed twice.
	var dedup *webhook.Dedup
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, webhook dedup disabled", "error", err)
		} else {
			dedup = webhook.NewDedup(redisClient, cfg.DedupTTL)
			defer func() { _ = redisClient.Close() }()
		}
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipelineMetrics(promRegistry)

	// Stores and resolver
	leadRepo := leads.NewPostgresRepository(pool)
	messageStore := messages.NewStore(pool)
	resolver := leads.NewResolver(leadRepo, messageStore, logger.WithComponent("leads"))

	// Outbound providers
	registry, defaultProvider, missingReason := providers.BuildRegistry(providers.SelectionConfig{
		Preference:        cfg.WhatsAppProvider,
		ZAPIBaseURL:       cfg.ZAPIBaseURL,
		ZAPIInstanceID:    cfg.ZAPIInstanceID,
		ZAPIToken:         cfg.ZAPIToken,
		EvolutionBaseURL:  cfg.EvolutionBaseURL,
		EvolutionAPIKey:   cfg.EvolutionAPIKey,
		EvolutionInstance: cfg.EvolutionInstance,
	}, logger.WithComponent("providers"))
	var sender providers.ReplySender
	if registry != nil {
		logger.Info("whatsapp provider configured", "provider", defaultProvider)
		sender = providers.WrapWithPersistence(registry, messageStore, logger.WithComponent("providers"))
	} else {
		logger.Warn("no whatsapp provider configured, replies disabled", "reason", missingReason)
	}

	// AI analyzer
	var analyzer policy.Analyzer
	if aiClient := ai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.AssistantName, cfg.AnalysisTimeout, logger.WithComponent("ai")); aiClient != nil {
		logger.Info("ai analyzer configured", "model", cfg.OpenAIModel)
		analyzer = aiClient
	} else {
		logger.Warn("OPENAI_API_KEY not set, every message escalates to a human")
	}
	engine := policy.NewEngine(analyzer, logger.WithComponent("policy"))

	// Notifications
	var emailSender notifications.EmailSender
	if sg := notifications.NewSendGridSender(notifications.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	}
	notifier := notifications.NewService(notifications.NewStore(pool), emailSender, cfg.AdminAlertEmail, logger.WithComponent("notifications"))

	// Pipeline and handler
	webhookLogger := logger.WithComponent("webhook")
	pipeline := webhook.NewPipeline(resolver, leadRepo, engine, sender, notifier, dedup, pipelineMetrics, webhookLogger)
	webhookHandler := webhook.NewHandler(pipeline, pipelineMetrics, webhookLogger)

	// Setup router
	r := router.New(&router.Config{
		Logger:         logger,
		WebhookHandler: webhookHandler,
		MetricsHandler: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
