package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"chart-analyst-bot/internal/common/config"
	"chart-analyst-bot/internal/common/logger"
	accessrepo "chart-analyst-bot/internal/features/access/repository"
	accessmemory "chart-analyst-bot/internal/features/access/repository/memory"
	accessredis "chart-analyst-bot/internal/features/access/repository/redis"
	accessservice "chart-analyst-bot/internal/features/access/service"
	"chart-analyst-bot/internal/features/analysis/provider"
	analysisservice "chart-analyst-bot/internal/features/analysis/service"
	bothttp "chart-analyst-bot/internal/features/bot/delivery/http"
	"chart-analyst-bot/internal/features/bot/router"
	"chart-analyst-bot/internal/features/upload/blobstore"
	uploadrepo "chart-analyst-bot/internal/features/upload/repository"
	uploadmemory "chart-analyst-bot/internal/features/upload/repository/memory"
	uploadredis "chart-analyst-bot/internal/features/upload/repository/redis"
	uploadservice "chart-analyst-bot/internal/features/upload/service"
	apphttp "chart-analyst-bot/internal/http"
	"chart-analyst-bot/internal/metrics"
	redisplatform "chart-analyst-bot/internal/platform/redis"
	"chart-analyst-bot/internal/platform/telegram"
	"chart-analyst-bot/internal/workers"
)

// @title           Chart Analyst Bot API
// @version         1.0
// @description     Admin and status endpoints of the chart analyst Telegram bot. All endpoints require Telegram Mini App init data.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init data string for authentication

// @tag.name users
// @tag.description Caller status

// @tag.name admin
// @tag.description Access administration

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Debug:       cfg.Debug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	log := logger.Component("main")

	adminIDs, err := cfg.AdminIDSet()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid admin list")
	}
	if len(adminIDs) == 0 {
		log.Warn().Msg("ADMIN_IDS is empty, nobody can activate users")
	}

	log.Info().
		Bool("debug", cfg.Debug).
		Str("storage", cfg.Storage.Backend).
		Int("admins", len(adminIDs)).
		Msg("Starting chart analyst bot")

	// Storage
	var (
		users   accessrepo.UserRepository
		pending uploadrepo.PendingRepository
		checks  []apphttp.Check
	)
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		rdb, err := redisplatform.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		users = accessredis.NewUserRepository(rdb)
		pending = uploadredis.NewPendingRepository(rdb)
		checks = append(checks, apphttp.Check{Name: "redis", Run: redisCheck(rdb)})
		log.Info().Str("addr", cfg.Redis.Addr).Int("db", cfg.Redis.DB).Msg("Redis connection established")
	default:
		users = accessmemory.NewUserRepository()
		pending = uploadmemory.NewPendingRepository()
		log.Warn().Msg("Using in-memory storage, activations and pending charts are lost on restart")
	}

	store, err := blobstore.NewFileStore(cfg.Storage.ImageDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Storage.ImageDir).Msg("Failed to open image store")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)
	var gatherer prometheus.Gatherer
	if cfg.Server.MetricsEnabled {
		gatherer = reg
	}

	// Telegram
	tg, err := telegram.NewClient(telegram.Options{
		Token:   cfg.Telegram.BotToken,
		Timeout: cfg.Telegram.Timeout,
		Debug:   cfg.Debug,
	}, logger.Component("telegram"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to authorize bot")
	}

	// Services
	accessSvc := accessservice.NewAccessService(users, adminIDs, logger.Component("access"))
	uploadSvc := uploadservice.NewUploadService(store, pending, accessSvc, logger.Component("upload"))

	var analyzer provider.Provider
	if cfg.Provider.APIKey != "" {
		analyzer = provider.NewOpenAI(provider.Config{
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
			Model:   cfg.Provider.Model,
			Timeout: cfg.Provider.Timeout,
		})
	} else {
		log.Warn().Msg("PROVIDER_API_KEY is not set, reports will be simulated")
	}

	pool := workers.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize, logger.Component("workers"))
	analysisSvc := analysisservice.NewAnalysisService(analysisservice.Deps{
		Access:    accessSvc,
		Uploads:   uploadSvc,
		Provider:  analyzer,
		Messenger: tg,
		Pool:      pool,
		Metrics:   recorder,
		Log:       logger.Component("analysis"),
		Timeout:   cfg.Provider.Timeout,
	})

	botRouter := router.New(router.Deps{
		Access:      accessSvc,
		Uploads:     uploadSvc,
		Analysis:    analysisSvc,
		Messenger:   tg,
		Metrics:     recorder,
		Log:         logger.Component("router"),
		DefaultDays: cfg.Access.DefaultDays,
	})

	// Without a configured secret no update can authenticate, so the webhook
	// route stays closed until WEBHOOK_URL and WEBHOOK_SECRET are set.
	secret := cfg.Telegram.WebhookSecret
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	webhook, err := bothttp.NewWebhookHandler(botRouter, tg, secret, recorder, logger.Component("webhook"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create webhook handler")
	}

	// HTTP
	engine := apphttp.NewRouter(apphttp.Options{
		ServiceName: cfg.ServiceName,
		Debug:       cfg.Debug,
		BotToken:    cfg.Telegram.BotToken,
		InitDataTTL: cfg.Telegram.InitDataTTL,
		CORSOrigins: cfg.Server.CORSOrigins,
		Access:      accessSvc,
		Webhook:     webhook,
		Gatherer:    gatherer,
		Checks:      checks,
		Log:         logger.Component("http"),
	})
	server := apphttp.NewServer(cfg.Server.Port, engine)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	if err := syncWebhook(tg, cfg.Telegram.WebhookURL, secret); err != nil {
		log.Error().Err(err).Msg("Failed to sync webhook")
	}
	if cfg.Telegram.WebhookURL == "" {
		log.Warn().Msg("WEBHOOK_URL is not set, Telegram will not deliver updates")
	}

	<-ctx.Done()
	stop()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Analysis jobs cancelled before completion")
	}

	log.Info().Msg("Server exited")
}

func redisCheck(rdb *goredis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

type webhookSetter interface {
	SetWebhook(url, secret string) error
}

// syncWebhook registers the webhook, or removes one left over from an earlier
// deployment when no base URL is configured.
func syncWebhook(tg webhookSetter, base, secret string) error {
	if base == "" {
		return tg.SetWebhook("", "")
	}
	return tg.SetWebhook(webhookURL(base, secret), secret)
}

// webhookURL appends the secret path segment the webhook route expects.
func webhookURL(base, secret string) string {
	return strings.TrimRight(base, "/") + "/webhook/" + secret
}
