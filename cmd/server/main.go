package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/app"
	"github.com/designengineer/course-api/internal/cache"
	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/handler"
	"github.com/designengineer/course-api/internal/lemonsqueezy"
	"github.com/designengineer/course-api/internal/mailer"
	"github.com/designengineer/course-api/internal/middleware"
	"github.com/designengineer/course-api/internal/queue"
	"github.com/designengineer/course-api/internal/router"
	"github.com/designengineer/course-api/internal/scheduler"
	"github.com/designengineer/course-api/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		logger.Fatal("open stores", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() { _ = stores.Close() }()
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
	}

	rdb := config.NewRedisClient() // nil when Redis is disabled or unreachable
	if rdb == nil {
		logger.Warn("redis unavailable; caches and rate limits are pass-through")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events service.EventPublisher
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, logger.Named("publisher"))
	}

	ents := service.NewEntitlements(stores.Enrollments, cache.NewEnrollmentCache(rdb, cfg.EnrollmentCacheTTL, logger),
		events, cfg.TestAccess, logger.Named("entitlements"))
	ents.PreviewToken = cfg.PreviewToken
	temp := service.NewTemporaryAccess(stores.Codes, ents, cfg.TemporaryAccessDays, logger.Named("temporary-access"))
	certs := service.NewCertificates(stores.Certificates, stores.Progress, stores.Lessons, logger.Named("certificates"))
	prog := service.NewProgress(stores.Progress, stores.Lessons, ents, logger.Named("progress"))
	ful := service.NewFulfillment(ents, lemonsqueezy.NewCatalog(cfg.ProductVariants), logger.Named("fulfillment"))

	if cfg.TestAccess != nil {
		logger.Warn("course test mode enabled",
			zap.String("access_level", string(cfg.TestAccess.Level)),
			zap.Strings("bypass_user_ids", cfg.TestAccess.BypassUserIDs))
	}
	if cfg.WebhookSecret == "" {
		logger.Warn("LEMONSQUEEZY_WEBHOOK_SECRET is not set; all webhooks will be rejected")
	}

	// welcome email consumer
	if cfg.ResendAPIKey != "" && cfg.RabbitURL != "" {
		mail := mailer.NewClient(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.ResendFrom)
		consumer := queue.NewConsumer(cfg.RabbitURL, mail, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("enrollment consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("welcome email disabled")
	}

	sched := scheduler.New(temp, logger)
	if err := sched.AddCleanup(cfg.CleanupSchedule); err != nil {
		logger.Fatal("schedule cleanup", zap.Error(err))
	}
	sched.Start()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog(logger.Named("http")))

	router.Register(e, cfg, router.Handlers{
		Enrollment:  handler.NewEnrollmentHandler(ents, logger),
		Temporary:   handler.NewTemporaryAccessHandler(temp, logger),
		Certificate: handler.NewCertificateHandler(certs, logger),
		Progress:    handler.NewProgressHandler(prog, logger),
		Webhook:     handler.NewWebhookHandler(cfg.WebhookSecret, ful, logger),
		Admin:       handler.NewAdminHandler(temp, logger),
		Dev:         handler.NewDevHandler(cfg.TestAccess, ents, logger),
	}, router.Middleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Named("ratelimit")),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger.Named("cache")),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
