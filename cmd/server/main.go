package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/reliancemove/service-quote/internal/application"
	"github.com/reliancemove/service-quote/internal/backend"
	"github.com/reliancemove/service-quote/internal/common/database"
	"github.com/reliancemove/service-quote/internal/common/kafka"
	"github.com/reliancemove/service-quote/internal/common/logger"
	"github.com/reliancemove/service-quote/internal/common/middleware"
	"github.com/reliancemove/service-quote/internal/config"
	bookingDomain "github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/journey"
	quoteEvents "github.com/reliancemove/service-quote/internal/events"
	"github.com/reliancemove/service-quote/internal/handler"
	"github.com/reliancemove/service-quote/internal/maps"
	"github.com/reliancemove/service-quote/internal/payment"
	"github.com/reliancemove/service-quote/internal/repository"
)

const serviceName = "service-quote"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-quote",
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.BackendBaseURL),
	)

	checks := map[string]handler.HealthCheck{}

	// Connect to the quote ledger database
	var quoteRepo bookingDomain.QuoteRepository
	if cfg.DBConfig.Enabled() {
		db, err := database.Connect(database.PostgresConfig{
			Host:     cfg.DBConfig.Host,
			Port:     cfg.DBConfig.Port,
			User:     cfg.DBConfig.User,
			Password: cfg.DBConfig.Password,
			DBName:   cfg.DBConfig.DBName,
			SSLMode:  cfg.DBConfig.SSLMode,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := db.AutoMigrate(&repository.QuoteModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed")
		quoteRepo = repository.NewGormQuoteRepository(db)
		checks["database"] = dbCheck(db)
	} else {
		log.Info("quote ledger disabled: no database configured")
	}

	// Initialize the lookup cache
	var lookupCache application.LookupCache
	if cfg.RedisConfig.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer func() { _ = rdb.Close() }()
		lookupCache = repository.NewRedisLookupCache(rdb, serviceName+":")
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		lookupCache = repository.NewMemoryLookupCache()
	}

	// Initialize Kafka producer
	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.KafkaConfig.Enabled() {
		producer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	// Initialize outbound clients
	backendClient := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, log)

	var directions journey.Provider
	if cfg.GoogleAPIKey != "" {
		directions = maps.NewDirectionsClient(cfg.DirectionsBaseURL, cfg.GoogleAPIKey, cfg.BackendTimeout, log)
	} else {
		log.Info("server-side directions disabled: routes come from the browser")
	}

	var verifier application.CheckoutVerifier
	if cfg.StripeSecretKey != "" {
		verifier = payment.NewStripeVerifier(cfg.StripeSecretKey, nil, log)
	} else {
		log.Info("payment confirmation disabled: no stripe key configured")
	}

	// Initialize application services
	lookupService := application.NewLookupService(
		backendClient,
		lookupCache,
		cfg.LookupCacheTTL,
		rate.NewLimiter(rate.Limit(cfg.LookupRatePerSec), cfg.LookupBurst),
		log,
	)
	sessions := application.NewSessionManager(application.SessionDeps{
		Pricing:        backendClient,
		Distance:       backendClient,
		Directions:     directions,
		Lookup:         lookupService,
		DebounceWindow: cfg.DebounceWindow,
	}, cfg.SessionTTL, log)
	defer sessions.CloseAll()

	quoteService := application.NewQuoteService(backendClient, quoteRepo, publisher, verifier, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sessions.Run(ctx, cfg.SweepInterval)

	// Initialize and start payment event consumer in a goroutine
	if cfg.KafkaConfig.Enabled() {
		groupID := cfg.KafkaConfig.GroupPrefix + serviceName
		paymentConsumer := quoteEvents.NewPaymentEventConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			quoteService,
			sessions,
			log,
		)
		defer func() { _ = paymentConsumer.Close() }()

		go func() {
			log.Info("starting payment event consumer")
			if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("payment event consumer error", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	binding.EnableDecoderDisallowUnknownFields = true
	router := gin.New()

	clientLimiter := middleware.NewIPRateLimiter(cfg.ClientRatePerSec, cfg.ClientBurst)
	go pruneLimiter(ctx, clientLimiter)

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	handler.NewHealthHandler(serviceName, checks).RegisterRoutes(router)

	// Register routes
	api := router.Group("", clientLimiter.Middleware(log))
	handler.NewSessionHandler(sessions, quoteService, log).RegisterRoutes(api)
	handler.NewStreamHandler(sessions, cfg.CORSOrigins, log).RegisterRoutes(api)

	// Register admin handler routes
	if cfg.AdminToken != "" {
		handler.NewAdminQuoteHandler(quoteService).RegisterRoutes(api, cfg.AdminToken)
	} else {
		log.Info("admin routes disabled: no admin token configured")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-quote...")

	// Cancel the consumer and sweeper context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-quote stopped")
}

func dbCheck(db *gorm.DB) handler.HealthCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func pruneLimiter(ctx context.Context, l *middleware.IPRateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune(10 * time.Minute)
		}
	}
}
