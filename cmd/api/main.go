package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nicegilbz/stuhouses-sub000/internal/auth"
	"github.com/nicegilbz/stuhouses-sub000/internal/config"
	"github.com/nicegilbz/stuhouses-sub000/internal/database"
	"github.com/nicegilbz/stuhouses-sub000/internal/handlers"
	"github.com/nicegilbz/stuhouses-sub000/internal/listing"
	"github.com/nicegilbz/stuhouses-sub000/internal/logging"
	"github.com/nicegilbz/stuhouses-sub000/internal/payments"
	"github.com/nicegilbz/stuhouses-sub000/internal/ratelimit"
	"github.com/nicegilbz/stuhouses-sub000/internal/scheduler"
	"github.com/nicegilbz/stuhouses-sub000/internal/search"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	configPath := getEnv("CONFIG_PATH", "/app/config/config.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}
	applyEnvOverrides(appConfig)

	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := appConfig.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.String("path", configPath), zap.Error(err))
	}

	gormDB, err := openDatabase(appConfig)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.String("type", appConfig.Database.Type), zap.Error(err))
	}
	defer gormDB.Close()

	if err := gormDB.InitSchema(); err != nil {
		logger.Fatal("failed to initialize schema", zap.Error(err))
	}
	db := gormDB.DB()
	logger.Info("database ready", zap.String("type", appConfig.Database.Type))

	// Search stays optional; an unreachable index only leaves it stale
	var (
		indexer   listing.Indexer
		reindexer handlers.Reindexer
	)
	if ms := appConfig.Search.Meilisearch; ms.Enabled {
		searchClient := search.NewSearchClient(ms.Host, ms.APIKey, ms.Index)
		if err := searchClient.InitIndex(); err != nil {
			logger.Warn("failed to initialize search index", zap.String("host", ms.Host), zap.Error(err))
		}
		indexer = searchClient
		reindexer = searchClient
	}

	breaker := payments.NewCircuitBreaker(appConfig.Payments.BreakerThreshold, appConfig.Payments.GetBreakerReset())
	processor := payments.NewGuardedProcessor(
		payments.NewStripeProcessor(appConfig.Stripe.SecretKey, appConfig.Stripe.WebhookSecret),
		breaker,
		logger,
	)
	timeout := appConfig.Payments.GetProcessorTimeout()

	rateLimiter := ratelimit.NewRateLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.RequestsPerDay,
		appConfig.RateLimit.Enabled,
	)
	logger.Info("rate limiter initialized",
		zap.Int("per_minute", appConfig.RateLimit.RequestsPerMinute),
		zap.Int("per_hour", appConfig.RateLimit.RequestsPerHour),
		zap.Int("per_day", appConfig.RateLimit.RequestsPerDay),
		zap.Bool("enabled", appConfig.RateLimit.Enabled))

	appScheduler := scheduler.NewScheduler(db, appConfig.Maintenance, logger)
	if err := appScheduler.Start(); err != nil {
		logger.Warn("failed to start scheduler", zap.Error(err))
	}
	defer appScheduler.Stop()

	stopPruning := pruneRateLimiter(rateLimiter, time.Hour)
	defer stopPruning()

	router := handlers.Router{
		Tokens:      auth.NewTokenManager(appConfig.Auth.JWTSecret, appConfig.Auth.Issuer, tokenTTL),
		Limiter:     rateLimiter,
		Properties:  handlers.NewPropertyHandler(listing.NewService(db, indexer, logger), logger),
		Bookings:    handlers.NewBookingHandler(db, logger),
		Payments:    handlers.NewPaymentHandler(payments.NewGateway(db, processor, timeout, appConfig.Payments.DefaultCurrency, logger), logger),
		Webhooks:    handlers.NewWebhookHandler(payments.NewReconciler(db, processor, logger), logger),
		Admin:       handlers.NewAdminHandler(db, payments.NewRefundService(db, processor, timeout, logger), breaker, rateLimiter, reindexer, logger),
		Logger:      logger,
		LogRequests: appConfig.Logging.LogRequests,
	}

	if !appConfig.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	corsConfig := cors.Config{
		AllowOrigins:     appConfig.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		// bearer tokens only, so no credentials are needed for open CORS
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	engine := router.Engine(cors.New(corsConfig))

	srv := &http.Server{
		Addr:         ":" + appConfig.Server.Port,
		Handler:      engine,
		ReadTimeout:  appConfig.Server.GetReadTimeout(),
		WriteTimeout: appConfig.Server.GetWriteTimeout(),
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openDatabase(cfg *config.Config) (*database.GormDB, error) {
	level := database.ParseLogLevel(cfg.Database.LogLevel)

	if cfg.Database.Type == "postgres" {
		pg := cfg.Database.Postgres
		return database.NewPostgresGormDB(
			getEnvOrConfig(pg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portString(pg.Port), "DB_PORT", "5432"),
			getEnvOrConfig(pg.User, "DB_USER", "stuhouses"),
			getEnvOrConfig(pg.Password, "DB_PASSWORD", ""),
			getEnvOrConfig(pg.Database, "DB_NAME", "stuhouses"),
			pg.SSLMode,
			level,
		)
	}

	my := cfg.Database.MySQL
	return database.NewGormDB(
		getEnvOrConfig(my.Host, "DB_HOST", "mysql"),
		getEnvOrConfig(portString(my.Port), "DB_PORT", "3306"),
		getEnvOrConfig(my.User, "DB_USER", "stuhouses"),
		getEnvOrConfig(my.Password, "DB_PASSWORD", ""),
		getEnvOrConfig(my.Database, "DB_NAME", "stuhouses"),
		level,
	)
}

// applyEnvOverrides lets the environment win over the file for secrets
// and deployment switches. Connection settings use getEnvOrConfig instead.
func applyEnvOverrides(cfg *config.Config) {
	cfg.Database.Type = getEnv("DB_TYPE", cfg.Database.Type)
	cfg.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", cfg.Stripe.SecretKey)
	cfg.Stripe.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", cfg.Stripe.WebhookSecret)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Search.Meilisearch.APIKey = getEnv("MEILISEARCH_KEY", cfg.Search.Meilisearch.APIKey)
	cfg.Search.Meilisearch.Host = getEnv("MEILISEARCH_HOST", cfg.Search.Meilisearch.Host)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
}

// pruneRateLimiter drops idle limiter clients on an interval
func pruneRateLimiter(rl *ratelimit.RateLimiter, every time.Duration) func() {
	ticker := time.NewTicker(every)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Prune()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

func portString(port int) string {
	if port <= 0 {
		return ""
	}
	return strconv.Itoa(port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}
