// Package main is the entry point for the gate access API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/campusgate/gatewatch/internal/accesslog"
	"github.com/campusgate/gatewatch/internal/alert"
	"github.com/campusgate/gatewatch/internal/api"
	"github.com/campusgate/gatewatch/internal/auth"
	"github.com/campusgate/gatewatch/internal/broadcast"
	"github.com/campusgate/gatewatch/internal/config"
	"github.com/campusgate/gatewatch/internal/health"
	"github.com/campusgate/gatewatch/internal/identity"
	"github.com/campusgate/gatewatch/internal/middleware"
	"github.com/campusgate/gatewatch/internal/photo"
	"github.com/campusgate/gatewatch/internal/tracing"
	"github.com/campusgate/gatewatch/internal/vehicle"
	"github.com/campusgate/gatewatch/internal/verify"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("GateWatch API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "configuration error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Tracing
	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "gatewatch-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSampling,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	// Persistence
	var (
		identityRepo identity.Repository
		vehicleRepo  vehicle.Repository
		logRepo      accesslog.Repository
		alertRepo    alert.Repository
		dbChecker    api.HealthChecker
	)
	if cfg.StoreBackend == config.StorePostgres {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		identityRepo = identity.NewPostgresRepository(db)
		vehicleRepo = vehicle.NewPostgresRepository(db)
		logRepo = accesslog.NewPostgresRepository(db)
		alertRepo = alert.NewPostgresRepository(db)
		dbChecker = health.NewDBChecker(db)
		logger.Info("using postgres store")
	} else {
		identityRepo = identity.NewInMemoryRepository()
		vehicleRepo = vehicle.NewInMemoryRepository()
		logRepo = accesslog.NewInMemoryRepository()
		alertRepo = alert.NewInMemoryRepository()
		logger.Info("using in-memory store")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	mwMetrics := middleware.NewMetrics()
	verifyMetrics := verify.NewMetrics()
	broadcastMetrics := broadcast.NewMetrics()
	for name, m := range map[string]interface {
		Register(prometheus.Registerer) error
	}{
		"middleware": mwMetrics,
		"verify":     verifyMetrics,
		"broadcast":  broadcastMetrics,
	} {
		if err := m.Register(registry); err != nil {
			logger.Error("failed to register metrics", "component", name, "error", err)
			os.Exit(1)
		}
	}

	// Rate limiting, backed by Redis when configured
	var (
		rateLimitStore middleware.RateLimitStore
		redisChecker   api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(mwMetrics)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("rate limiting backed by redis")
	} else {
		inMem := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				inMem.Cleanup()
			}
		}()
		rateLimitStore = inMem
	}

	// Core pipeline
	broadcaster := broadcast.NewEventBroadcaster(broadcastMetrics, logger)
	verifier := verify.NewVerifier(identityRepo, vehicleRepo, logRepo, alertRepo, broadcaster, verifyMetrics, logger)
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Badge photo storage (optional)
	var photoHandlers *api.PhotoHandlers
	if cfg.PhotoStorageConfigured() {
		photoService, err := photo.NewService(photo.ServiceConfig{
			BucketName:      cfg.PhotoBucketName,
			AccessKeyID:     cfg.PhotoAccessKeyID,
			SecretAccessKey: cfg.PhotoSecretAccessKey,
			Endpoint:        cfg.PhotoEndpoint,
			MaxSizeMB:       cfg.PhotoMaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to initialize photo storage", "error", err)
			os.Exit(1)
		}
		photoHandlers = api.NewPhotoHandlers(identityRepo, photoService)
		logger.Info("photo storage configured", "bucket", cfg.PhotoBucketName)
	}

	mux := api.NewRouter(api.RouterConfig{
		Verify:       api.NewVerifyHandlers(verifier),
		AccessLogs:   api.NewAccessLogHandlers(logRepo),
		Alerts:       api.NewAlertHandlers(alertRepo),
		Identities:   api.NewIdentityHandlers(identityRepo),
		Vehicles:     api.NewVehicleHandlers(vehicleRepo, identityRepo),
		Auth:         api.NewAuthHandlers(jwtService, cfg.DashboardUser, cfg.DashboardPassword),
		Photos:       photoHandlers,
		WS:           api.NewWSHandlers(broadcaster, cfg.CORSAllowedOrigins),
		Health:       api.NewHealthHandlers(api.HealthHandlersConfig{DBChecker: dbChecker, RedisChecker: redisChecker}),
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RequireStaff: auth.RequireStaff(jwtService),
		LoginLimiter: middleware.RateLimiter(rateLimitStore, middleware.DefaultAuthLimit(), middleware.IPKeyFunc()),
	})

	// Middleware chain: RequestID -> Tracing -> Logging -> CORS ->
	// RateLimiter -> HTTPMetrics -> mux
	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(mwMetrics)(handler)
	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.Logging(logger)(handler)
	if tracingProvider.IsEnabled() {
		handler = middleware.Tracing("gatewatch-api")(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
