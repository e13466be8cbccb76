package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	database "github.com/polkaapp/polka-api/app/db"
	appLogger "github.com/polkaapp/polka-api/app/logger"
	"github.com/polkaapp/polka-api/app/observability/metrics"
	"github.com/polkaapp/polka-api/app/tracer"
	"github.com/polkaapp/polka-api/config"
	"github.com/polkaapp/polka-api/internal/api/auth"
	"github.com/polkaapp/polka-api/internal/api/catalog"
	"github.com/polkaapp/polka-api/internal/api/friends"
	"github.com/polkaapp/polka-api/internal/api/oauth"
	"github.com/polkaapp/polka-api/internal/api/payments"
	"github.com/polkaapp/polka-api/internal/api/user"
	"github.com/polkaapp/polka-api/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Database ---
	connectionURL, err := database.ConnectionURL(&cfg)
	if err != nil {
		logger.Error("Failed to build database URL", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(connectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(connectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Observability ---
	metricsHandler, err := tracer.InitTracingAndMetrics()
	if err != nil {
		logger.Error("Failed to initialize tracing and metrics", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics()
	appMetrics := metrics.Get()

	// --- Dependency injection ---
	tokens, err := auth.NewTokenIssuer(cfg.JWT)
	if err != nil {
		logger.Error("Failed to initialize token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	resolvers := oauth.NewRegistry(cfg.OAuth, nil)
	webflow := oauth.NewWebFlow(cfg.OAuth)

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, resolvers, tokens, hasher, &cfg, logger)
	authHandler := auth.NewAuthHandler(authService, webflow, appMetrics, logger)
	authMiddleware := auth.NewMiddleware(tokens, appMetrics, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, authRepo, logger)
	userHandler := user.NewUserHandler(userService, logger)

	catalogRepo := catalog.NewPostgresCatalogRepo(pool, logger)
	catalogService := catalog.NewCatalogService(catalogRepo, logger)
	catalogHandler := catalog.NewCatalogHandler(catalogService, logger)

	friendsRepo := friends.NewPostgresFriendsRepo(pool, logger)
	friendsService := friends.NewFriendsService(friendsRepo, logger)
	friendsHandler := friends.NewFriendsHandler(friendsService, logger)

	paymentsRepo := payments.NewPostgresPaymentsRepo(pool, logger)
	paymentsProvider := payments.NewYooKassaClient(cfg.Payments)
	paymentsService := payments.NewPaymentsService(paymentsRepo, paymentsProvider, logger)
	paymentsHandler := payments.NewPaymentsHandler(paymentsService, logger)

	// --- Router ---
	apiRouter := router.SetupRouter(&router.Config{
		AuthHandler:            authHandler,
		UserHandler:            userHandler,
		CatalogHandler:         catalogHandler,
		FriendsHandler:         friendsHandler,
		PaymentsHandler:        paymentsHandler,
		AuthenticateMiddleware: authMiddleware.Authenticate,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	// The webhook allowlist checks the TCP peer, so capture it before RealIP
	// rewrites RemoteAddr from forwarding headers.
	mux.Use(payments.CapturePeerAddr)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(60 * time.Second))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", apiRouter)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := chi.NewMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupLogger configures the application logger: colored tint output in
// development, JSON in anything else.
func setupLogger(mode string) *slog.Logger {
	if mode == "development" || mode == "" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
