package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"studentpay-backend/internal/auth"
	"studentpay-backend/internal/cache"
	"studentpay-backend/internal/config"
	"studentpay-backend/internal/database"
	"studentpay-backend/internal/db"
	"studentpay-backend/internal/gateway"
	"studentpay-backend/internal/handlers"
	"studentpay-backend/internal/health"
	h "studentpay-backend/internal/http"
	"studentpay-backend/internal/logging"
	"studentpay-backend/internal/mail"
	"studentpay-backend/internal/middleware"
	"studentpay-backend/internal/receipt"
	"studentpay-backend/internal/repositories"
	"studentpay-backend/internal/services"
	"studentpay-backend/internal/storage"
)

const shutdownTimeout = 20 * time.Second

func main() {
	migrationsDir := flag.String("migrations", database.DefaultMigrationsDir, "directory holding the numbered .sql migrations")
	skipMigrations := flag.Bool("skip-migrations", false, "start without applying pending migrations")
	flag.Parse()

	// log level comes from config, so config errors go through a default logger
	cfg, cfgErr := config.Load()
	level := "info"
	if cfg != nil {
		level = cfg.Server.LogLevel
	}

	logger, err := logging.NewProduction(level)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfgErr != nil {
		logger.Fatal(ctx, "config load failed", zap.Error(cfgErr))
	}

	// Database
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "database unavailable", zap.Error(err))
	}
	defer pool.Close()

	if !*skipMigrations {
		if err := database.NewMigrator(pool, *migrationsDir, logger).RunMigrations(ctx); err != nil {
			logger.Fatal(ctx, "migrations failed", zap.Error(err))
		}
	}

	// Redis is optional; a disabled cache falls through to postgres
	redisCache, err := cache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn(ctx, "redis unavailable, caching disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer redisCache.Close()

	// Repositories
	departmentRepo := repositories.NewDepartmentRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	transactionRepo := repositories.NewTransactionRepository(pool)

	// External services
	provider, banks, err := gateway.New(cfg, nil, logger)
	if err != nil {
		logger.Fatal(ctx, "payment gateway init failed", zap.Error(err))
	}

	objectStore, err := storage.NewS3Storage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal(ctx, "object storage init failed", zap.Error(err))
	}

	dispatcher := mail.NewDispatcher(mail.NewSMTPMailer(cfg.Mail), cfg.Mail.QueueSize, logger)
	dispatcher.Start()
	if cfg.Mail.Host == "" {
		logger.Warn(ctx, "SMTP_HOST not set, outgoing mail will fail")
	}

	// Receipt pipeline
	images := receipt.NewImageLoader(nil, cfg.Receipt.ImageTimeout, logger)
	integrity := receipt.NewIntegrity(cfg.Server.SiteURL)
	composer := receipt.NewComposer(images, integrity, receipt.ComposerConfig{
		SchoolLogoPath: cfg.Receipt.SchoolLogoPath,
		FontPath:       cfg.Receipt.FontPath,
	}, logger)
	verifier := receipt.NewVerifier(transactionRepo, redisCache, logger)

	// Services
	jwtManager := auth.NewJWTManager(cfg)
	bankService := services.NewBankService(banks, redisCache, logger)
	departmentService := services.NewDepartmentService(departmentRepo, bankService, jwtManager, objectStore, dispatcher, cfg.Server.SiteURL, logger)
	paymentService := services.NewPaymentService(paymentRepo, departmentRepo, redisCache, logger)
	transactionService := services.NewTransactionService(provider, transactionRepo, paymentRepo, departmentRepo, callbackURL(cfg), logger)
	receiptService := services.NewReceiptService(provider, transactionRepo, paymentRepo, departmentRepo, composer, objectStore, dispatcher, logger)

	// Handlers
	receiptHandler := handlers.NewReceiptHandler(verifier, receiptService)
	departmentHandler := handlers.NewDepartmentHandler(departmentService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	bankHandler := handlers.NewBankHandler(bankService)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool, redisCache))

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, departmentRepo)

	clientIP, err := middleware.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Fatal(ctx, "invalid trusted proxies", zap.Error(err))
	}
	verifyLimiter := middleware.NewRateLimiter(cfg.RateLimit.VerifyRPS, cfg.RateLimit.VerifyBurst, clientIP)
	limiterStop := make(chan struct{})
	verifyLimiter.StartCleanup(time.Minute, limiterStop)

	router := h.NewRouter(
		receiptHandler,
		departmentHandler,
		paymentHandler,
		transactionHandler,
		bankHandler,
		healthHandler,
		authMiddleware,
		verifyLimiter,
		logger,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info(ctx, "server listening", zap.String("addr", srv.Addr), zap.String("provider", provider.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
	}
	close(limiterStop)
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "mail queue not drained", zap.Error(err))
	}
}

// callbackURL is where the provider redirects after checkout; it lands on /api/pay/verify
func callbackURL(cfg *config.Config) string {
	var configured string
	switch strings.ToLower(cfg.Payment.Provider) {
	case gateway.ProviderRazorpay:
		configured = cfg.Payment.Razorpay.CallbackURL
	default:
		configured = cfg.Payment.Paystack.CallbackURL
	}
	if configured != "" {
		return configured
	}
	return strings.TrimRight(cfg.Server.SiteURL, "/") + "/api/pay/verify"
}
