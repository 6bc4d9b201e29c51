package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collection-gateway/config"
	httpHandler "collection-gateway/internal/adapter/http/handler"
	pgStorage "collection-gateway/internal/adapter/storage/postgres"
	redisStorage "collection-gateway/internal/adapter/storage/redis"
	"collection-gateway/internal/core/ports"
	"collection-gateway/internal/service"
	"collection-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Collection Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	credHasher := service.NewSHA256CredentialHasher()
	keyGen := service.NewRandomKeyGenerator()

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	keyRepo := pgStorage.NewMerchantKeyRepo(pool)
	vaRepo := pgStorage.NewVirtualAccountRepo(pool)
	ledger := pgStorage.NewBalanceRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool, encSvc)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	methodRepo := pgStorage.NewPaymentMethodRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	methodCache := redisStorage.NewPaymentMethodCache(rdb)

	// Initialize business services
	timeout := cfg.Store.CallTimeout
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))
	methodSvc := service.NewPaymentMethodService(methodRepo, methodCache, cfg.Store.PaymentMethodTTL, timeout, logger.Component(log, "payment_methods"))
	merchantSvc := service.NewMerchantService(
		merchantRepo,
		keyRepo,
		vaRepo,
		ledger,
		credHasher,
		keyGen,
		auditSvc,
		transactor,
		cfg.Collections,
		timeout,
		logger.Component(log, "merchants"),
	)
	txSvc := service.NewTransactionService(
		txRepo,
		vaRepo,
		ledger,
		methodSvc,
		auditSvc,
		keyGen,
		transactor,
		timeout,
		logger.Component(log, "transactions"),
	)
	payoutSvc := service.NewPayoutService(payoutRepo, ledger, auditSvc, keyGen, transactor, cfg.Payout, timeout, logger.Component(log, "payouts"))
	querySvc := service.NewQueryService(merchantRepo, ledger, payoutRepo, txRepo, timeout)
	staffAuthSvc := service.NewStaffAuthService(cfg.Staff, hashSvc, tokenSvc, auditSvc, logger.Component(log, "staff_auth"))

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		MerchantSvc:      merchantSvc,
		TransactionSvc:   txSvc,
		PayoutSvc:        payoutSvc,
		PaymentMethodSvc: methodSvc,
		QuerySvc:         querySvc,
		StaffAuthSvc:     staffAuthSvc,
		SigSvc:           sigSvc,
		NonceStore:       nonceStore,
		TokenSvc:         tokenSvc,
		Settlement:       cfg.Settlement,
		NonceTTL:         cfg.Store.SettlementNonceTTL,
		RateLimitStore:   rateLimitStore,
		HealthCheckers:   []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:         auditSvc,
		Mode:             cfg.Server.Mode,
		Logger:           log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
