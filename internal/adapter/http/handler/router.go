package handler

import (
	"time"

	"collection-gateway/config"
	"collection-gateway/internal/adapter/http/middleware"
	redisStore "collection-gateway/internal/adapter/storage/redis"
	"collection-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20 // 1 MB request body limit

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	MerchantSvc      ports.MerchantService
	TransactionSvc   ports.TransactionService
	PayoutSvc        ports.PayoutService
	PaymentMethodSvc ports.PaymentMethodService
	QuerySvc         ports.QueryService
	StaffAuthSvc     ports.StaffAuthService
	SigSvc           ports.SignatureService
	NonceStore       ports.NonceStore
	TokenSvc         ports.TokenService
	Settlement       config.SettlementConfig
	NonceTTL         time.Duration
	RateLimitStore   *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = success audit disabled
	Mode             string             // gin mode; empty keeps the current mode
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	merchantHandler := NewMerchantHandler(deps.MerchantSvc, deps.QuerySvc)
	paymentHandler := NewPaymentHandler(deps.TransactionSvc, deps.PaymentMethodSvc)
	payoutHandler := NewPayoutHandler(deps.PayoutSvc)
	staffHandler := NewStaffHandler(deps.StaffAuthSvc, deps.QuerySvc)

	merchantAuth := middleware.MerchantAuth(deps.MerchantSvc)
	settlementAuth := middleware.SettlementAuth(
		deps.SigSvc,
		deps.NonceStore,
		deps.Settlement.ProcessorSecret,
		deps.Settlement.MaxClockDrift,
		deps.NonceTTL,
		deps.Logger,
	)
	staffAuth := middleware.StaffAuth(deps.TokenSvc)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	v1.POST("/merchants", rl("registration"), merchantHandler.Register)
	v1.GET("/payment-methods", rl("checkout"), paymentHandler.ListPaymentMethods)
	v1.POST("/payments/:reference/pay", rl("checkout"), paymentHandler.Capture)
	v1.POST("/staff/login", rl("staff_login"), staffHandler.Login)

	// --- Processor HMAC-authenticated route ---
	v1.POST("/payments/card-settlement", rl("settlement"), settlementAuth, paymentHandler.SettleCard)

	// --- Merchant key-authenticated routes ---
	v1.POST("/payments/initialize", merchantAuth, rl("merchant_api"), paymentHandler.Initialize)
	v1.GET("/balance", merchantAuth, rl("merchant_api"), merchantHandler.GetBalance)
	v1.GET("/transactions/mine", merchantAuth, rl("merchant_api"), merchantHandler.ListTransactions)

	payouts := v1.Group("/payouts", merchantAuth)
	{
		payouts.POST("", rl("merchant_api"), payoutHandler.RequestPayout)
		payouts.GET("/mine", rl("merchant_api"), merchantHandler.ListPayouts)
	}

	// --- Staff JWT-authenticated routes (back office) ---
	staff := v1.Group("/staff", staffAuth)
	{
		staff.GET("/merchants", rl("staff"), staffHandler.ListMerchants)
		staff.GET("/merchants/:id", rl("staff"), staffHandler.GetMerchant)
		staff.GET("/merchants/:id/balance", rl("staff"), staffHandler.GetMerchantBalance)
		staff.GET("/payouts", rl("staff"), staffHandler.ListPayouts)
		staff.GET("/payouts/:id", rl("staff"), staffHandler.GetPayout)
		staff.GET("/transactions", rl("staff"), staffHandler.ListTransactions)
	}

	return r
}
