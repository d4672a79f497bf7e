package api

import (
	"time" // Reconcile age

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client

	"lucky_spin/internal/middleware" // Auth middleware
	"lucky_spin/internal/spin"       // Spin engine
)

// RouterConfig carries what the routes need besides the engine
type RouterConfig struct {
	JWTSecret      string        // Bearer token secret
	ReconcileAfter time.Duration // Age at which a pending spin is compensated
}

// RegisterRoutes mounts every endpoint on r. rdb may be nil, which disables caching.
func RegisterRoutes(r *gin.Engine, svc *spin.Service, rdb *redis.Client, cfg RouterConfig) {
	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)

	// Spin routes (protected by JWT)
	spins := r.Group("/spins", auth)
	spins.POST("/:id/spin", SpinHandler(svc, rdb))             // Spin endpoint
	spins.GET("/:id/quota", QuotaHandler(svc))                 // Remaining spins endpoint
	spins.POST("/:id/claim", ClaimHandler(svc, rdb))           // Claim endpoint
	spins.GET("/:id/summary", SummaryHandler(svc))             // Daily summary endpoint
	spins.GET("/:id/winners", WinnersHandler(svc, rdb))        // Winners endpoint
	r.GET("/giveaways/:id/history", auth, HistoryHandler(svc)) // History endpoint
	r.GET("/tickets/active", auth, ActiveTicketsHandler(svc))  // Active tickets endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet", auth)
	walletGroup.POST("", CreateWalletHandler(svc, rdb))                      // Create wallet endpoint
	walletGroup.GET("", GetWalletHandler(svc, rdb))                          // Get wallet endpoint
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(svc, rdb)) // Transaction history endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", auth, middleware.AdminOnlyMiddleware())
	adminGroup.POST("/spins/:id/tickets", PreCreateTicketsHandler(svc))      // Pool replenishment endpoint
	adminGroup.POST("/spins/:id/draw", DrawWinnerHandler(svc, rdb))          // Single draw endpoint
	adminGroup.POST("/spins/draw", DrawAllHandler(svc, rdb))                 // Draw all endpoint
	adminGroup.POST("/reconcile", ReconcileHandler(svc, cfg.ReconcileAfter)) // Reconcile endpoint
	adminGroup.POST("/wallets/:userId/deposit", DepositHandler(svc, rdb))    // Deposit endpoint
}
