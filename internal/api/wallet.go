package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library

	"lucky_spin/internal/apperr" // Error taxonomy
	"lucky_spin/internal/domain" // Importing domain models
	"lucky_spin/internal/spin"   // Wallet operations
	"lucky_spin/internal/utils"  // Utility functions
)

// DepositRequest represents a deposit request
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"` // Deposit amount
}

// CreateWalletHandler creates a new wallet for the authenticated user
func CreateWalletHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		wallet, err := svc.CreateWallet(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateWallet(c.Request.Context(), rdb, userID) // Invalidate wallet cache
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": wallet})
	}
}

// GetWalletHandler returns the authenticated user's wallet, cached for a minute
func GetWalletHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.WalletKey(userID) // Cache key for wallet
		var cached domain.Wallet
		// If found in cache, return it
		if cacheGet(ctx, rdb, cacheKey, &cached) {
			c.JSON(http.StatusOK, gin.H{"wallet": cached, "cached": true})
			return
		}
		// If not in cache, fetch from the store
		wallet, err := svc.Wallet(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		cacheSet(ctx, rdb, cacheKey, wallet)                            // Cache the wallet
		c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": false}) // Return wallet info
	}
}

// GetTransactionHistoryHandler returns the user's paginated wallet journal
func GetTransactionHistoryHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}

		ctx := c.Request.Context()
		cacheKey := utils.TxHistoryKey(userID, page, pageSize) // Redis cache key
		var cached spin.TransactionPage
		// Try to get from cache
		if cacheGet(ctx, rdb, cacheKey, &cached) {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}

		result, err := svc.Transactions(ctx, userID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		cacheSet(ctx, rdb, cacheKey, result) // Cache the page
		c.JSON(http.StatusOK, gin.H{
			"transactions": result.Transactions, // Transactions, newest first
			"page":         result.Page,         // Current page
			"page_size":    result.PageSize,     // Page size
			"total":        result.Total,        // Total transactions
			"total_pages":  result.TotalPages,   // Total pages
			"cached":       false,               // Not from cache
		})
	}
}

// DepositHandler lets an admin credit points to any user's wallet
func DepositHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId") // Target wallet owner
		var req DepositRequest      // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.Newf(apperr.CodeInvalidRequest, "Invalid amount"))
			return
		}
		wallet, err := svc.Deposit(c.Request.Context(), userID, req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		adminID, _ := currentUser(c)
		logrus.WithFields(logrus.Fields{
			"admin_id": adminID,    // Acting admin
			"user_id":  userID,     // Wallet owner
			"amount":   req.Amount, // Deposit amount
		}).Info("Admin deposit")
		invalidateWallet(c.Request.Context(), rdb, userID) // Invalidate wallet and history cache
		c.JSON(http.StatusOK, gin.H{"message": "Deposit successful", "wallet": wallet})
	}
}
