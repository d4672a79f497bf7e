package api

import (
	"net/http" // HTTP status codes
	"time"     // Reconcile age

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client

	"lucky_spin/internal/apperr" // Error taxonomy
	"lucky_spin/internal/spin"   // Spin engine
)

// PreCreateTicketsRequest is the body of a pool replenishment
type PreCreateTicketsRequest struct {
	Count int `json:"count" binding:"required"` // Number of codes to add
}

// PreCreateTicketsHandler adds fresh ticket codes to a spin's pool
func PreCreateTicketsHandler(svc *spin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		configID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req PreCreateTicketsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperr.Newf(apperr.CodeInvalidRequest, "count is required"))
			return
		}
		codes, err := svc.PreCreateLotteryTickets(c.Request.Context(), configID, req.Count)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"created": len(codes)})
	}
}

// DrawWinnerHandler draws today's winner of one spin
func DrawWinnerHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		configID, ok := idParam(c, "id")
		if !ok {
			return
		}
		result, err := svc.DrawWinner(c.Request.Context(), configID)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateWinners(c.Request.Context(), rdb, configID) // Superseded winners changed
		c.JSON(http.StatusOK, result)
	}
}

// DrawAllHandler draws winners of every active spin
func DrawAllHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := svc.DrawAll(c.Request.Context())
		for _, r := range results {
			invalidateWinners(c.Request.Context(), rdb, r.ConfigurationID)
		}
		if err != nil {
			// Partial success: report what was drawn alongside the failures
			c.JSON(http.StatusMultiStatus, gin.H{"results": results, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// ReconcileHandler compensates spins left pending for longer than olderThan
func ReconcileHandler(svc *spin.Service, olderThan time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.Reconcile(c.Request.Context(), olderThan)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
