package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client

	"lucky_spin/internal/spin"  // Spin engine
	"lucky_spin/internal/utils" // Cache keys
)

// SpinHandler runs one spin for the authenticated user
func SpinHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		configID, ok := idParam(c, "id")
		if !ok {
			return
		}
		result, err := svc.Spin(c.Request.Context(), configID, userID)
		// Even a compensated spin wrote cost and refund transactions
		invalidateWallet(c.Request.Context(), rdb, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

// QuotaHandler returns the authenticated user's remaining spins for today
func QuotaHandler(svc *spin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		configID, ok := idParam(c, "id")
		if !ok {
			return
		}
		quota, err := svc.GetQuota(c.Request.Context(), configID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quota)
	}
}

// ClaimHandler claims the winning ticket for the authenticated user
func ClaimHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		configID, ok := idParam(c, "id")
		if !ok {
			return
		}
		ticket, err := svc.Claim(c.Request.Context(), userID, configID)
		if err != nil {
			respondError(c, err)
			return
		}
		invalidateWinners(c.Request.Context(), rdb, configID) // Winners list changed
		c.JSON(http.StatusOK, gin.H{"message": "Ticket claimed", "ticket": ticket})
	}
}

// SummaryHandler totals today's rewards unless the user is part way through the allowance
func SummaryHandler(svc *spin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		configID, ok := idParam(c, "id")
		if !ok {
			return
		}
		summary, err := svc.Summary(c.Request.Context(), userID, configID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// WinnersHandler lists the claimed winners of a spin, cached for a minute
func WinnersHandler(svc *spin.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		configID, ok := idParam(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.WinnersKey(configID) // Cache key for winners
		var winners []spin.WinnerEntry
		// If found in cache, return it
		if cacheGet(ctx, rdb, cacheKey, &winners) {
			c.JSON(http.StatusOK, gin.H{"winners": winners, "cached": true})
			return
		}
		winners, err := svc.Winners(ctx, configID)
		if err != nil {
			respondError(c, err)
			return
		}
		cacheSet(ctx, rdb, cacheKey, winners)
		c.JSON(http.StatusOK, gin.H{"winners": winners, "cached": false})
	}
}

// HistoryHandler lists the user's spins and the winners across a giveaway
func HistoryHandler(svc *spin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		giveawayID, ok := idParam(c, "id")
		if !ok {
			return
		}
		history, err := svc.History(c.Request.Context(), userID, giveawayID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history})
	}
}

// ActiveTicketsHandler lists the user's tickets in open campaigns
func ActiveTicketsHandler(svc *spin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		tickets, err := svc.ActiveTickets(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tickets": tickets})
	}
}
