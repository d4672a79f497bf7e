package api

import (
	"strconv" // Path parameter parsing

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging

	"lucky_spin/internal/apperr"     // Error taxonomy
	"lucky_spin/internal/middleware" // Authenticated user lookup
)

// respondError writes err as {"code", "error"} with the status of its code
func respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	status := apperr.HTTPStatus(appErr.Code)
	if appErr.Code == apperr.CodeInternal {
		// Log internal errors with full detail, but hide them from the client
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route
			"error": err.Error(),  // Error message
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"code": appErr.Code, "error": appErr.Message})
}

// currentUser returns the authenticated user or writes 401
func currentUser(c *gin.Context) (string, bool) {
	userID, exists := middleware.UserID(c) // Get userID from context
	// Check if userID exists in context
	if !exists {
		respondError(c, apperr.New(apperr.CodeUnauthorized, "Unauthorized"))
		return "", false
	}
	return userID, true
}

// idParam parses a numeric path parameter or writes 400
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperr.Newf(apperr.CodeInvalidRequest, "invalid %s", name))
		return 0, false
	}
	return uint(id), true
}
