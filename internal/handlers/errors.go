package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/repository"
)

// respondError translates the service error taxonomy into HTTP statuses.
// Structured failures keep their payloads; storage internals do not leak.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var (
		validation *autherr.ValidationError
		rateLimit  *autherr.RateLimitedError
		forbidden  *autherr.AuthorizationError
		protected  *autherr.ProtectedResourceError
		roleInUse  *autherr.RoleInUseError
		permInUse  *autherr.PermissionInUseError
		persist    *autherr.PersistenceError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Msg})
	case errors.As(err, &rateLimit):
		// Retry-After is delta-seconds on the wire, rounded up so clients
		// never retry a second early.
		c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(rateLimit.RetryAfter.Seconds())), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": rateLimit.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Error()})
	case errors.As(err, &protected):
		c.JSON(http.StatusForbidden, gin.H{"error": protected.Error()})
	case errors.As(err, &roleInUse):
		c.JSON(http.StatusConflict, gin.H{"error": roleInUse.Error(), "activeUsers": roleInUse.ActiveUsers})
	case errors.As(err, &permInUse):
		c.JSON(http.StatusConflict, gin.H{"error": permInUse.Error(), "roles": permInUse.Roles})
	case errors.Is(err, autherr.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, autherr.ErrAccountDisabled), errors.Is(err, autherr.ErrRoleDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, autherr.ErrSessionNotFound),
		errors.Is(err, autherr.ErrSessionExpired),
		errors.Is(err, autherr.ErrInvalidRefreshToken),
		errors.Is(err, autherr.ErrAuthenticationRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrRoleNotFound),
		errors.Is(err, repository.ErrPermissionNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &persist):
		h.log.Error().Err(err).Msg("storage failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	default:
		h.log.Error().Err(err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
