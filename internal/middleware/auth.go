package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"doctrack/api/internal/autherr"
	"doctrack/api/internal/config"
	"doctrack/api/internal/security"
	"doctrack/api/internal/service"
)

// Context keys set by Auth and reused by the permission gate and handlers.
const (
	CtxUser    = "current_user"
	CtxClaims  = "access_claims"
	CtxSession = "current_session"
)

// Auth is the token-bearing authentication entry point: it decodes the
// bearer token, resolves its jti to an active session and attaches the
// caller to the request.
func Auth(cfg config.AuthConfig, users service.UserStore, sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.AccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		session, err := sessions.Validate(c.Request.Context(), claims.TokenID())
		if err != nil {
			code := "session_not_found"
			if err == autherr.ErrSessionExpired {
				code = "session_expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
			return
		}
		// The subject and jti are minted together; a session resolved for a
		// different user means the token does not belong to it.
		if session.UserID != claims.UserID() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			return
		}

		c.Set(CtxUser, user)
		c.Set(CtxClaims, *claims)
		c.Set(CtxSession, session)

		c.Next()
	}
}
