// Package middleware provides gin middleware for agent authentication and
// request rate limiting.
package middleware

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/transitdesk/transitdesk/internal/apierrors"
	"github.com/transitdesk/transitdesk/internal/auth"
)

// debugLog logs only when LOG_LEVEL=debug
func debugLog(format string, v ...interface{}) {
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.Printf(format, v...)
	}
}

// Context keys set by AgentAuth.
const (
	CtxAgentID    = "agent_id"
	CtxAgentEmail = "agent_email"
)

// AgentAuth verifies the bearer token and stores the agent identity on
// the request context.
func AgentAuth(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			apierrors.Error(c, apierrors.CodeUnauthorized)
			c.Abort()
			return
		}

		claims, err := jwt.Verify(token)
		if err != nil {
			debugLog("[AUTH] token rejected for %s: %v", c.FullPath(), err)
			if errors.Is(err, auth.ErrTokenExpired) {
				apierrors.Error(c, apierrors.CodeTokenExpired)
			} else {
				apierrors.Error(c, apierrors.CodeInvalidToken)
			}
			c.Abort()
			return
		}

		c.Set(CtxAgentID, claims.AgentID)
		c.Set(CtxAgentEmail, claims.Email)
		c.Next()
	}
}

// AgentID returns the authenticated agent id from the context, or "".
func AgentID(c *gin.Context) string {
	if v, ok := c.Get(CtxAgentID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// Websocket clients can't set headers from browsers; allow ?token=.
	return c.Query("token")
}
