// Package api exposes the REST and websocket surface of the chat
// service.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transitdesk/transitdesk/internal/agents"
	"github.com/transitdesk/transitdesk/internal/auth"
	"github.com/transitdesk/transitdesk/internal/chat"
	"github.com/transitdesk/transitdesk/internal/middleware"
	"github.com/transitdesk/transitdesk/internal/realtime"
)

// API bundles the services behind the HTTP handlers.
type API struct {
	Chat   *chat.Service
	Agents *agents.Service
	Hub    *realtime.Hub
	JWT    *auth.JWTManager

	allowedOrigins []string
}

// New creates the API with its dependencies.
func New(chatSvc *chat.Service, agentSvc *agents.Service, hub *realtime.Hub, jwt *auth.JWTManager, allowedOrigins []string) *API {
	return &API{
		Chat:           chatSvc,
		Agents:         agentSvc,
		Hub:            hub,
		JWT:            jwt,
		allowedOrigins: allowedOrigins,
	}
}

// RegisterRoutes mounts all endpoints on the engine. rateLimit is
// requests per hour per principal; zero disables limiting.
func (a *API) RegisterRoutes(r *gin.Engine, rateLimit int) {
	limiter := middleware.NewRateLimiter()
	authRequired := middleware.AgentAuth(a.JWT)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", a.handleWebsocket)

	agentsGroup := r.Group("/api/agents")
	agentsGroup.Use(middleware.RateLimit(limiter, rateLimit))
	{
		agentsGroup.POST("", a.handleCreateAgent)
		agentsGroup.POST("/login", a.handleAgentLogin)
		agentsGroup.GET("/available", a.handleAvailableAgents)
		agentsGroup.GET("", authRequired, a.handleListAgents)
		agentsGroup.GET("/:id", authRequired, a.handleGetAgent)
		agentsGroup.PATCH("/:id", authRequired, a.handleUpdateAgentProfile)
		agentsGroup.PATCH("/:id/status", authRequired, a.handleSetAgentStatus)
		agentsGroup.POST("/:id/logout", authRequired, a.handleAgentLogout)
	}

	chatGroup := r.Group("/api/chat")
	chatGroup.Use(middleware.RateLimit(limiter, rateLimit))
	{
		chatGroup.POST("", a.handleOpenSession)
		chatGroup.GET("/user/:userId", a.handleUserSessions)
		chatGroup.GET("/agent/:agentId", authRequired, a.handleAgentSessions)
		chatGroup.GET("/:chatId", a.handleGetSession)
		chatGroup.POST("/:chatId/messages", a.handlePostMessage)
		chatGroup.PATCH("/:chatId/read", a.handleMarkRead)
		chatGroup.PATCH("/:chatId/close", a.handleCloseSession)
	}
}
