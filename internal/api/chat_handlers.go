package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transitdesk/transitdesk/internal/apierrors"
	"github.com/transitdesk/transitdesk/internal/chat"
	"github.com/transitdesk/transitdesk/internal/repository"
)

// handleOpenSession handles POST /api/chat. It routes the request to an
// eligible agent; "no agent available" is an expected outcome the client
// should retry later, not a fault.
func (a *API) handleOpenSession(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		Topic  string `json:"topic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "userId is required")
		return
	}

	session, err := a.Chat.OpenSession(req.UserID, req.Topic)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrNoEligibleAgent):
			apierrors.Error(c, apierrors.CodeNoAgentAvailable)
		case errors.Is(err, chat.ErrMissingUserID):
			apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "userId is required")
		default:
			apierrors.Error(c, apierrors.CodeInternalError)
		}
		return
	}
	c.JSON(http.StatusCreated, session)
}

// handleUserSessions handles GET /api/chat/user/:userId.
func (a *API) handleUserSessions(c *gin.Context) {
	sessions, err := a.Chat.SessionsForUser(c.Param("userId"))
	if err != nil {
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// handleAgentSessions handles GET /api/chat/agent/:agentId.
func (a *API) handleAgentSessions(c *gin.Context) {
	sessions, err := a.Chat.SessionsForAgent(c.Param("agentId"))
	if err != nil {
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// handleGetSession handles GET /api/chat/:chatId.
func (a *API) handleGetSession(c *gin.Context) {
	session, err := a.Chat.GetSession(c.Param("chatId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeSessionNotFound)
			return
		}
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, session)
}

// handlePostMessage handles POST /api/chat/:chatId/messages. The message
// gets a server-side timestamp and is pushed to the session channel and
// the counterpart's personal channel.
func (a *API) handlePostMessage(c *gin.Context) {
	var req struct {
		Content  string `json:"content" binding:"required"`
		Sender   string `json:"sender" binding:"required"`
		SenderID string `json:"senderId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "content, sender and senderId are required")
		return
	}

	session, err := a.Chat.PostMessage(c.Param("chatId"), req.Sender, req.SenderID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			apierrors.Error(c, apierrors.CodeSessionNotFound)
		case errors.Is(err, chat.ErrSessionClosed):
			apierrors.Error(c, apierrors.CodeSessionClosed)
		case errors.Is(err, chat.ErrEmptyContent):
			apierrors.Error(c, apierrors.CodeEmptyMessage)
		case errors.Is(err, chat.ErrInvalidSender):
			apierrors.Error(c, apierrors.CodeInvalidSender)
		default:
			apierrors.Error(c, apierrors.CodeInternalError)
		}
		return
	}
	c.JSON(http.StatusOK, session)
}

// handleMarkRead handles PATCH /api/chat/:chatId/read. Marks every
// message not sent by the reader as read; repeating is a no-op.
func (a *API) handleMarkRead(c *gin.Context) {
	var req struct {
		ReaderID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "userId is required")
		return
	}

	session, err := a.Chat.MarkRead(c.Param("chatId"), req.ReaderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeSessionNotFound)
			return
		}
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, session)
}

// handleCloseSession handles PATCH /api/chat/:chatId/close. Idempotent;
// the owning agent's load is decremented exactly once.
func (a *API) handleCloseSession(c *gin.Context) {
	session, err := a.Chat.CloseSession(c.Param("chatId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeSessionNotFound)
			return
		}
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, session)
}
