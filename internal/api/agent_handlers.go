package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transitdesk/transitdesk/internal/agents"
	"github.com/transitdesk/transitdesk/internal/apierrors"
	"github.com/transitdesk/transitdesk/internal/models"
	"github.com/transitdesk/transitdesk/internal/repository"
)

// handleCreateAgent handles POST /api/agents.
func (a *API) handleCreateAgent(c *gin.Context) {
	var req struct {
		Name           string   `json:"name" binding:"required"`
		Email          string   `json:"email" binding:"required,email"`
		Password       string   `json:"password" binding:"required,min=8"`
		Specialization []string `json:"specialization"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "name, email and a password of at least 8 characters are required")
		return
	}

	agent, err := a.Agents.Create(req.Name, req.Email, req.Password, req.Specialization)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			apierrors.Error(c, apierrors.CodeAgentExists)
			return
		}
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}
	c.JSON(http.StatusCreated, agent)
}

// handleAgentLogin handles POST /api/agents/login. A successful login
// flips the agent online and returns a bearer token.
func (a *API) handleAgentLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "email and password are required")
		return
	}

	agent, token, err := a.Agents.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, agents.ErrInvalidCredentials) {
			apierrors.Error(c, apierrors.CodeInvalidCredentials)
			return
		}
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent": agent, "token": token})
}

// handleAgentLogout handles POST /api/agents/:id/logout. Idempotent.
func (a *API) handleAgentLogout(c *gin.Context) {
	agent, err := a.Agents.Logout(c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeAgentNotFound)
			return
		}
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// handleListAgents handles GET /api/agents. Password hashes never
// serialize; the model hides them.
func (a *API) handleListAgents(c *gin.Context) {
	all, err := a.Agents.List()
	if err != nil {
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, all)
}

// handleAvailableAgents handles GET /api/agents/available with an
// optional ?topic= filter.
func (a *API) handleAvailableAgents(c *gin.Context) {
	c.JSON(http.StatusOK, a.Agents.Available(c.Query("topic")))
}

// handleGetAgent handles GET /api/agents/:id.
func (a *API) handleGetAgent(c *gin.Context) {
	agent, err := a.Agents.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeAgentNotFound)
			return
		}
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// handleUpdateAgentProfile handles PATCH /api/agents/:id.
func (a *API) handleUpdateAgentProfile(c *gin.Context) {
	var req struct {
		Name           string   `json:"name"`
		Avatar         string   `json:"avatar"`
		Specialization []string `json:"specialization"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Error(c, apierrors.CodeInvalidRequest)
		return
	}

	agent, err := a.Agents.UpdateProfile(c.Param("id"), req.Name, req.Avatar, req.Specialization)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeAgentNotFound)
			return
		}
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}
	c.JSON(http.StatusOK, agent)
}

// handleSetAgentStatus handles PATCH /api/agents/:id/status. Status and
// accepting flag change together; existing sessions are unaffected.
func (a *API) handleSetAgentStatus(c *gin.Context) {
	var req struct {
		Status      string `json:"status" binding:"required"`
		IsAccepting *bool  `json:"isAccepting"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, "status is required")
		return
	}
	if !models.ValidAgentStatus(req.Status) {
		apierrors.Error(c, apierrors.CodeInvalidStatus)
		return
	}

	agentID := c.Param("id")
	current, err := a.Agents.Get(agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			apierrors.Error(c, apierrors.CodeAgentNotFound)
			return
		}
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	isAccepting := current.IsAccepting
	if req.IsAccepting != nil {
		isAccepting = *req.IsAccepting
	}

	if err := a.Agents.SetStatus(agentID, req.Status, isAccepting); err != nil {
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	updated, err := a.Agents.Get(agentID)
	if err != nil {
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	c.JSON(http.StatusOK, updated)
}
