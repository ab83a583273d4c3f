package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcm-portal/hcm-portal/internal/middleware"
	"github.com/hcm-portal/hcm-portal/internal/session"
)

// SessionHandlers handles session bootstrap and refresh endpoints
type SessionHandlers struct {
	manager *session.Manager
}

// NewSessionHandlers creates session handlers
func NewSessionHandlers(manager *session.Manager) *SessionHandlers {
	return &SessionHandlers{manager: manager}
}

// Bootstrap runs a full bootstrap pass for the authenticated identity and
// returns the terminal outcome: a redirect instruction, a quickhire hold, or
// the active-user snapshot.
func (h *SessionHandlers) Bootstrap(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
		return
	}

	outcome, err := h.manager.Initialize(c.Request.Context(), sess)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, session.ErrRedirectTargetMissing) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": "Session bootstrap failed"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

type refreshRequest struct {
	EntityID string `json:"entity_id"`
}

// Refresh re-fetches the profile and replaces the snapshot wholesale. The
// redirect checks are deliberately not re-run here; an early-exit status from
// upstream surfaces as a 409 and the SPA performs a full reload.
func (h *SessionHandlers) Refresh(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
		return
	}

	var req refreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	snap, err := h.manager.Refresh(c.Request.Context(), sess, session.RefreshOptions{Entity: req.EntityID})
	if err != nil {
		if errors.Is(err, session.ErrNotFullProfile) {
			c.JSON(http.StatusConflict, gin.H{"error": "Session state changed, reload required"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Session refresh failed"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

type switchEntityRequest struct {
	EntityID string `json:"entity_id" binding:"required"`
}

// SwitchEntity refreshes the session scoped to the requested legal entity and
// persists it as the preferred entity for future bootstraps.
func (h *SessionHandlers) SwitchEntity(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
		return
	}

	var req switchEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity_id is required"})
		return
	}

	snap, err := h.manager.RefreshEntity(c.Request.Context(), sess, req.EntityID)
	if err != nil {
		if errors.Is(err, session.ErrNotFullProfile) {
			c.JSON(http.StatusConflict, gin.H{"error": "Session state changed, reload required"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Entity switch failed"})
		return
	}

	c.JSON(http.StatusOK, snap)
}
