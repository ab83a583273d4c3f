package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcm-portal/hcm-portal/internal/audit"
	"github.com/hcm-portal/hcm-portal/internal/middleware"
	"github.com/hcm-portal/hcm-portal/internal/nav"
	"github.com/hcm-portal/hcm-portal/internal/session"
)

// SSOHandlers handles SSO command execution
type SSOHandlers struct {
	manager  *session.Manager
	executor *nav.Executor
	recorder *audit.Recorder
}

// NewSSOHandlers creates SSO handlers
func NewSSOHandlers(manager *session.Manager, executor *nav.Executor, recorder *audit.Recorder) *SSOHandlers {
	return &SSOHandlers{manager: manager, executor: executor, recorder: recorder}
}

type ssoRequest struct {
	EntityID string `json:"entity_id"`
}

// Execute resolves an SSO command into a redirect result. Fetch failures and
// empty redirect URLs never surface as HTTP errors here; the per-system
// fallback policy decides what the result carries and the SPA acts on it.
func (h *SSOHandlers) Execute(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
		return
	}

	cmd := nav.Command(c.Param("command"))

	var req ssoRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	// Scope to the current entity when the caller did not name one.
	clientID := req.EntityID
	if clientID == "" {
		outcome, err := h.manager.Initialize(c.Request.Context(), sess)
		if err == nil && outcome.Entity != nil {
			clientID = outcome.Entity.ClientID
		}
	}

	result, err := h.executor.Execute(c.Request.Context(), cmd, clientID)
	if err != nil {
		if errors.Is(err, nav.ErrUnknownCommand) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown SSO command"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "SSO command failed"})
		return
	}

	if h.recorder != nil {
		h.recorder.Record(c.Request.Context(), "sso.execute", sess.Subject, map[string]interface{}{
			"command":   string(cmd),
			"entity_id": clientID,
			"issued":    result.URL != "",
		})
	}

	c.JSON(http.StatusOK, result)
}
