package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcm-portal/hcm-portal/internal/middleware"
	"github.com/hcm-portal/hcm-portal/internal/nav"
	"github.com/hcm-portal/hcm-portal/internal/session"
)

// NavigationHandlers handles the navigation tree endpoint
type NavigationHandlers struct {
	manager *session.Manager
}

// NewNavigationHandlers creates navigation handlers
func NewNavigationHandlers(manager *session.Manager) *NavigationHandlers {
	return &NavigationHandlers{manager: manager}
}

// Get resolves the navigation tree for the authenticated user. The bootstrap
// pass runs first (served from the snapshot cache on the warm path); a
// non-active outcome means the user has no portal shell to navigate, so the
// outcome kind is returned instead and the SPA re-runs its redirect handling.
func (h *NavigationHandlers) Get(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No session"})
		return
	}

	outcome, err := h.manager.Initialize(c.Request.Context(), sess)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Session bootstrap failed"})
		return
	}

	if outcome.Kind != session.OutcomeActive {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Session is not active",
			"kind":  outcome.Kind,
		})
		return
	}

	tree := nav.Generate(outcome.User, outcome.Company)
	c.JSON(http.StatusOK, tree)
}
