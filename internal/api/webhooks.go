package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcm-portal/hcm-portal/internal/audit"
	"github.com/hcm-portal/hcm-portal/internal/session"
)

// WebhookHandlers handles inbound webhooks from the back office
type WebhookHandlers struct {
	manager  *session.Manager
	recorder *audit.Recorder
}

// NewWebhookHandlers creates webhook handlers
func NewWebhookHandlers(manager *session.Manager, recorder *audit.Recorder) *WebhookHandlers {
	return &WebhookHandlers{manager: manager, recorder: recorder}
}

type employeeStatusEvent struct {
	Subject string `json:"subject" binding:"required"`
	Status  string `json:"status"`
}

// EmployeeStatus handles employee status change notifications. The cached
// snapshot for the subject is evicted so the next bootstrap pass re-runs the
// redirect checks against fresh upstream state. Eviction of a subject with no
// cached snapshot is a no-op and still returns 202.
func (h *WebhookHandlers) EmployeeStatus(c *gin.Context) {
	var event employeeStatusEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}

	if err := h.manager.Invalidate(c.Request.Context(), event.Subject); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evict session snapshot"})
		return
	}

	if h.recorder != nil {
		h.recorder.Record(c.Request.Context(), "webhook.employee_status", event.Subject, map[string]interface{}{
			"status": event.Status,
		})
	}

	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
