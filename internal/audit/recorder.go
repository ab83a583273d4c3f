// recorder.go bridges session lifecycle events to durable audit storage. The
// database write is authoritative; configured shippers are best-effort
// side channels.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hcm-portal/hcm-portal/internal/db/models"
	"github.com/hcm-portal/hcm-portal/internal/db/repositories"
)

// Recorder persists audit events and forwards them to the configured
// shippers. It satisfies session.AuditSink.
type Recorder struct {
	repo    *repositories.AuditRepository
	shipper Shipper
}

// NewRecorder creates a Recorder. shipper may be nil when no destinations are
// configured; repo may be nil in tests.
func NewRecorder(repo *repositories.AuditRepository, shipper Shipper) *Recorder {
	return &Recorder{repo: repo, shipper: shipper}
}

// Record writes the event to the database and ships it. Failures are logged,
// never returned; callers treat auditing as fire-and-forget.
func (r *Recorder) Record(ctx context.Context, action, subject string, metadata map[string]interface{}) {
	if r.repo != nil {
		event := &models.AuditEvent{
			Action:   action,
			Metadata: metadata,
		}
		if subject != "" {
			event.Subject = &subject
		}
		if err := r.repo.CreateAuditEvent(ctx, event); err != nil {
			slog.Error("failed to persist audit event", "action", action, "error", err)
		}
	}

	if r.shipper != nil {
		entry := &LogEntry{
			Timestamp: time.Now().UTC(),
			Action:    action,
			Subject:   subject,
			Metadata:  metadata,
		}
		if err := r.shipper.Ship(ctx, entry); err != nil {
			slog.Warn("failed to ship audit event", "action", action, "error", err)
		}
	}
}
