// audit_repository.go implements AuditRepository, providing database queries
// for writing and retrieving audit events with filtered queries across
// subjects and actions.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hcm-portal/hcm-portal/internal/db/models"
)

// AuditRepository handles audit event database operations
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AuditFilters contains filters for querying audit events
type AuditFilters struct {
	Subject   *string
	Action    *string
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateAuditEvent writes a new audit event
func (r *AuditRepository) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now()

	var metadataJSON []byte
	var err error
	if event.Metadata != nil {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_events (id, subject, action, metadata, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.Subject,
		event.Action,
		metadataJSON,
		event.IPAddress,
		event.CreatedAt,
	)

	return err
}

// ListAuditEvents retrieves audit events with optional filters and pagination
func (r *AuditRepository) ListAuditEvents(ctx context.Context, filters AuditFilters, limit, offset int) ([]*models.AuditEvent, int, error) {
	countQuery := `SELECT COUNT(*) FROM audit_events WHERE 1=1`
	query := `
		SELECT id, subject, action, metadata, ip_address, created_at
		FROM audit_events
		WHERE 1=1
	`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.Subject != nil {
		countQuery += fmt.Sprintf(` AND subject = $%d`, paramIndex)
		query += fmt.Sprintf(` AND subject = $%d`, paramIndex)
		args = append(args, *filters.Subject)
		paramIndex++
	}

	if filters.Action != nil {
		countQuery += fmt.Sprintf(` AND action = $%d`, paramIndex)
		query += fmt.Sprintf(` AND action = $%d`, paramIndex)
		args = append(args, *filters.Action)
		paramIndex++
	}

	if filters.StartDate != nil {
		countQuery += fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		query += fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		args = append(args, *filters.StartDate)
		paramIndex++
	}

	if filters.EndDate != nil {
		countQuery += fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		query += fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		args = append(args, *filters.EndDate)
		paramIndex++
	}

	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*models.AuditEvent, 0)
	for rows.Next() {
		event := &models.AuditEvent{}
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.Subject,
			&event.Action,
			&metadataJSON,
			&event.IPAddress,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}

		if metadataJSON != nil {
			err = json.Unmarshal(metadataJSON, &event.Metadata)
			if err != nil {
				return nil, 0, err
			}
		}

		events = append(events, event)
	}

	return events, total, rows.Err()
}
