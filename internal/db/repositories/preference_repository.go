// preference_repository.go implements PreferenceRepository, providing database
// queries for the per-subject sticky entity choice used by session bootstrap.
package repositories

import (
	"context"
	"database/sql"
	"time"
)

// PreferenceRepository handles entity preference database operations. It
// satisfies session.PreferenceStore.
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new PreferenceRepository
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetPreferredEntity returns the entity the subject last acted under, or ""
// when no preference has been recorded.
func (r *PreferenceRepository) GetPreferredEntity(ctx context.Context, subject string) (string, error) {
	query := `SELECT entity_id FROM entity_preferences WHERE subject = $1`

	var entityID string
	err := r.db.QueryRowContext(ctx, query, subject).Scan(&entityID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return entityID, nil
}

// SetPreferredEntity upserts the subject's entity choice.
func (r *PreferenceRepository) SetPreferredEntity(ctx context.Context, subject, entityID string) error {
	query := `
		INSERT INTO entity_preferences (subject, entity_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject) DO UPDATE SET entity_id = $2, updated_at = $3
	`

	_, err := r.db.ExecContext(ctx, query, subject, entityID, time.Now())
	return err
}
