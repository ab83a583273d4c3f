// service_key_repository.go implements ServiceKeyRepository, providing database
// queries for service key lookup by prefix, creation, revocation, and
// last-used timestamp updates.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hcm-portal/hcm-portal/internal/db/models"
)

// ServiceKeyRepository handles service key database operations
type ServiceKeyRepository struct {
	db *sql.DB
}

// NewServiceKeyRepository creates a new ServiceKeyRepository
func NewServiceKeyRepository(db *sql.DB) *ServiceKeyRepository {
	return &ServiceKeyRepository{db: db}
}

// CreateServiceKey creates a new service key record
func (r *ServiceKeyRepository) CreateServiceKey(ctx context.Context, key *models.ServiceKey) error {
	key.ID = uuid.New().String()
	key.CreatedAt = time.Now()

	query := `
		INSERT INTO service_keys (id, name, key_hash, key_prefix, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.Name,
		key.KeyHash,
		key.KeyPrefix,
		key.ExpiresAt,
		key.CreatedAt,
	)

	return err
}

// GetServiceKeysByPrefix retrieves candidate keys matching a display prefix.
// Bcrypt hashes cannot be looked up directly, so authentication fetches the
// small candidate set by prefix and compares hashes in memory.
func (r *ServiceKeyRepository) GetServiceKeysByPrefix(ctx context.Context, prefix string) ([]*models.ServiceKey, error) {
	query := `
		SELECT id, name, key_hash, key_prefix, expires_at, last_used_at, revoked_at, created_at
		FROM service_keys
		WHERE key_prefix = $1 AND revoked_at IS NULL
	`

	rows, err := r.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*models.ServiceKey, 0)
	for rows.Next() {
		key := &models.ServiceKey{}
		err := rows.Scan(
			&key.ID,
			&key.Name,
			&key.KeyHash,
			&key.KeyPrefix,
			&key.ExpiresAt,
			&key.LastUsedAt,
			&key.RevokedAt,
			&key.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// UpdateLastUsed stamps the key's last successful authentication time
func (r *ServiceKeyRepository) UpdateLastUsed(ctx context.Context, keyID string) error {
	query := `UPDATE service_keys SET last_used_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), keyID)
	return err
}

// RevokeServiceKey marks a key as revoked; revoked keys never authenticate
func (r *ServiceKeyRepository) RevokeServiceKey(ctx context.Context, keyID string) error {
	query := `UPDATE service_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now(), keyID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
