package models

import "time"

// ServiceKey represents a machine credential for back-office callers (the
// employee-status webhook). Only the bcrypt hash is stored; KeyPrefix is the
// first few plaintext characters, kept for display and candidate lookup.
type ServiceKey struct {
	ID         string
	Name       string // friendly name (e.g. "back-office status feed")
	KeyHash    string
	KeyPrefix  string
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// IsExpired reports whether the key has an expiry in the past.
func (k *ServiceKey) IsExpired() bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now())
}

// IsRevoked reports whether the key has been revoked.
func (k *ServiceKey) IsRevoked() bool {
	return k.RevokedAt != nil
}
