// Package models defines the database model types for the portal.
// Each type corresponds to a database table. Models are pure data types —
// business logic belongs in the session manager, query logic in the
// repositories layer.
package models

import "time"

// EntityPreference records the legal entity a subject last acted under. One
// row per subject; upserted on every entity switch.
type EntityPreference struct {
	Subject   string
	EntityID  string
	UpdatedAt time.Time
}
