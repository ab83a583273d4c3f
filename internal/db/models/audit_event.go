package models

import "time"

// AuditEvent records a session lifecycle or security-relevant event:
// bootstrap outcomes, entity switches, SSO issuances, webhook evictions.
type AuditEvent struct {
	ID        string
	Subject   *string // nil for system actions (e.g. webhook calls)
	Action    string  // "session.bootstrap", "session.entity_switch", "sso.issue"
	Metadata  map[string]interface{}
	IPAddress *string
	CreatedAt time.Time
}
