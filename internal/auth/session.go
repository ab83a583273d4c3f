// Package auth provides authentication primitives for the portal: identity
// session extraction from IdP tokens, role helpers over the raw hcm_roles
// list, dev-mode JWT verification, and service key generation/validation for
// machine callers. See internal/middleware/auth.go for the request-time logic
// that uses these primitives.
package auth

// UserMetadata is the hire-flow metadata bag attached to the identity
// provider account. Pointer fields distinguish "key absent" from "key set to
// false" — the quickhire check depends on the prehire key being absent, not
// merely falsy.
type UserMetadata struct {
	Prehire              *bool `json:"prehire,omitempty"`
	StreamlinedQuickhire *bool `json:"streamlined_quickhire,omitempty"`
}

// IdentitySession is the normalized view of an identity provider session. It
// carries only what the IdP asserts; everything derived from the payroll
// system (employee status, company, entities) comes from the bootstrap pass.
type IdentitySession struct {
	Subject    string       `json:"subject"`
	Email      string       `json:"email"`
	GivenName  string       `json:"given_name"`
	FamilyName string       `json:"family_name"`
	Roles      []string     `json:"hcm_roles"`
	Metadata   UserMetadata `json:"user_metadata"`
}

// IsPrehire reports whether the account is flagged as a prehire.
func (s *IdentitySession) IsPrehire() bool {
	return s.Metadata.Prehire != nil && *s.Metadata.Prehire
}

// IsQuickhireInProgress reports whether the account is mid streamlined
// quickhire: the streamlined_quickhire flag is set and the prehire key has not
// been written yet. Once onboarding writes the prehire key (true or false)
// this stops matching.
func (s *IdentitySession) IsQuickhireInProgress() bool {
	return s.Metadata.StreamlinedQuickhire != nil &&
		*s.Metadata.StreamlinedQuickhire &&
		s.Metadata.Prehire == nil
}
