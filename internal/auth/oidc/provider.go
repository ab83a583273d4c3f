// Package oidc implements OpenID Connect token verification for the portal.
// It handles OIDC service discovery, ID token verification, and extraction of
// the portal's custom claims (hcm_roles and the user_metadata hire-flow bag)
// into an IdentitySession.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hcm-portal/hcm-portal/internal/auth"
	"github.com/hcm-portal/hcm-portal/internal/config"
	"golang.org/x/oauth2"
)

// Provider wraps the generic OIDC provider for the portal's identity provider
type Provider struct {
	verifier      *oidc.IDTokenVerifier
	config        *oauth2.Config
	provider      *oidc.Provider
	rolesClaim    string
	metadataClaim string
}

// NewProvider initializes a new OIDC provider using a background context.
func NewProvider(cfg *config.OIDCConfig) (*Provider, error) {
	return NewProviderWithContext(context.Background(), cfg)
}

// NewProviderWithContext initializes a new OIDC provider with the given
// context, allowing callers to set deadlines or cancellation for the OIDC
// discovery request.
func NewProviderWithContext(ctx context.Context, cfg *config.OIDCConfig) (*Provider, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("OIDC is not enabled")
	}

	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("OIDC issuer URL is required")
	}

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("OIDC client ID is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Scopes,
	}

	return &Provider{
		verifier:      verifier,
		config:        oauth2Config,
		provider:      provider,
		rolesClaim:    cfg.RolesClaim,
		metadataClaim: cfg.MetadataClaim,
	}, nil
}

// GetAuthURL returns the OAuth2 authorization URL
func (p *Provider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// GetEndSessionEndpoint returns the OIDC end_session_endpoint from the
// discovery document, or an empty string if the provider does not advertise
// one. Used to build the full logout URL.
func (p *Provider) GetEndSessionEndpoint() string {
	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := p.provider.Claims(&claims); err != nil {
		return ""
	}
	return claims.EndSessionEndpoint
}

// ExchangeCode exchanges the authorization code for tokens
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	return token, nil
}

// VerifyIDToken verifies the raw ID token and extracts the portal's identity
// session from its claims. The session carries the raw hcm_roles list and the
// hire-flow metadata bag; nothing is derived here — derivation happens on
// every bootstrap pass.
func (p *Provider) VerifyIDToken(ctx context.Context, rawIDToken string) (*auth.IdentitySession, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	return p.extractSession(idToken)
}

// claimSource is the slice of *oidc.IDToken that claim extraction reads.
// Narrowing the parameter keeps extraction testable without minting signed
// tokens.
type claimSource interface {
	Claims(v interface{}) error
}

// extractSession reads standard and custom claims from a verified ID token.
func (p *Provider) extractSession(idToken claimSource) (*auth.IdentitySession, error) {
	var std struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := idToken.Claims(&std); err != nil {
		return nil, fmt.Errorf("failed to parse ID token claims: %w", err)
	}

	if std.Sub == "" {
		return nil, fmt.Errorf("ID token missing 'sub' claim")
	}
	if std.Email == "" {
		return nil, fmt.Errorf("ID token missing 'email' claim")
	}

	// Custom claims live under operator-configured (typically namespaced)
	// claim names, so they are read from the raw claim map.
	var raw map[string]json.RawMessage
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse ID token custom claims: %w", err)
	}

	sess := &auth.IdentitySession{
		Subject:    std.Sub,
		Email:      std.Email,
		GivenName:  std.GivenName,
		FamilyName: std.FamilyName,
	}

	if p.rolesClaim != "" {
		if rolesRaw, ok := raw[p.rolesClaim]; ok {
			var roles []string
			if err := json.Unmarshal(rolesRaw, &roles); err != nil {
				return nil, fmt.Errorf("malformed %s claim: %w", p.rolesClaim, err)
			}
			sess.Roles = roles
		}
	}

	if p.metadataClaim != "" {
		if metaRaw, ok := raw[p.metadataClaim]; ok {
			var meta auth.UserMetadata
			if err := json.Unmarshal(metaRaw, &meta); err != nil {
				return nil, fmt.Errorf("malformed %s claim: %w", p.metadataClaim, err)
			}
			sess.Metadata = meta
		}
	}

	return sess, nil
}
