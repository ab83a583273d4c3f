package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/hcm-portal/hcm-portal/internal/auth"
	"github.com/hcm-portal/hcm-portal/internal/config"
)

// LoginProvider is the slice of the OIDC provider the login-flow endpoints
// need. The SPA drives the authorization-code flow itself; these endpoints
// hand it the provider URLs and swap the code for tokens so the client secret
// never leaves the backend.
type LoginProvider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	VerifyIDToken(ctx context.Context, rawIDToken string) (*auth.IdentitySession, error)
	GetEndSessionEndpoint() string
}

// AuthHandlers serves the browser login flow: authorization URL, code
// exchange, and logout URL. Only registered when OIDC is enabled; dev-mode
// portal tokens are minted by local tooling instead.
type AuthHandlers struct {
	provider LoginProvider
	cfg      *config.Config
}

// NewAuthHandlers creates login-flow handlers
func NewAuthHandlers(provider LoginProvider, cfg *config.Config) *AuthHandlers {
	return &AuthHandlers{provider: provider, cfg: cfg}
}

// LoginURL returns the IdP authorization URL for the SPA to redirect to.
// The SPA generates and stores the state value; it is echoed back on the
// callback and must be verified client-side before calling Exchange.
func (h *AuthHandlers) LoginURL(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "state query parameter is required",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.provider.GetAuthURL(state)})
}

type exchangeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Exchange swaps the authorization code for tokens and returns the verified
// ID token plus the extracted identity session. The SPA uses the raw ID token
// as its bearer credential on subsequent calls.
func (h *AuthHandlers) Exchange(c *gin.Context) {
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "code is required",
		})
		return
	}

	token, err := h.provider.ExchangeCode(c.Request.Context(), req.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authorization code exchange failed",
		})
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Identity provider response missing ID token",
		})
		return
	}

	sess, err := h.provider.VerifyIDToken(c.Request.Context(), rawIDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid credentials",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   rawIDToken,
		"session": sess,
	})
}

// LogoutURL returns the URL the SPA should navigate to on sign-out. When the
// IdP advertises an end_session_endpoint the URL terminates the IdP session
// and redirects back to the portal's logout route; otherwise only the local
// logout route is returned and the IdP session is left to expire.
func (h *AuthHandlers) LogoutURL(c *gin.Context) {
	returnTo := h.cfg.Server.GetPublicURL() + h.cfg.Portal.LogoutPath

	endSession := h.provider.GetEndSessionEndpoint()
	if endSession == "" {
		c.JSON(http.StatusOK, gin.H{"url": h.cfg.Portal.LogoutPath})
		return
	}

	params := url.Values{}
	params.Set("client_id", h.cfg.Auth.OIDC.ClientID)
	params.Set("post_logout_redirect_uri", returnTo)

	sep := "?"
	if strings.Contains(endSession, "?") {
		sep = "&"
	}
	c.JSON(http.StatusOK, gin.H{"url": endSession + sep + params.Encode()})
}
