// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, security headers, and request metrics.
//
// Middleware ordering matters and is enforced in api/router.go:
//
//	RequestID → Security → Metrics → Logger → CORS → RateLimit → Auth → Handler
//
// Security headers run early so they appear on all responses including
// errors. Rate limiting runs before auth to block brute-force attacks before
// any token verification or DB work. Auth populates the identity session;
// every handler past it can assume a verified caller.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hcm-portal/hcm-portal/internal/auth"
	"github.com/hcm-portal/hcm-portal/internal/db/models"
	"github.com/hcm-portal/hcm-portal/internal/db/repositories"
)

const (
	// SessionKey is the gin.Context key holding the verified
	// *auth.IdentitySession for user requests.
	SessionKey = "identity_session"

	// ServiceKeyKey is the gin.Context key holding the authenticated
	// *models.ServiceKey for machine requests.
	ServiceKeyKey = "service_key"
)

// TokenVerifier resolves a raw bearer token into an identity session.
// Production uses the OIDC provider; dev mode uses HS256 portal tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.IdentitySession, error)
}

// TokenVerifierFunc adapts a function to the TokenVerifier interface.
type TokenVerifierFunc func(ctx context.Context, rawToken string) (*auth.IdentitySession, error)

// Verify implements TokenVerifier.
func (f TokenVerifierFunc) Verify(ctx context.Context, rawToken string) (*auth.IdentitySession, error) {
	return f(ctx, rawToken)
}

// DevJWTVerifier verifies HS256 portal tokens minted by local tooling. Used
// when OIDC is disabled.
func DevJWTVerifier() TokenVerifier {
	return TokenVerifierFunc(func(_ context.Context, rawToken string) (*auth.IdentitySession, error) {
		claims, err := auth.ValidateJWT(rawToken)
		if err != nil {
			return nil, err
		}
		return claims.Session(), nil
	})
}

// AuthMiddleware validates the bearer token on every user-facing request and
// stores the resulting identity session in the gin context.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		sess, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// ServiceKeyMiddleware authenticates machine callers (the back-office status
// webhook) with a bearer service key.
//
// Keys are never stored raw — only their bcrypt hash. The plaintext display
// prefix is stored alongside the hash so authentication can do a fast indexed
// lookup to narrow the candidate set, then run the expensive bcrypt
// comparison only on those few rows. Without the prefix, every request would
// bcrypt-compare against the entire service_keys table.
func ServiceKeyMiddleware(keyRepo *repositories.ServiceKeyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		keyPrefix := token
		if len(token) > auth.DisplayPrefixLength {
			keyPrefix = token[:auth.DisplayPrefixLength]
		}

		candidates, err := keyRepo.GetServiceKeysByPrefix(c.Request.Context(), keyPrefix)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}

		var key *models.ServiceKey
		for _, candidate := range candidates {
			if auth.ValidateServiceKey(token, candidate.KeyHash) {
				key = candidate
				break
			}
		}

		if key == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		if key.IsExpired() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Service key expired",
			})
			return
		}

		// Last-used tracking is best-effort; a failed update is not a
		// correctness problem and must not add latency to the webhook path.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = keyRepo.UpdateLastUsed(ctx, key.ID)
		}()

		c.Set(ServiceKeyKey, key)
		c.Next()
	}
}

// SessionFromContext returns the identity session stored by AuthMiddleware.
func SessionFromContext(c *gin.Context) (*auth.IdentitySession, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*auth.IdentitySession)
	return sess, ok
}

// bearerToken extracts the bearer token, aborting with 401 on any malformed
// or missing header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Missing authorization header",
		})
		return "", false
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Authorization header must start with 'Bearer '",
		})
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Authorization token is empty",
		})
		return "", false
	}

	return token, true
}
