package backoffice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hcm-portal/hcm-portal/internal/config"
)

// Client calls the upstream HCM back-office API. It is safe for concurrent
// use; per-request deadlines come from the caller's context on top of the
// configured client timeout.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a back-office client from configuration.
func NewClient(cfg *config.BackOfficeConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// resultsEnvelope is the common wrapper the back office puts around every
// response body.
type resultsEnvelope struct {
	Results json.RawMessage `json:"results"`
}

// GetUserProfile fetches the profile-with-status for the given subject,
// optionally scoped to one legal entity. The response shape is discriminated
// here: a body carrying both first_name and company is a full profile,
// anything else is an early-exit status.
func (c *Client) GetUserProfile(ctx context.Context, subject, entityID string) (*ProfileEnvelope, error) {
	endpoint := fmt.Sprintf("%s/api/v1/employees/%s/profile", c.baseURL, url.PathEscape(subject))
	if entityID != "" {
		endpoint += "?entity_id=" + url.QueryEscape(entityID)
	}

	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("profile fetch for %s: %w", subject, err)
	}

	return decodeProfile(raw)
}

// GetRedirect requests a signed, time-limited SSO URL into the named external
// system, scoped to the given client entity. An absent or null result is
// returned as "" with a nil error — the caller decides whether that is fatal
// (terminated-employee flow) or triggers a fallback (navigation SSO).
func (c *Client) GetRedirect(ctx context.Context, system, clientID string) (string, error) {
	q := url.Values{}
	if system != "" {
		q.Set("system", system)
	}
	if clientID != "" {
		q.Set("client_id", clientID)
	}
	endpoint := c.baseURL + "/api/v1/sso/redirect"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("redirect fetch for system %q: %w", system, err)
	}

	var redirectURL *string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &redirectURL); err != nil {
			return "", fmt.Errorf("redirect fetch for system %q: malformed results: %w", system, err)
		}
	}
	if redirectURL == nil {
		return "", nil
	}
	return *redirectURL, nil
}

// get performs an authenticated GET and unwraps the results envelope.
func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var envelope resultsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("malformed response envelope: %w", err)
	}

	return envelope.Results, nil
}

// decodeProfile discriminates and decodes a raw profile results body.
func decodeProfile(raw json.RawMessage) (*ProfileEnvelope, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty profile results")
	}

	// Probe for the structural markers of a full profile. The back office
	// guarantees first_name and company on every full payload.
	var probe struct {
		FirstName *string         `json:"first_name"`
		Company   json.RawMessage `json:"company"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("malformed profile results: %w", err)
	}

	if probe.FirstName != nil && len(probe.Company) > 0 && string(probe.Company) != "null" {
		var full FullProfile
		if err := json.Unmarshal(raw, &full); err != nil {
			return nil, fmt.Errorf("malformed full profile: %w", err)
		}
		return &ProfileEnvelope{Kind: ProfileKindFull, Full: &full}, nil
	}

	var early EarlyExitStatus
	if err := json.Unmarshal(raw, &early); err != nil {
		return nil, fmt.Errorf("malformed early-exit status: %w", err)
	}
	if early.Status == "" && early.EmployeeStatus == "" {
		return nil, fmt.Errorf("profile results carry neither a full profile nor a status")
	}
	return &ProfileEnvelope{Kind: ProfileKindEarlyExit, EarlyExit: &early}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
