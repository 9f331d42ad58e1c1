package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"givora.org/internal/ids"
)

const (
	defaultTimeout  = 5 * time.Second
	serviceTokenTTL = 2 * time.Minute
	issuer          = "givora-admin-api"
)

var ErrUnavailable = errors.New("provider: unavailable")

// Status is the provider's verdict for one user. Anything short of
// {success:true, verified:true} is treated as unverified by callers.
type Status struct {
	Success  bool `json:"success"`
	Verified bool `json:"verified"`
}

// Client talks to the external identity-verification vendor. Every call is
// bounded by a timeout so a slow provider cannot hang the calling request;
// callers map any error to "unverified".
type Client struct {
	baseURL    string
	secret     []byte
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient swaps the transport (tests use httptest servers).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock overrides the time source used for token claims.
func WithClock(fn func() time.Time) Option {
	return func(c *Client) {
		if fn != nil {
			c.now = fn
		}
	}
}

// New creates a provider client. The secret signs short-lived HS256 service
// tokens the vendor requires on every request.
func New(baseURL, secret string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("provider: base URL is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("provider: secret is required")
	}
	c := &Client{
		baseURL:    baseURL,
		secret:     []byte(secret),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetVerificationStatus fetches the binary verified/unverified signal for a
// user. The call inherits the caller's cancellation and adds the client's own
// deadline when none is tighter.
func (c *Client) GetVerificationStatus(ctx context.Context, userID string) (Status, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Status{}, errors.New("provider: userID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1/verifications/%s/status", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{}, err
	}
	token, err := c.serviceToken(userID)
	if err != nil {
		return Status{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return status, nil
}

func (c *Client) serviceToken(subject string) (string, error) {
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(serviceTokenTTL)),
		ID:        ids.New(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("provider: sign service token: %w", err)
	}
	return signed, nil
}
