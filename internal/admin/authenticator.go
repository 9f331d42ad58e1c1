package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"givora.org/internal/audit"
	"givora.org/internal/obs"
	"givora.org/internal/ratelimit"
)

const (
	authHeader       = "Authorization"
	bearerPrefix     = "Bearer "
	adminTokenHeader = "X-Admin-Token"
	adminTokenQuery  = "admin_token"
)

// Authenticator verifies admin credentials. It is long-lived; per-request
// state lives in the RequestAuth values it hands out.
type Authenticator struct {
	store   Store
	limiter *ratelimit.Limiter

	verifyMax    int
	verifyWindow time.Duration
	now          func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithVerifyLimit overrides how many verification attempts a single
// credential (or client address) gets per window.
func WithVerifyLimit(max int, window time.Duration) Option {
	return func(a *Authenticator) {
		if max > 0 {
			a.verifyMax = max
		}
		if window > 0 {
			a.verifyWindow = window
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(a *Authenticator) {
		if fn != nil {
			a.now = fn
		}
	}
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(store Store, limiter *ratelimit.Limiter, opts ...Option) *Authenticator {
	a := &Authenticator{
		store:        store,
		limiter:      limiter,
		verifyMax:    10,
		verifyWindow: time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ForRequest resolves the credential from the request and returns the
// request-scoped verifier. Resolution order: Authorization Bearer header,
// X-Admin-Token header, admin_token query parameter.
func (a *Authenticator) ForRequest(r *http.Request) *RequestAuth {
	return &RequestAuth{
		parent:   a,
		token:    resolveToken(r),
		clientIP: clientIP(r),
	}
}

// ForToken builds a request verifier from a bare credential; used by callers
// that are not HTTP handlers.
func (a *Authenticator) ForToken(token, clientAddr string) *RequestAuth {
	return &RequestAuth{parent: a, token: strings.TrimSpace(token), clientIP: clientAddr}
}

// RequestAuth memoizes one logical admin request. Verify runs at most once;
// repeated identity or permission queries reuse the cached outcome so
// last_used/last_login are touched a single time per request.
type RequestAuth struct {
	parent *Authenticator

	token    string
	clientIP string

	attempted bool
	verified  bool
	principal *Principal
}

// Verify authenticates the resolved credential. Every failure mode collapses
// to false; callers learn the cause only from the audit log, which keeps the
// response from leaking which check an attacker tripped.
func (ra *RequestAuth) Verify(ctx context.Context) bool {
	if ra.attempted {
		return ra.verified
	}
	ra.attempted = true

	a := ra.parent
	if ra.token == "" {
		obs.IncAuthFailure("missing_token")
		_ = audit.LogEvent(ctx, "missing_token", map[string]any{
			"client_ip": ra.clientIP,
		})
		return false
	}

	digest := DigestToken(ra.token)

	allowed, err := a.limiter.Allow(ctx, "admin_verify:"+digest, a.verifyMax, a.verifyWindow)
	if err != nil {
		obs.IncAuthFailure("limiter_error")
		_ = audit.LogEvent(ctx, "admin.verify.error", map[string]any{
			"client_ip": ra.clientIP,
			"error":     err.Error(),
		})
		return false
	}
	if !allowed {
		// The limiter already emitted rate_limit_exceeded.
		obs.IncAuthFailure("rate_limited")
		return false
	}

	principal, err := a.store.FindByTokenDigest(ctx, digest)
	if err != nil {
		reason := "lookup_error"
		if errors.Is(err, ErrNotFound) {
			reason = "token_not_found"
		}
		obs.IncAuthFailure(reason)
		_ = audit.LogEvent(ctx, "admin.verify.failed", map[string]any{
			"reason":    reason,
			"client_ip": ra.clientIP,
		})
		return false
	}

	token, ok := findToken(principal, digest)
	if !ok {
		obs.IncAuthFailure("token_not_found")
		_ = audit.LogEvent(ctx, "admin.verify.failed", map[string]any{
			"reason":    "token_not_found",
			"client_ip": ra.clientIP,
		})
		return false
	}
	now := a.now()
	if token.ExpiresAt != nil && token.ExpiresAt.Before(now) {
		// The principal is otherwise valid but this exact credential is
		// stale; do not fall through to its sibling tokens.
		obs.IncAuthFailure("token_expired")
		_ = audit.LogEvent(ctx, "admin.verify.failed", map[string]any{
			"reason":    "token_expired",
			"admin_id":  principal.ID,
			"client_ip": ra.clientIP,
		})
		return false
	}

	if err := a.store.TouchToken(ctx, principal.ID, digest, now); err != nil {
		// Usage bookkeeping must not reject a valid credential.
		_ = audit.LogEvent(ctx, "admin.verify.touch_failed", map[string]any{
			"admin_id": principal.ID,
			"error":    err.Error(),
		})
	}

	ra.principal = principal
	ra.verified = true
	return true
}

// Identity returns the verified principal id, verifying lazily.
func (ra *RequestAuth) Identity(ctx context.Context) (string, bool) {
	if !ra.Verify(ctx) {
		return "", false
	}
	return ra.principal.ID, true
}

// HasPermission reports whether the verified principal may perform the named
// action, verifying lazily. Unverified requests always fail.
func (ra *RequestAuth) HasPermission(ctx context.Context, name string) bool {
	if !ra.Verify(ctx) {
		return false
	}
	return ra.principal.HasPermission(name)
}

// Principal exposes the verified principal for handlers that need more than
// the id. Returns nil before a successful Verify.
func (ra *RequestAuth) Principal() *Principal {
	if !ra.verified {
		return nil
	}
	return ra.principal
}

func findToken(p *Principal, digest string) (Token, bool) {
	for _, t := range p.Tokens {
		if subtle.ConstantTimeCompare([]byte(t.Digest), []byte(digest)) == 1 {
			return t, true
		}
	}
	return Token{}, false
}

func resolveToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get(authHeader)); header != "" {
		if strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
			if token := strings.TrimSpace(header[len(bearerPrefix):]); token != "" {
				return token
			}
		}
	}
	if token := strings.TrimSpace(r.Header.Get(adminTokenHeader)); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get(adminTokenQuery))
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
