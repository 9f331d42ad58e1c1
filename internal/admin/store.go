package admin

import (
	"context"
	"time"
)

// Store describes persistence operations required by the authenticator.
type Store interface {
	// FindByTokenDigest returns the single active principal holding the
	// token, or ErrNotFound. Token uniqueness across active principals is a
	// provisioning invariant, so at most one row can match.
	FindByTokenDigest(ctx context.Context, digest string) (*Principal, error)

	// TouchToken updates the token's last_used and the principal's
	// last_login. Both are single-row updates; no transaction is required.
	TouchToken(ctx context.Context, principalID, digest string, usedAt time.Time) error
}
