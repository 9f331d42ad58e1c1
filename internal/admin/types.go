package admin

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Token is one long-lived credential held by a principal. Values are stored
// as SHA-256 digests; the plaintext only ever exists in the request.
type Token struct {
	Digest    string
	ExpiresAt *time.Time
	LastUsed  *time.Time
	CreatedAt time.Time
}

// Principal is an administrator identity. Provisioning and rotation happen
// out of band; this service only reads principals and touches usage
// timestamps on successful verification.
type Principal struct {
	ID          string
	Active      bool
	SuperAdmin  bool
	Permissions map[string]struct{}
	Tokens      []Token
	LastLogin   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPermission reports whether the principal may perform the named action.
// Superadmins pass every check regardless of the permission set.
func (p *Principal) HasPermission(name string) bool {
	if p == nil {
		return false
	}
	if p.SuperAdmin {
		return true
	}
	_, ok := p.Permissions[name]
	return ok
}

// DigestToken derives the stored form of a plaintext token.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
