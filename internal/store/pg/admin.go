package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"givora.org/internal/admin"
)

var _ admin.Store = (*Store)(nil)

// FindByTokenDigest returns the active principal holding the token. Token
// uniqueness across active principals is enforced at provisioning time, so
// the join yields at most one row.
func (s *Store) FindByTokenDigest(ctx context.Context, digest string) (*admin.Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		select p.id, p.active, p.super_admin, p.permissions, p.last_login, p.created_at, p.updated_at
		from admin_principals p
		join admin_tokens t on t.principal_id = p.id
		where t.digest = $1 and p.active
	`, digest)

	var (
		p           admin.Principal
		permissions []byte
		lastLogin   sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Active, &p.SuperAdmin, &permissions, &lastLogin, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admin.ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		p.LastLogin = &t
	}
	var keys []string
	_ = json.Unmarshal(permissions, &keys)
	p.Permissions = make(map[string]struct{}, len(keys))
	for _, k := range keys {
		p.Permissions[k] = struct{}{}
	}

	tokens, err := s.tokensForPrincipal(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Tokens = tokens
	return &p, nil
}

func (s *Store) tokensForPrincipal(ctx context.Context, principalID string) ([]admin.Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		select digest, expires_at, last_used, created_at
		from admin_tokens
		where principal_id = $1
		order by created_at asc
	`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []admin.Token
	for rows.Next() {
		var (
			t         admin.Token
			expiresAt sql.NullTime
			lastUsed  sql.NullTime
		)
		if err := rows.Scan(&t.Digest, &expiresAt, &lastUsed, &t.CreatedAt); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			v := expiresAt.Time
			t.ExpiresAt = &v
		}
		if lastUsed.Valid {
			v := lastUsed.Time
			t.LastUsed = &v
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// TouchToken records credential usage. Two independent single-row updates;
// losing one to a crash is acceptable bookkeeping drift.
func (s *Store) TouchToken(ctx context.Context, principalID, digest string, usedAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`update admin_tokens set last_used = $1 where principal_id = $2 and digest = $3`,
		usedAt, principalID, digest,
	); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`update admin_principals set last_login = $1, updated_at = $1 where id = $2`,
		usedAt, principalID,
	)
	return err
}
