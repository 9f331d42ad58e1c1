package pg

import (
	"context"
	"database/sql"
	"errors"

	"givora.org/internal/risk"
)

var _ risk.UserStore = (*Store)(nil)

// Find loads a user with their last computed risk profile. Users scored
// never have null risk columns; a zero-value profile means "not yet scored".
func (s *Store) Find(ctx context.Context, id string) (*risk.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, country, risk_score, risk_level, risk_updated_at
		from users
		where id = $1
	`, id)

	var (
		u       risk.User
		score   sql.NullInt64
		level   sql.NullString
		updated sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Country, &score, &level, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, risk.ErrNotFound
		}
		return nil, err
	}
	if score.Valid {
		u.Profile.Score = int(score.Int64)
	}
	if level.Valid {
		u.Profile.Level = risk.Level(level.String)
	}
	if updated.Valid {
		u.Profile.UpdatedAt = updated.Time
	}
	return &u, nil
}

// UpdateProfile persists a freshly computed score.
func (s *Store) UpdateProfile(ctx context.Context, id string, p risk.Profile) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set risk_score = $1, risk_level = $2, risk_updated_at = $3, updated_at = $3
		where id = $4
	`, p.Score, string(p.Level), p.UpdatedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return risk.ErrNotFound
	}
	return nil
}
