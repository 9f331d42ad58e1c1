package pg

import (
	"context"
	"time"

	"givora.org/internal/donation"
)

var _ donation.Store = (*Store)(nil)

// CountByUserSince counts donations in the half-open interval [since, until).
func (s *Store) CountByUserSince(ctx context.Context, userID string, since, until time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*)
		from donations
		where user_id = $1 and created_at >= $2 and created_at < $3
	`, userID, since, until).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
