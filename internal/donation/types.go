package donation

import (
	"context"
	"errors"
	"time"
)

// Donation is a completed gift. Amounts are minor units (e.g., cents); no floats.
type Donation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrNotFound = errors.New("donation: not found")

// Store is the transaction collaborator consumed by the risk engine. Only the
// velocity query is needed here; payment capture lives elsewhere.
type Store interface {
	CountByUserSince(ctx context.Context, userID string, since, until time.Time) (int, error)
}
