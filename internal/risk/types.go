package risk

import (
	"context"
	"errors"
	"time"
)

// Level buckets a score for display and policy decisions.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// LevelForScore derives the bucket: high at 70 and above, medium at 40 and
// above, low below that.
func LevelForScore(score int) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Profile is the persisted scoring result embedded on the user entity.
type Profile struct {
	Score     int       `json:"score"`
	Level     Level     `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is the slice of the platform user the engine needs.
type User struct {
	ID      string
	Country string
	Profile Profile
}

var (
	ErrNotFound = errors.New("risk: user not found")
	ErrCompute  = errors.New("risk: compute failed")
)

// UserStore reads users and persists scoring results. UpdateProfile is a
// single-row write; a failure leaves the stored profile untouched.
type UserStore interface {
	Find(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, p Profile) error
}

// VerificationStatus mirrors the provider's binary signal.
type VerificationStatus struct {
	Success  bool
	Verified bool
}

// VerificationProvider is the external identity-verification collaborator.
type VerificationProvider interface {
	GetVerificationStatus(ctx context.Context, userID string) (VerificationStatus, error)
}
