package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"givora.org/internal/audit"
	"givora.org/internal/donation"
	"givora.org/internal/obs"
)

// Factor weights of the additive point model. Factors are evaluated
// independently, summed, then clamped to 100.
const (
	pointsHighRiskCountry = 40
	pointsVelocity        = 20
	pointsUnverified      = 30

	velocityWindow    = 24 * time.Hour
	velocityThreshold = 10
)

// Engine computes fraud risk scores. It is stateless apart from its
// configuration; every computation reads fresh collaborator data, so the
// velocity factor legitimately drifts as the 24h window moves.
type Engine struct {
	users     UserStore
	donations donation.Store
	provider  VerificationProvider

	highRisk map[string]struct{}
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithHighRiskCountries replaces the default country set. Matching is
// case-insensitive.
func WithHighRiskCountries(codes []string) Option {
	return func(e *Engine) {
		if len(codes) == 0 {
			return
		}
		set := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c != "" {
				set[c] = struct{}{}
			}
		}
		if len(set) > 0 {
			e.highRisk = set
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

var defaultHighRisk = map[string]struct{}{
	"KP": {}, "IR": {}, "SY": {}, "CU": {}, "MM": {},
}

// NewEngine constructs an Engine.
func NewEngine(users UserStore, donations donation.Store, provider VerificationProvider, opts ...Option) *Engine {
	e := &Engine{
		users:     users,
		donations: donations,
		provider:  provider,
		highRisk:  defaultHighRisk,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeScore evaluates all factors for the user, persists the result and
// returns it. Missing user maps to ErrNotFound with no mutation; a store
// failure maps to ErrCompute and leaves the stored profile untouched.
func (e *Engine) ComputeScore(ctx context.Context, userID string) (Profile, error) {
	user, err := e.users.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("%w: load user: %v", ErrCompute, err)
	}

	now := e.now()
	score := 0

	if _, ok := e.highRisk[strings.ToUpper(strings.TrimSpace(user.Country))]; ok {
		score += pointsHighRiskCountry
	}

	count, err := e.donations.CountByUserSince(ctx, userID, now.Add(-velocityWindow), now)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: count donations: %v", ErrCompute, err)
	}
	if count > velocityThreshold {
		score += pointsVelocity
	}

	// Fail toward suspicion: a provider error or timeout scores the same as
	// an explicit "not verified".
	status, err := e.provider.GetVerificationStatus(ctx, userID)
	if err != nil {
		_ = audit.LogEvent(ctx, "risk.provider.unavailable", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	if err != nil || !status.Success || !status.Verified {
		score += pointsUnverified
	}

	if score > 100 {
		score = 100
	}
	profile := Profile{
		Score:     score,
		Level:     LevelForScore(score),
		UpdatedAt: now.UTC(),
	}

	if err := e.users.UpdateProfile(ctx, userID, profile); err != nil {
		return Profile{}, fmt.Errorf("%w: persist profile: %v", ErrCompute, err)
	}

	obs.IncRiskComputed(string(profile.Level))
	_ = audit.LogEvent(ctx, "risk.score.computed", map[string]any{
		"user_id": userID,
		"score":   profile.Score,
		"level":   string(profile.Level),
	})
	return profile, nil
}
