package risk

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeUsers struct {
	user    *User
	findErr error

	updated    *Profile
	updateErr  error
	updateHits int
}

func (f *fakeUsers) Find(_ context.Context, _ string) (*User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.user == nil {
		return nil, ErrNotFound
	}
	return f.user, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, _ string, p Profile) error {
	f.updateHits++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = &p
	return nil
}

type fakeDonations struct {
	count int
	err   error

	since time.Time
	until time.Time
}

func (f *fakeDonations) CountByUserSince(_ context.Context, _ string, since, until time.Time) (int, error) {
	f.since, f.until = since, until
	return f.count, f.err
}

type fakeProvider struct {
	status VerificationStatus
	err    error
}

func (f *fakeProvider) GetVerificationStatus(context.Context, string) (VerificationStatus, error) {
	return f.status, f.err
}

func verifiedProvider() *fakeProvider {
	return &fakeProvider{status: VerificationStatus{Success: true, Verified: true}}
}

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{39, LevelLow},
		{40, LevelMedium},
		{69, LevelMedium},
		{70, LevelHigh},
		{100, LevelHigh},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestComputeScoreAllFactors(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1", Country: "kp"}}
	donations := &fakeDonations{count: 11}
	provider := &fakeProvider{status: VerificationStatus{Success: true, Verified: false}}
	e := NewEngine(users, donations, provider)

	profile, err := e.ComputeScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if profile.Score != 90 {
		t.Fatalf("expected score 90, got %d", profile.Score)
	}
	if profile.Level != LevelHigh {
		t.Fatalf("expected high, got %s", profile.Level)
	}
	if users.updated == nil || users.updated.Score != 90 {
		t.Fatal("expected profile to be persisted")
	}
}

func TestComputeScoreCleanUser(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1", Country: "DE"}}
	e := NewEngine(users, &fakeDonations{count: 2}, verifiedProvider())

	profile, err := e.ComputeScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if profile.Score != 0 || profile.Level != LevelLow {
		t.Fatalf("expected 0/low, got %d/%s", profile.Score, profile.Level)
	}
}

func TestComputeScoreCountryMatchIsCaseInsensitive(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1", Country: " ir "}}
	e := NewEngine(users, &fakeDonations{}, verifiedProvider())

	profile, err := e.ComputeScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if profile.Score != 40 {
		t.Fatalf("expected 40, got %d", profile.Score)
	}
}

func TestComputeScoreVelocityThresholdIsExclusive(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1", Country: "DE"}}
	donations := &fakeDonations{count: 10}
	e := NewEngine(users, donations, verifiedProvider())

	profile, err := e.ComputeScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// Exactly 10 donations in 24h does not trip the factor; 11 does.
	if profile.Score != 0 {
		t.Fatalf("expected 0 at the threshold, got %d", profile.Score)
	}

	donations.count = 11
	profile, err = e.ComputeScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if profile.Score != 20 {
		t.Fatalf("expected 20 above the threshold, got %d", profile.Score)
	}
}

func TestComputeScoreVelocityWindowIsTrailing24h(t *testing.T) {
	now := time.Unix(100000, 0)
	users := &fakeUsers{user: &User{ID: "u1", Country: "DE"}}
	donations := &fakeDonations{}
	e := NewEngine(users, donations, verifiedProvider(), WithClock(func() time.Time { return now }))

	if _, err := e.ComputeScore(context.Background(), "u1"); err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !donations.since.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("expected window start 24h back, got %v", donations.since)
	}
	if !donations.until.Equal(now) {
		t.Fatalf("expected window end now, got %v", donations.until)
	}
}

func TestComputeScoreProviderErrorScoresAsUnverified(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1", Country: "DE"}}
	provider := &fakeProvider{err: errors.New("timeout")}
	e := NewEngine(users, &fakeDonations{}, provider)

	profile, err := e.ComputeScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if profile.Score != 30 {
		t.Fatalf("expected provider failure to score 30, got %d", profile.Score)
	}
}

func TestComputeScoreClampsAt100(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1", Country: "KP"}}
	provider := &fakeProvider{status: VerificationStatus{Success: false}}
	e := NewEngine(users, &fakeDonations{count: 50}, provider,
		WithHighRiskCountries([]string{"KP"}))

	profile, err := e.ComputeScore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if profile.Score != 90 {
		t.Fatalf("expected 90 from the three factors, got %d", profile.Score)
	}
	if profile.Score > 100 {
		t.Fatalf("score must never exceed 100, got %d", profile.Score)
	}
}

func TestComputeScoreMissingUser(t *testing.T) {
	users := &fakeUsers{}
	e := NewEngine(users, &fakeDonations{}, verifiedProvider())

	_, err := e.ComputeScore(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if users.updateHits != 0 {
		t.Fatal("expected no mutation for missing user")
	}
}

func TestComputeScoreDonationStoreFailure(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1"}}
	e := NewEngine(users, &fakeDonations{err: errors.New("db down")}, verifiedProvider())

	_, err := e.ComputeScore(context.Background(), "u1")
	if !errors.Is(err, ErrCompute) {
		t.Fatalf("expected ErrCompute, got %v", err)
	}
	if users.updateHits != 0 {
		t.Fatal("expected no partial update on store failure")
	}
}

func TestComputeScorePersistFailure(t *testing.T) {
	users := &fakeUsers{user: &User{ID: "u1"}, updateErr: errors.New("write failed")}
	e := NewEngine(users, &fakeDonations{}, verifiedProvider())

	_, err := e.ComputeScore(context.Background(), "u1")
	if !errors.Is(err, ErrCompute) {
		t.Fatalf("expected ErrCompute, got %v", err)
	}
	if users.updated != nil {
		t.Fatal("expected no stored profile on persist failure")
	}
}
