package kyc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"givora.org/internal/audit"
	"givora.org/internal/ids"
	"givora.org/internal/obs"
	"givora.org/internal/risk"
)

// Scorer triggers a risk recomputation after an override changes the
// verification signal the engine depends on.
type Scorer interface {
	ComputeScore(ctx context.Context, userID string) (risk.Profile, error)
}

// Service is the admin control plane for verification records. Authentication
// happens in the HTTP layer; every method here assumes a verified admin and
// receives its identity explicitly.
type Service struct {
	docs   DocumentStore
	audits OverrideAuditStore
	scorer Scorer
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the control plane service.
func NewService(docs DocumentStore, audits OverrideAuditStore, scorer Scorer, opts ...Option) *Service {
	s := &Service{docs: docs, audits: audits, scorer: scorer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report returns verification records matching the optional filters verbatim
// from the document store.
func (s *Service) Report(ctx context.Context, f ReportFilter) ([]Document, error) {
	f.Status = strings.TrimSpace(f.Status)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	return s.docs.VerificationReport(ctx, f)
}

// Details returns one verification record for admin inspection.
func (s *Service) Details(ctx context.Context, id string) (*Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.docs.DocumentDetails(ctx, id)
}

// OverrideResult reports what the override changed.
type OverrideResult struct {
	UserID         string        `json:"user_id"`
	Status         string        `json:"status"`
	Profile        *risk.Profile `json:"risk_profile,omitempty"`
	ScoreRefreshed bool          `json:"score_refreshed"`
}

// Override forces a verification status for a user. All three fields are
// required; nothing is mutated when validation fails. On success exactly one
// audit record is written and exactly one score recomputation is triggered.
// A refresh failure does not roll back the override; the stale score catches
// up on the next computation.
func (s *Service) Override(ctx context.Context, adminID string, req OverrideRequest) (*OverrideResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Status = strings.TrimSpace(req.Status)
	req.Reason = strings.TrimSpace(req.Reason)
	switch {
	case req.UserID == "":
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	case req.Status == "":
		return nil, fmt.Errorf("%w: status is required", ErrInvalidInput)
	case req.Reason == "":
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if strings.TrimSpace(adminID) == "" {
		return nil, fmt.Errorf("%w: admin identity is required", ErrInvalidInput)
	}

	if err := s.docs.AdminOverrideVerification(ctx, req.UserID, req.Status, req.Reason); err != nil {
		return nil, fmt.Errorf("override verification: %w", err)
	}

	entry := &OverrideAudit{
		ID:        ids.New(),
		UserID:    req.UserID,
		Status:    req.Status,
		Reason:    req.Reason,
		AdminID:   adminID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.audits.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append override audit: %w", err)
	}
	obs.IncOverride()
	_ = audit.LogEvent(ctx, "kyc.override", map[string]any{
		"user_id": req.UserID,
		"status":  req.Status,
		"reason":  req.Reason,
	})

	result := &OverrideResult{UserID: req.UserID, Status: req.Status}
	profile, err := s.scorer.ComputeScore(ctx, req.UserID)
	if err != nil {
		_ = audit.LogEvent(ctx, "kyc.override.refresh_failed", map[string]any{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
		return result, nil
	}
	result.Profile = &profile
	result.ScoreRefreshed = true
	return result, nil
}
