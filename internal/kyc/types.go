package kyc

import (
	"context"
	"errors"
	"time"
)

// Document is a verification record as exposed to administrators.
type Document struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// ReportFilter narrows the verification report. Zero values mean "no filter";
// dates are passed through to the document store untouched.
type ReportFilter struct {
	Status    string
	StartDate string
	EndDate   string
}

// OverrideRequest is an admin decision to force a verification status.
type OverrideRequest struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// OverrideAudit durably records who changed what and why. Writing it is a
// correctness requirement of the override workflow, not optional logging.
type OverrideAudit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	AdminID   string    `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound     = errors.New("kyc: not found")
	ErrInvalidInput = errors.New("kyc: invalid input")
)

// DocumentStore is the verification-document collaborator.
type DocumentStore interface {
	VerificationReport(ctx context.Context, f ReportFilter) ([]Document, error)
	AdminOverrideVerification(ctx context.Context, userID, status, reason string) error
	DocumentDetails(ctx context.Context, id string) (*Document, error)
}

// OverrideAuditStore appends immutable override records.
type OverrideAuditStore interface {
	Append(ctx context.Context, entry *OverrideAudit) error
}
