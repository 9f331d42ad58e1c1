package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"givora.org/internal/kyc"
)

func TestVerificationReportNoFilters(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select id, user_id, doc_type, status, reason, submitted_at, reviewed_at from verification_documents order by submitted_at desc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "doc_type", "status", "reason", "submitted_at", "reviewed_at"}).
			AddRow("d2", "u1", "passport", "pending", nil, now, nil).
			AddRow("d1", "u2", "id_card", "approved", "looks fine", now.Add(-time.Hour), now))

	docs, err := store.VerificationReport(context.Background(), kyc.ReportFilter{})
	if err != nil {
		t.Fatalf("VerificationReport: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "d2" || docs[0].Reason != "" || docs[0].ReviewedAt != nil {
		t.Fatalf("unexpected first document %+v", docs[0])
	}
	if docs[1].Reason != "looks fine" || docs[1].ReviewedAt == nil {
		t.Fatalf("unexpected second document %+v", docs[1])
	}
}

func TestVerificationReportWithFilters(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, user_id, doc_type, status, reason, submitted_at, reviewed_at from verification_documents where status = .* and submitted_at >= .* and submitted_at < .*").
		WithArgs("pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "doc_type", "status", "reason", "submitted_at", "reviewed_at"}))

	_, err := store.VerificationReport(context.Background(), kyc.ReportFilter{
		Status:    "pending",
		StartDate: "2026-01-01",
		EndDate:   "2026-02-01",
	})
	if err != nil {
		t.Fatalf("VerificationReport: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVerificationReportBadDate(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.VerificationReport(context.Background(), kyc.ReportFilter{StartDate: "not-a-date"})
	if !errors.Is(err, kyc.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAdminOverrideVerification(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update verification_documents").
		WithArgs("approved", "manual check", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.AdminOverrideVerification(context.Background(), "u1", "approved", "manual check"); err != nil {
		t.Fatalf("AdminOverrideVerification: %v", err)
	}
}

func TestAdminOverrideVerificationNoDocument(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update verification_documents").
		WithArgs("approved", "manual check", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.AdminOverrideVerification(context.Background(), "ghost", "approved", "manual check")
	if !errors.Is(err, kyc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentDetailsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, user_id, doc_type, status, reason, submitted_at, reviewed_at.*from verification_documents").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "doc_type", "status", "reason", "submitted_at", "reviewed_at"}))

	_, err := store.DocumentDetails(context.Background(), "missing")
	if !errors.Is(err, kyc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendOverrideAudit(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("insert into override_audits").
		WithArgs("aud-1", "u1", "approved", "manual check", "adm-1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &kyc.OverrideAudit{
		ID: "aud-1", UserID: "u1", Status: "approved",
		Reason: "manual check", AdminID: "adm-1", CreatedAt: now,
	}
	if err := store.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
