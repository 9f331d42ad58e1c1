package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"givora.org/internal/kyc"
)

var (
	_ kyc.DocumentStore      = (*Store)(nil)
	_ kyc.OverrideAuditStore = (*Store)(nil)
)

// VerificationReport lists verification documents, newest first. Filters are
// ANDed; an unparseable date filter is an input error, not an empty result.
func (s *Store) VerificationReport(ctx context.Context, f kyc.ReportFilter) ([]kyc.Document, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if f.StartDate != "" {
		t, err := parseFilterDate(f.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date: %v", kyc.ErrInvalidInput, err)
		}
		args = append(args, t)
		where = append(where, "submitted_at >= $"+strconv.Itoa(len(args)))
	}
	if f.EndDate != "" {
		t, err := parseFilterDate(f.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date: %v", kyc.ErrInvalidInput, err)
		}
		// A bare date means "through the end of that day".
		if len(f.EndDate) == len("2006-01-02") {
			t = t.Add(24 * time.Hour)
		}
		args = append(args, t)
		where = append(where, "submitted_at < $"+strconv.Itoa(len(args)))
	}

	q := `select id, user_id, doc_type, status, reason, submitted_at, reviewed_at from verification_documents`
	if len(where) > 0 {
		q += " where " + strings.Join(where, " and ")
	}
	q += " order by submitted_at desc"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []kyc.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func parseFilterDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// AdminOverrideVerification forces the status of the user's most recent
// verification document and marks it reviewed.
func (s *Store) AdminOverrideVerification(ctx context.Context, userID, status, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		update verification_documents
		set status = $1, reason = $2, reviewed_at = now()
		where id = (
			select id from verification_documents
			where user_id = $3
			order by submitted_at desc
			limit 1
		)
	`, status, reason, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return kyc.ErrNotFound
	}
	return nil
}

// DocumentDetails returns one verification document by id.
func (s *Store) DocumentDetails(ctx context.Context, id string) (*kyc.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, doc_type, status, reason, submitted_at, reviewed_at
		from verification_documents
		where id = $1
	`, id)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kyc.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*kyc.Document, error) {
	var (
		d        kyc.Document
		reason   sql.NullString
		reviewed sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.UserID, &d.Type, &d.Status, &reason, &d.SubmittedAt, &reviewed); err != nil {
		return nil, err
	}
	if reason.Valid {
		d.Reason = reason.String
	}
	if reviewed.Valid {
		t := reviewed.Time
		d.ReviewedAt = &t
	}
	return &d, nil
}

// Append writes an immutable override audit row.
func (s *Store) Append(ctx context.Context, entry *kyc.OverrideAudit) error {
	_, err := s.db.ExecContext(ctx, `
		insert into override_audits (id, user_id, status, reason, admin_id, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.Status, entry.Reason, entry.AdminID, entry.CreatedAt)
	return err
}
