package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"givora.org/internal/obs"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(original) })
	return &buf
}

func TestLogEvent(t *testing.T) {
	buf := captureLog(t)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithAdmin(ctx, "adm-7")

	if err := LogEvent(ctx, "kyc.override", map[string]any{"user_id": "u1"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "kyc.override" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["admin_id"] != "adm-7" {
		t.Fatalf("unexpected admin id: %v", entry["admin_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["user_id"] != "u1" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}

func TestLogEventWithoutContextMetadata(t *testing.T) {
	buf := captureLog(t)

	if err := LogEvent(context.Background(), "rate_limit_exceeded", nil); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatal("expected no request_id when context carries none")
	}
	if _, ok := entry["admin_id"]; ok {
		t.Fatal("expected no admin_id when context carries none")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" {
		t.Fatal("expected empty request id on bare context")
	}
	if _, ok := AdminFromContext(ctx); ok {
		t.Fatal("expected no admin on bare context")
	}

	ctx = WithRequestID(ctx, " ")
	if RequestIDFromContext(ctx) != "" {
		t.Fatal("expected blank request id to be ignored")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithAdmin(ctx, "adm-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("expected stored request id")
	}
	if adminID, ok := AdminFromContext(ctx); !ok || adminID != "adm-1" {
		t.Fatalf("expected stored admin id, got %q (%v)", adminID, ok)
	}
}
