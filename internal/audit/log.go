package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"givora.org/internal/obs"
)

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	adminIDKey   ctxKey = "audit_admin_id"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithAdmin attaches the verified admin identity so subsequent audit entries
// attribute actions without every call site threading the id by hand.
func WithAdmin(ctx context.Context, adminID string) context.Context {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return ctx
	}
	return context.WithValue(ctx, adminIDKey, adminID)
}

// AdminFromContext returns the admin identity recorded by WithAdmin.
func AdminFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(adminIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// LogEvent writes an audit log entry enriched with request and admin context.
// Security-relevant failures must reach this log even when the HTTP response
// collapses them into a single status code.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if adminID, ok := AdminFromContext(ctx); ok {
		entry["admin_id"] = adminID
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
