package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, level, "json")
	return &buf
}

func TestFromContext_CarriesIDs(t *testing.T) {
	buf := captureJSON(t, "info")

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = ContextWithRunID(ctx, "run_abc")
	WithFields(ctx, "table", "users").Info("trained")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{"request_id": "req-1", "run_id": "run_abc", "table": "users", "msg": "trained"} {
		if entry[k] != want {
			t.Errorf("%s = %v, want %q", k, entry[k], want)
		}
	}
}

func TestFromContext_Bare(t *testing.T) {
	buf := captureJSON(t, "info")

	FromContext(context.Background()).Info("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if _, ok := entry["run_id"]; ok {
		t.Error("run_id should be absent without a run")
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("request_id should be absent without a request")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupWriter_FiltersBelowLevel(t *testing.T) {
	buf := captureJSON(t, "warn")

	slog.Info("hidden")
	slog.Warn("shown")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Error("info entry written at warn level")
	}
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Error("warn entry missing")
	}
}
