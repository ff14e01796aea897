// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{
		Level:     "debug",
		Format:    "json",
		Timestamp: true,
		Output:    &buf,
	})

	Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.Disabled},
		{"INFO", zerolog.InfoLevel},
		{"invalid", zerolog.InfoLevel}, // default
		{"", zerolog.InfoLevel},        // empty
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCtxAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1234")
	Ctx(ctx).Info().Msg("with request id")

	output := buf.String()
	if !strings.Contains(output, `"request_id":"req-1234"`) {
		t.Errorf("expected request_id field, got: %s", output)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()

	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx := ContextWithNewRequestID(context.Background())
	if got := RequestIDFromContext(ctx); got == "" {
		t.Error("expected generated request ID, got empty")
	}
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	stored := NewTestLogger(&buf)

	ctx := ContextWithLogger(context.Background(), stored)
	got := LoggerFromContext(ctx)
	got.Info().Msg("stored logger")

	if !strings.Contains(buf.String(), "stored logger") {
		t.Error("expected context logger to be used")
	}
}

func TestSanitizers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fn       func(string) string
		input    string
		expected string
	}{
		{"token masked", SanitizeToken, "eyJhbGciOiJSUzI1NiIs", "eyJh...NiIs"},
		{"short token", SanitizeToken, "abc", "***"},
		{"empty token", SanitizeToken, "", ""},
		{"user id masked", SanitizeUserID, "user-12345678", "user...5678"},
		{"short user id", SanitizeUserID, "u1", "***"},
		{"username masked", SanitizeUsername, "johndoe", "jo***"},
		{"email masked", SanitizeEmail, "john.doe@example.com", "jo***@example.com"},
		{"short email local", SanitizeEmail, "jd@example.com", "***@example.com"},
		{"malformed email", SanitizeEmail, "@example.com", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.fn(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizeErrorRemovesSecrets(t *testing.T) {
	t.Parallel()

	if got := SanitizeError("invalid password for user"); got != "authentication error" {
		t.Errorf("expected generic message, got %q", got)
	}
	if got := SanitizeError("connection refused"); got != "connection refused" {
		t.Errorf("expected error preserved, got %q", got)
	}
}

func TestSecurityLoggerLoginFailure(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	sl := NewSecurityLogger()
	sl.LogLoginFailure("johndoe", "local", "10.0.0.1", "test-agent", "invalid password")

	output := buf.String()
	if !strings.Contains(output, `"event":"login_failed"`) {
		t.Errorf("expected login_failed event, got: %s", output)
	}
	if !strings.Contains(output, `"username":"jo***"`) {
		t.Errorf("expected sanitized username, got: %s", output)
	}
	if strings.Contains(output, "invalid password") {
		t.Errorf("expected sanitized error, got: %s", output)
	}
}

func TestSlogAdapterWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", "service", "hub")

	output := buf.String()
	if !strings.Contains(output, "supervisor event") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"service":"hub"`) {
		t.Errorf("expected attribute in output, got: %s", output)
	}
}
