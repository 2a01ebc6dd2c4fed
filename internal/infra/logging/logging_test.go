//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"portrait-studio/internal/config"
)

func TestWithAttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithDeviceID(ctx, "dev-1")
	ctx = WithGenerationID(ctx, "01HXYZ")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{"trace_id": "t-1", "device_id": "dev-1", "generation_id": "01HXYZ", "message": "hello"} {
		if line[k] != want {
			t.Errorf("field %s = %v, want %s", k, line[k], want)
		}
	}
	if TraceIDFrom(ctx) != "t-1" {
		t.Errorf("TraceIDFrom returned %q", TraceIDFrom(ctx))
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %s", buf.String())
	}
	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Error("warn should be written")
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("device-123456", true); got != "device-123456" {
		t.Errorf("dev mode should not redact, got %s", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("short values should be masked, got %s", got)
	}
	if got := Redact("device-123456", false); got != "devi...56" {
		t.Errorf("unexpected redaction %s", got)
	}
}
