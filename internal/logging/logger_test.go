package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestJSONFormatWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: FormatJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.WithContext(&LogContext{JobID: "job-1", Model: "m"}).Info("run %d done", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "run 3 done" {
		t.Errorf("message = %v, want %q", entry["message"], "run 3 done")
	}
	if entry["job_id"] != "job-1" || entry["model"] != "m" {
		t.Errorf("context fields missing: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Errorf("timestamp field missing: %v", entry)
	}
}

func TestCloudFoundryDefaultsToJSON(t *testing.T) {
	t.Setenv("VCAP_APPLICATION", `{"application_name":"bench"}`)

	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Warn("hello")

	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output on Cloud Foundry, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: FormatText, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	logger.InfoWithFields("hidden too", map[string]interface{}{"k": 1})
	logger.WarnWithFields("visible", map[string]interface{}{"failed": 2})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "failed=2") {
		t.Errorf("warn message missing: %q", out)
	}
	if logger.DebugEnabled() {
		t.Error("DebugEnabled() = true at warn level")
	}
}
