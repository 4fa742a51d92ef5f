package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"contentstudio/internal/config"
	"contentstudio/internal/logging"
	"contentstudio/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("hello")
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "studio.log")); err != nil {
		t.Fatalf("expected studio.log in log dir: %v", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "info",
		Outputs: []string{logPath, logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerShowsComponentAndBatch(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "info",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	component := logging.NewComponentLogger(logger, "history")
	component.Info("row skipped", logging.String(logging.FieldBatchID, "2025-01-02_101010"), logging.Int("count", 0))

	content := readLog(t, logPath)
	if !strings.Contains(content, "history[2025-01-02_101010]: row skipped") {
		t.Fatalf("expected component and batch prefix, got %q", content)
	}
	if !strings.Contains(content, "count=0") {
		t.Fatalf("expected count attribute, got %q", content)
	}
}

func TestJSONLoggerWritesStructuredFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:  "json",
		Level:   "info",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRequestID(services.WithBatchID(context.Background(), "b1"), "req-1")
	logging.WithContext(ctx, logger).Info("resolved")

	content := strings.TrimSpace(readLog(t, logPath))
	var payload map[string]any
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		t.Fatalf("decode json log %q: %v", content, err)
	}
	if payload[logging.FieldBatchID] != "b1" {
		t.Fatalf("batch_id = %v, want b1", payload[logging.FieldBatchID])
	}
	if payload[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("correlation_id = %v, want req-1", payload[logging.FieldCorrelationID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{
		Format:  "json",
		Level:   "info",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "catalog fetch failed", "catalog_fallback",
		logging.String(logging.FieldErrorHint, "check meta.base_url"))

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldEventType] != "catalog_fallback" {
		t.Fatalf("event_type = %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldErrorHint] != "check meta.base_url" {
		t.Fatalf("error_hint overwritten: %v", payload[logging.FieldErrorHint])
	}
	if _, ok := payload[logging.FieldImpact]; !ok {
		t.Fatal("expected default impact field")
	}
}

func TestConsoleLoggerShortensRequestID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-req.log")
	logger, err := logging.New(logging.Options{Level: "info", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRequestID(context.Background(), "3f2a9c1e-aaaa-bbbb-cccc-000000000000")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "api")).Info("request served", logging.Int("status", 200))

	line := strings.TrimSpace(readLog(t, logPath))
	if !strings.Contains(line, "api: request served status=200 req=3f2a9c1e") || !strings.HasSuffix(line, "req=3f2a9c1e") {
		t.Fatalf("expected short request id at end, got %q", line)
	}
	if strings.Count(readLog(t, logPath), "\n") != 1 {
		t.Fatal("duplicate outputs should be written once")
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantInfo  bool
		wantWarns bool
	}{
		{"warn", false, true},
		{"ERROR", false, false},
		{"debug", true, true},
		{"bogus", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logPath := filepath.Join(t.TempDir(), "level.log")
			logger, err := logging.New(logging.Options{Level: tt.level, Format: "json", Outputs: []string{logPath}})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("info line")
			logger.Warn("warn line")
			content := readLog(t, logPath)
			if got := strings.Contains(content, "info line"); got != tt.wantInfo {
				t.Fatalf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(content, "warn line"); got != tt.wantWarns {
				t.Fatalf("warn logged = %v, want %v", got, tt.wantWarns)
			}
		})
	}
}

func TestJSONLoggerShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "keys.log")
	logger, err := logging.New(logging.Options{Format: "json", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("stale catalog")

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" || payload["msg"] != "stale catalog" {
		t.Fatalf("unexpected payload %v", payload)
	}
	ts, _ := payload["ts"].(string)
	if len(ts) != len("2006-01-02T15:04:05.000Z") || !strings.HasSuffix(ts, "Z") {
		t.Fatalf("unexpected ts %q", ts)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "catalog")
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should be disabled at every level")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}

func TestContextFieldsEmptyContext(t *testing.T) {
	if fields := logging.ContextFields(context.Background()); len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}
