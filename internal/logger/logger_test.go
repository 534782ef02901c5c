package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
)

// captureJSON swaps the package logger for a JSON logger writing to buf.
func captureJSON(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	t.Cleanup(func() { logger.Logger = original })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerInitialization(t *testing.T) {
	if logger.Logger == nil {
		t.Fatal("Logger should be initialized on package load")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := logger.ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if logger.ParseFormat("Human") != logger.FormatHuman {
		t.Error("expected human format")
	}
	if logger.ParseFormat("json") != logger.FormatJSON {
		t.Error("expected json format")
	}
	if logger.ParseFormat("xml") != logger.FormatJSON {
		t.Error("unknown format should fall back to json")
	}
}

func TestWithRun(t *testing.T) {
	buf := captureJSON(t, slog.LevelDebug)

	runLogger := logger.WithRun(logger.RunContext{
		RunID:         "run-123",
		InputRoot:     "/data/in",
		OutputRoot:    "/data/out",
		Workers:       4,
		IdentityField: "signature",
		Filters:       []string{"status", "condition"},
	})
	runLogger.Info("test log")

	entry := decodeEntry(t, buf)
	want := map[string]interface{}{
		"run_id":         "run-123",
		"input":          "/data/in",
		"output":         "/data/out",
		"workers":        float64(4),
		"identity_field": "signature",
		"filters":        "status,condition",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestRunContextPartialFields(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)

	logger.LogRunStart(logger.RunContext{RunID: "run-min"}, 0)

	entry := decodeEntry(t, buf)
	if entry["msg"] != "run started" {
		t.Errorf("msg = %v, want 'run started'", entry["msg"])
	}
	for _, absent := range []string{"input", "output", "workers", "identity_field", "filters"} {
		if _, ok := entry[absent]; ok {
			t.Errorf("unexpected field %q in minimal context", absent)
		}
	}
	if files, ok := entry["files"].(float64); !ok || files != 0 {
		t.Errorf("files = %v, want 0", entry["files"])
	}
}

func TestLogRunEnd(t *testing.T) {
	tests := []struct {
		status    string
		wantMsg   string
		wantLevel string
	}{
		{"success", "run completed", "INFO"},
		{"partial", "run finished with failures", "WARN"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			buf := captureJSON(t, slog.LevelInfo)

			logger.LogRunEnd(logger.RunContext{RunID: "run-789"}, tt.status, logger.RunMetrics{
				Elapsed:            2500 * time.Millisecond,
				Files:              3,
				FailedFiles:        1,
				RecordsRead:        100,
				RecordsAdmitted:    80,
				DistinctIdentities: 80,
			})

			entry := decodeEntry(t, buf)
			if entry["msg"] != tt.wantMsg || entry["level"] != tt.wantLevel {
				t.Errorf("got %v/%v, want %v/%v", entry["msg"], entry["level"], tt.wantMsg, tt.wantLevel)
			}
			if entry["status"] != tt.status {
				t.Errorf("status = %v", entry["status"])
			}
			if v, ok := entry["records_admitted"].(float64); !ok || int(v) != 80 {
				t.Errorf("records_admitted = %v, want 80", entry["records_admitted"])
			}
			if entry["duration"] == nil {
				t.Error("expected duration to be present")
			}
		})
	}
}

func TestLogFileEnd(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)

	ctx := logger.FileContext{RunID: "run-1", File: "a.jsonl"}
	counts := logger.FileCounts{LinesRead: 10, Admitted: 6, Duplicates: 2, Filtered: 1, Malformed: 1}
	logger.LogFileEnd(ctx, counts, 15*time.Millisecond, nil)

	entry := decodeEntry(t, buf)
	if entry["msg"] != "file completed" || entry["file"] != "a.jsonl" || entry["run_id"] != "run-1" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if v, ok := entry["duplicates"].(float64); !ok || int(v) != 2 {
		t.Errorf("duplicates = %v, want 2", entry["duplicates"])
	}

	buf.Reset()
	logger.LogFileEnd(ctx, counts, time.Millisecond, errors.New("disk full"))
	entry = decodeEntry(t, buf)
	if entry["msg"] != "file failed" || entry["level"] != "ERROR" || entry["error"] != "disk full" {
		t.Errorf("unexpected failure entry: %v", entry)
	}
}

func TestLogFileStartIsDebug(t *testing.T) {
	buf := captureJSON(t, slog.LevelInfo)
	logger.LogFileStart(logger.FileContext{File: "a.jsonl"})
	if buf.Len() != 0 {
		t.Errorf("file start should only log at debug level, got %s", buf.String())
	}
}

func TestConsistentFieldNames(t *testing.T) {
	buf := captureJSON(t, slog.LevelDebug)

	logger.WithFile(logger.FileContext{RunID: "r", File: "f"}).Info("x")
	logger.LogFileEnd(logger.FileContext{RunID: "r", File: "f"}, logger.FileCounts{}, 0, nil)

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		for key := range entry {
			if strings.ToLower(key) != key || strings.Contains(key, "-") {
				t.Errorf("field %q is not snake_case", key)
			}
		}
	}
}

func TestLogError(t *testing.T) {
	buf := captureJSON(t, slog.LevelError)

	base := errors.New("permission denied")
	logger.LogError("file failed", logger.ErrorContext{
		RunID:         "run-err",
		File:          "b.jsonl",
		Line:          42,
		ErrorCategory: "file_io",
		Err:           fmt.Errorf("opening output: %w", base),
		Extra:         map[string]interface{}{"attempt": 3},
	})

	entry := decodeEntry(t, buf)
	checks := map[string]interface{}{
		"msg":            "file failed",
		"level":          "ERROR",
		"run_id":         "run-err",
		"file":           "b.jsonl",
		"line":           float64(42),
		"error_category": "file_io",
		"error":          "opening output: permission denied",
		"error_chain":    "opening output: permission denied -> permission denied",
		"attempt":        float64(3),
	}
	for k, v := range checks {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestLogErrorMinimalContext(t *testing.T) {
	buf := captureJSON(t, slog.LevelError)

	logger.LogError("something went wrong", logger.ErrorContext{})

	entry := decodeEntry(t, buf)
	for _, absent := range []string{"run_id", "file", "line", "error", "error_chain"} {
		if _, ok := entry[absent]; ok {
			t.Errorf("unexpected field %q", absent)
		}
	}
}

func TestHumanHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelInfo})

	slog.New(handler).With("run_id", "r1").Info("test message", "key", "value")

	output := buf.String()
	for _, want := range []string{"test message", "ℹ", "key=value", "run_id=r1"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q does not contain %q", output, want)
		}
	}
	if strings.Index(output, "key=value") > strings.Index(output, "run_id=r1") {
		t.Errorf("record attributes should come before context attributes: %q", output)
	}
}

func TestHumanHandlerLevels(t *testing.T) {
	tests := []struct {
		level   slog.Level
		msg     string
		wantPfx string
	}{
		{slog.LevelError, "test", "✗"},
		{slog.LevelWarn, "test", "⚠"},
		{slog.LevelInfo, "test", "ℹ"},
		{slog.LevelInfo, "file completed", "✓"},
		{slog.LevelDebug, "test", "·"},
	}

	for _, tt := range tests {
		t.Run(tt.level.String()+"/"+tt.msg, func(t *testing.T) {
			var buf bytes.Buffer
			handler := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelDebug})
			slog.New(handler).Log(context.Background(), tt.level, tt.msg)

			if !strings.Contains(buf.String(), tt.wantPfx) {
				t.Errorf("output %q missing prefix %q", buf.String(), tt.wantPfx)
			}
		})
	}
}

func TestHumanHandlerFormatting(t *testing.T) {
	var buf bytes.Buffer
	handler := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelInfo})

	slog.New(handler).WithGroup("stats").Info("metrics",
		"duration", 2500*time.Millisecond,
		"rate", 12.3456,
		"a", 1, "b", 2, "c", 3, "d", 4, "e", 5,
	)

	output := buf.String()
	for _, want := range []string{"stats.duration=2.50s", "stats.rate=12.35", "(+2 more)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q does not contain %q", output, want)
		}
	}
}

func TestHumanHandlerConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	handler := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelInfo})
	log := slog.New(handler)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.With("worker", i).Info("line")
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 16 {
		t.Fatalf("got %d lines, want 16", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "line worker=") {
			t.Errorf("interleaved line: %q", line)
		}
	}
}

func TestSetOutputAndFormat(t *testing.T) {
	original := logger.Logger
	defer func() {
		logger.SetOutput(os.Stderr, slog.LevelInfo, logger.FormatJSON)
		logger.Logger = original
	}()

	var buf bytes.Buffer
	logger.SetOutput(&buf, slog.LevelWarn, logger.FormatHuman)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestFormatMetricsHuman(t *testing.T) {
	formatted := logger.FormatMetricsHuman(logger.RunMetrics{
		Elapsed:          5 * time.Second,
		Files:            4,
		FailedFiles:      1,
		RecordsRead:      1000,
		RecordsAdmitted:  750,
		RecordsPerSecond: 200.0,
	})

	for _, want := range []string{"750 of 1000 records", "4 files", "5.00s", "200.0 records/sec", "1 files failed"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("%q does not contain %q", formatted, want)
		}
	}
}

func TestSetLogFile(t *testing.T) {
	original := logger.Logger
	defer func() {
		logger.CloseLogFile()
		logger.Logger = original
	}()

	path := filepath.Join(t.TempDir(), "cleaner.log")
	if err := logger.SetLogFile(path, slog.LevelInfo, logger.FormatJSON); err != nil {
		t.Fatalf("SetLogFile failed: %v", err)
	}
	logger.Info("test log message", "key", "value")
	logger.CloseLogFile()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry["msg"] == "test log message" {
			if entry["key"] != "value" {
				t.Errorf("key = %v, want value", entry["key"])
			}
			return
		}
	}
	t.Error("Expected to find test log message in log file")
}

func TestSetLogFileRotates(t *testing.T) {
	original := logger.Logger
	defer func() {
		logger.CloseLogFile()
		logger.Logger = original
	}()

	dir := t.TempDir()
	path := filepath.Join(dir, "big.log")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 10*1024*1024), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := logger.SetLogFile(path, slog.LevelInfo, logger.FormatJSON); err != nil {
		t.Fatalf("SetLogFile failed: %v", err)
	}
	logger.CloseLogFile()

	matches, _ := filepath.Glob(path + ".*")
	if len(matches) != 1 {
		t.Errorf("rotated files = %v, want exactly one", matches)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() >= 10*1024*1024 {
		t.Errorf("log file was not rotated (size %d)", info.Size())
	}
}

func TestCloseLogFile(t *testing.T) {
	original := logger.Logger
	defer func() { logger.Logger = original }()

	logger.CloseLogFile()

	path := filepath.Join(t.TempDir(), "close.log")
	if err := logger.SetLogFile(path, slog.LevelInfo, logger.FormatJSON); err != nil {
		t.Fatalf("SetLogFile failed: %v", err)
	}
	logger.CloseLogFile()
	logger.CloseLogFile()
}
