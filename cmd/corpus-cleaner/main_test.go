package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// runCLI executes the CLI in-process and returns stdout, stderr and the
// exit code.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	return runCLIContext(t, context.Background(), args...)
}

func runCLIContext(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	exitCode = execute(ctx, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), exitCode
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// corpusDirs creates an input directory with two overlapping files.
func corpusDirs(t *testing.T) (in, out string) {
	t.Helper()
	root := t.TempDir()
	in = filepath.Join(root, "raw")
	out = filepath.Join(root, "clean")
	writeFile(t, filepath.Join(in, "a.jsonl"), strings.Join([]string{
		`{"signature":"s1","slot":10,"meta":{"err":null}}`,
		`{"signature":"s2","slot":11,"meta":{"err":{"InstructionError":[0,"Custom"]}}}`,
		`not json`,
		`{"signature":"s3","slot":12}`,
		``,
	}, "\n"))
	writeFile(t, filepath.Join(in, "b.jsonl"), strings.Join([]string{
		`{"signature":"s4","slot":200}`,
		`{"signature":"s5","slot":201,"meta":{"err":null}}`,
		`{"slot":202}`,
	}, "\n")+"\n")
	writeFile(t, filepath.Join(in, "notes.txt"), "ignored\n")
	return in, out
}

func TestCLI_Help(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "--help")
	if exitCode != ExitSuccess {
		t.Errorf("exit code = %d, want 0", exitCode)
	}
	for _, want := range []string{"corpus-cleaner", "validate", "filters", "--threads"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestCLI_Version(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "version")
	if exitCode != ExitSuccess {
		t.Errorf("exit code = %d, want 0", exitCode)
	}
	if !strings.Contains(stdout, "Version: dev") {
		t.Errorf("unexpected output: %s", stdout)
	}
}

func TestCLI_Filters(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "filters")
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	for _, want := range []string{"status", "spam", "utf8", "require", "condition", "script"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("filters output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCLI_Clean(t *testing.T) {
	in, out := corpusDirs(t)

	stdout, stderr, exitCode := runCLI(t, "-i", in, "-o", out, "-t", "2")
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", exitCode, stderr)
	}

	if got := readLines(t, filepath.Join(out, "a.jsonl")); len(got) != 2 ||
		!strings.Contains(got[0], `"s1"`) || !strings.Contains(got[1], `"s3"`) {
		t.Errorf("a.jsonl = %q", got)
	}
	if got := readLines(t, filepath.Join(out, "b.jsonl")); len(got) != 2 ||
		!strings.Contains(got[0], `"s4"`) || !strings.Contains(got[1], `"s5"`) {
		t.Errorf("b.jsonl = %q", got)
	}
	if _, err := os.Stat(filepath.Join(out, "notes.txt")); !os.IsNotExist(err) {
		t.Error("non-JSONL files should not be processed")
	}

	for _, want := range []string{"Threads: 2", "[2/2]", "Cleaning success", "Admitted:   4 records"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestCLI_CleanDeduplicatesAcrossFiles(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "raw")
	out := filepath.Join(root, "clean")
	writeFile(t, filepath.Join(in, "1.jsonl"), `{"signature":"dup","n":1}`+"\n")
	writeFile(t, filepath.Join(in, "2.jsonl"), `{"signature":"dup","n":2}`+"\n"+`{"signature":"other"}`+"\n")

	_, stderr, exitCode := runCLI(t, "-q", "-i", in, "-o", out, "-t", "4")
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", exitCode, stderr)
	}
	total := len(readLines(t, filepath.Join(out, "1.jsonl"))) + len(readLines(t, filepath.Join(out, "2.jsonl")))
	if total != 2 {
		t.Errorf("admitted %d records in total, want 2", total)
	}
}

func TestCLI_CleanWithFiltersFileAndReport(t *testing.T) {
	in, out := corpusDirs(t)
	filters := filepath.Join(t.TempDir(), "filters.yaml")
	writeFile(t, filters, `
filters:
  - type: status
  - type: condition
    config:
      expression: "slot >= 200"
`)
	reportPath := filepath.Join(t.TempDir(), "reports", "run.json")

	_, stderr, exitCode := runCLI(t, "-q", "-i", in, "-o", out, "-f", filters, "--report", reportPath)
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", exitCode, stderr)
	}
	if got := readLines(t, filepath.Join(out, "a.jsonl")); len(got) != 0 {
		t.Errorf("a.jsonl should be empty, got %q", got)
	}
	if got := readLines(t, filepath.Join(out, "b.jsonl")); len(got) != 2 {
		t.Errorf("b.jsonl = %q, want 2 records", got)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var result corpus.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if result.TotalFiles != 2 || result.TotalAdmitted != 2 || result.Status != corpus.StatusSuccess {
		t.Errorf("unexpected report: %+v", result)
	}
}

func TestCLI_IdentityFromFiltersFile(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "raw")
	out := filepath.Join(root, "clean")
	writeFile(t, filepath.Join(in, "a.jsonl"), `{"tx":{"id":"x"}}`+"\n"+`{"tx":{"id":"x"}}`+"\n"+`{"tx":{"id":"y"}}`+"\n")
	filters := filepath.Join(root, "filters.json")
	writeFile(t, filters, `{"identity": {"field": "tx.id"}}`)

	_, stderr, exitCode := runCLI(t, "-q", "-i", in, "-o", out, "-f", filters)
	if exitCode != ExitSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", exitCode, stderr)
	}
	if got := readLines(t, filepath.Join(out, "a.jsonl")); len(got) != 2 {
		t.Errorf("a.jsonl = %q, want 2 records", got)
	}
}

func TestCLI_ExitCodes(t *testing.T) {
	in, _ := corpusDirs(t)
	dir := t.TempDir()
	badSyntax := filepath.Join(dir, "bad.json")
	writeFile(t, badSyntax, `{"filters": [`)
	badSchema := filepath.Join(dir, "schema.yaml")
	writeFile(t, badSchema, "filters:\n  - config: {}\n")
	unknownType := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknownType, "filters:\n  - type: nope\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "negative threads", args: []string{"-i", in, "-o", filepath.Join(dir, "o1"), "-t", "-1"}, want: ExitValidationError},
		{name: "filter parse error", args: []string{"-i", in, "-o", filepath.Join(dir, "o2"), "-f", badSyntax}, want: ExitParseError},
		{name: "filter schema error", args: []string{"-i", in, "-o", filepath.Join(dir, "o3"), "-f", badSchema}, want: ExitValidationError},
		{name: "unknown filter type", args: []string{"-i", in, "-o", filepath.Join(dir, "o4"), "-f", unknownType}, want: ExitValidationError},
		{name: "bad log level", args: []string{"--log-level", "loud", "-i", in, "-o", filepath.Join(dir, "o5")}, want: ExitValidationError},
		{name: "missing input", args: []string{"-i", filepath.Join(dir, "absent"), "-o", filepath.Join(dir, "o6")}, want: ExitRuntimeError},
		{name: "output inside input", args: []string{"-i", in, "-o", filepath.Join(in, "clean")}, want: ExitRuntimeError},
		{name: "unexpected argument", args: []string{"extra"}, want: ExitRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, exitCode := runCLI(t, tt.args...)
			if exitCode != tt.want {
				t.Errorf("exit code = %d, want %d; stderr:\n%s", exitCode, tt.want, stderr)
			}
		})
	}
}

func TestCLI_StrictMode(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "raw")
	out := filepath.Join(root, "clean")
	writeFile(t, filepath.Join(in, "ok.jsonl"), `{"signature":"a"}`+"\n")
	// A directory named like an output blocks the rename of that file only.
	writeFile(t, filepath.Join(in, "blocked.jsonl"), `{"signature":"b"}`+"\n")
	if err := os.MkdirAll(filepath.Join(out, "blocked.jsonl", "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	_, stderr, exitCode := runCLI(t, "-q", "-i", in, "-o", out)
	if exitCode != ExitSuccess {
		t.Errorf("non-strict exit code = %d, want 0; stderr:\n%s", exitCode, stderr)
	}
	if !strings.Contains(stderr, "blocked.jsonl") {
		t.Errorf("failed file should be reported on stderr:\n%s", stderr)
	}

	_, _, exitCode = runCLI(t, "-q", "--strict", "-i", in, "-o", out)
	if exitCode != ExitFilesFailed {
		t.Errorf("strict exit code = %d, want %d", exitCode, ExitFilesFailed)
	}
}

func TestCLI_Cancelled(t *testing.T) {
	in, out := corpusDirs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdout, _, exitCode := runCLIContext(t, ctx, "-i", in, "-o", out)
	if exitCode != ExitRuntimeError {
		t.Errorf("exit code = %d, want %d", exitCode, ExitRuntimeError)
	}
	if !strings.Contains(stdout, "cancelled") {
		t.Errorf("stdout should mention cancellation:\n%s", stdout)
	}
	if _, err := os.Stat(filepath.Join(out, "a.jsonl")); !os.IsNotExist(err) {
		t.Error("no output should be written for a cancelled run")
	}
}

func TestCLI_Validate(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "filters.yaml")
	writeFile(t, valid, "identity:\n  field: signature\nfilters:\n  - type: status\n  - type: utf8\n")
	badSyntax := filepath.Join(dir, "bad.json")
	writeFile(t, badSyntax, "{\n  \"filters\": [,]\n}")
	badParams := filepath.Join(dir, "params.json")
	writeFile(t, badParams, `{"filters": [{"type": "condition", "config": {"expression": "slot >"}}]}`)

	t.Run("valid", func(t *testing.T) {
		stdout, stderr, exitCode := runCLI(t, "validate", "-v", valid)
		if exitCode != ExitSuccess {
			t.Fatalf("exit code = %d, stderr:\n%s", exitCode, stderr)
		}
		for _, want := range []string{"✓ Filter configuration is valid", "Identity: signature", "[status utf8]"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("stdout missing %q:\n%s", want, stdout)
			}
		}
	})

	t.Run("parse error", func(t *testing.T) {
		_, stderr, exitCode := runCLI(t, "validate", badSyntax)
		if exitCode != ExitParseError {
			t.Errorf("exit code = %d, want %d", exitCode, ExitParseError)
		}
		if !strings.Contains(stderr, "Parse errors") || !strings.Contains(stderr, badSyntax+":2:") {
			t.Errorf("stderr should locate the error:\n%s", stderr)
		}
	})

	t.Run("expression does not compile", func(t *testing.T) {
		_, _, exitCode := runCLI(t, "validate", badParams)
		if exitCode != ExitValidationError {
			t.Errorf("exit code = %d, want %d", exitCode, ExitValidationError)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, exitCode := runCLI(t, "validate", filepath.Join(dir, "absent.yaml"))
		if exitCode != ExitParseError {
			t.Errorf("exit code = %d, want %d", exitCode, ExitParseError)
		}
	})

	t.Run("requires an argument", func(t *testing.T) {
		_, _, exitCode := runCLI(t, "validate")
		if exitCode != ExitRuntimeError {
			t.Errorf("exit code = %d, want %d", exitCode, ExitRuntimeError)
		}
	})
}
