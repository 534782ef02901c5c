package filter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestScriptFilter(t *testing.T) {
	f, err := NewScriptFromConfig(ScriptConfig{
		Script: `function keep(r) { return r.meta && r.meta.fee >= 5000 && r.signature.length > 0; }`,
	})
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error: %v", err)
	}

	tests := []struct {
		line string
		want bool
	}{
		{line: `{"signature":"a","meta":{"fee":5000}}`, want: true},
		{line: `{"signature":"a","meta":{"fee":10}}`, want: false},
		{line: `{"signature":"a"}`, want: false},
	}
	for _, tt := range tests {
		if got := f.Keep(mustRecord(t, tt.line)); got != tt.want {
			t.Errorf("Keep(%s) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestScriptFilterOnError(t *testing.T) {
	src := `function keep(r) { if (!r.ok) { throw new Error("bad record"); } return true; }`

	drop, err := NewScriptFromConfig(ScriptConfig{Script: src})
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error: %v", err)
	}
	if drop.Keep(mustRecord(t, `{"ok":false}`)) {
		t.Error("throwing script should drop by default")
	}
	if !drop.Keep(mustRecord(t, `{"ok":true}`)) {
		t.Error("runtime should be reusable after an exception")
	}

	keep, err := NewScriptFromConfig(ScriptConfig{Script: src, OnError: OnErrorKeep})
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error: %v", err)
	}
	if !keep.Keep(mustRecord(t, `{"ok":false}`)) {
		t.Error("throwing script should keep with onError=keep")
	}
}

func TestScriptFilterTimeout(t *testing.T) {
	f, err := NewScriptFromConfig(ScriptConfig{
		Script:  `function keep(r) { if (r.spin) { while (true) {} } return true; }`,
		Timeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error: %v", err)
	}

	if f.Keep(mustRecord(t, `{"spin":true}`)) {
		t.Error("interrupted script should drop")
	}
	if !f.Keep(mustRecord(t, `{"spin":false}`)) {
		t.Error("filter should recover after an interrupted call")
	}
}

func TestScriptFilterConcurrent(t *testing.T) {
	f, err := NewScriptFromConfig(ScriptConfig{Script: `function keep(r) { return r.n % 2 === 0; }`})
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error: %v", err)
	}
	even := mustRecord(t, `{"n":2}`)
	odd := mustRecord(t, `{"n":3}`)

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !f.Keep(even) || f.Keep(odd) {
					errs <- "inconsistent verdict"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestScriptFilterFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.js")
	if err := os.WriteFile(path, []byte(`function keep(r) { return r.slot > 10; }`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseScriptConfig(map[string]interface{}{"scriptFile": path, "timeoutMs": float64(50)})
	if err != nil {
		t.Fatalf("ParseScriptConfig() error: %v", err)
	}
	if cfg.Timeout != 50*time.Millisecond {
		t.Errorf("Timeout = %v, want 50ms", cfg.Timeout)
	}
	f, err := NewScriptFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewScriptFromConfig() error: %v", err)
	}
	if !f.Keep(mustRecord(t, `{"slot":11}`)) {
		t.Error("expected record to be kept")
	}
}

func TestScriptFilterConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		config   ScriptConfig
		wantCode string
	}{
		{name: "empty", config: ScriptConfig{Script: "  \n"}, wantCode: ErrCodeScriptEmpty},
		{name: "too long", config: ScriptConfig{Script: "function keep(r){return true}//" + strings.Repeat("x", MaxScriptLength)}, wantCode: ErrCodeScriptTooLong},
		{name: "syntax error", config: ScriptConfig{Script: "function keep(r) {"}, wantCode: ErrCodeCompilationFailed},
		{name: "no keep", config: ScriptConfig{Script: "function transform(r) { return r; }"}, wantCode: ErrCodeMissingKeep},
		{name: "keep not a function", config: ScriptConfig{Script: "var keep = 1;"}, wantCode: ErrCodeNotFunction},
		{name: "both sources", config: ScriptConfig{Script: "x", ScriptFile: "y.js"}, wantCode: ErrCodeInvalidScriptFile},
		{name: "traversal", config: ScriptConfig{ScriptFile: "../secret.js"}, wantCode: ErrCodeInvalidScriptFile},
		{name: "missing file", config: ScriptConfig{ScriptFile: "does-not-exist.js"}, wantCode: ErrCodeScriptFileReadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScriptFromConfig(tt.config)
			var scriptErr *ScriptError
			if !errors.As(err, &scriptErr) {
				t.Fatalf("error = %v, want *ScriptError", err)
			}
			if scriptErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", scriptErr.Code, tt.wantCode)
			}
		})
	}

	if _, err := NewScriptFromConfig(ScriptConfig{Script: "function keep(r) { return true; }", OnError: "retry"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad onError: err = %v, want ErrInvalidConfig", err)
	}
	if _, err := ParseScriptConfig(map[string]interface{}{}); err == nil {
		t.Error("ParseScriptConfig without a source should fail")
	}
	if _, err := ParseScriptConfig(map[string]interface{}{"script": "x", "timeoutMs": float64(-1)}); err == nil {
		t.Error("negative timeout should fail")
	}
}
