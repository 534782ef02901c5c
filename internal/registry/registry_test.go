package registry

import (
	"reflect"
	"testing"

	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/filter"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

func resetBuiltins(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		ClearRegistries()
		registerBuiltinFilters()
	})
}

func TestRegisterFilter(t *testing.T) {
	resetBuiltins(t)
	ClearRegistries()

	called := false
	RegisterFilter("testFilter", func(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
		called = true
		return filter.UTF8Filter{}, nil
	})

	got := GetFilterConstructor("testFilter")
	if got == nil {
		t.Fatal("expected constructor, got nil")
	}
	if _, err := got(corpus.FilterConfig{}, 0); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("constructor was not called")
	}
}

func TestGetFilterConstructorUnknown(t *testing.T) {
	if GetFilterConstructor("nonexistent") != nil {
		t.Error("expected nil for unknown type")
	}
}

func TestRegisterOverwrites(t *testing.T) {
	resetBuiltins(t)

	RegisterFilter(TypeUTF8, func(corpus.FilterConfig, int) (filter.Filter, error) {
		return filter.Func(func(corpus.Record) bool { return false }), nil
	})
	f, err := GetFilterConstructor(TypeUTF8)(corpus.FilterConfig{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if f.Keep(corpus.NewRecord(nil, map[string]interface{}{})) {
		t.Error("overwritten constructor should be used")
	}
}

func TestListFilterTypes(t *testing.T) {
	want := []string{TypeCondition, TypeRequire, TypeScript, TypeSpam, TypeStatus, TypeUTF8}
	if got := ListFilterTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("ListFilterTypes() = %v, want %v", got, want)
	}
	for _, typ := range want {
		if Descriptions[typ] == "" {
			t.Errorf("missing description for %q", typ)
		}
	}
}

func TestBuiltinConstructors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     corpus.FilterConfig
		wantErr bool
	}{
		{"status default", corpus.FilterConfig{Type: TypeStatus}, false},
		{"status custom path", corpus.FilterConfig{Type: TypeStatus, Config: map[string]interface{}{"path": "result.error"}}, false},
		{"status bad path", corpus.FilterConfig{Type: TypeStatus, Config: map[string]interface{}{"path": "a..b"}}, true},
		{"spam", corpus.FilterConfig{Type: TypeSpam, Config: map[string]interface{}{"minLamports": 1000}}, false},
		{"spam bad threshold", corpus.FilterConfig{Type: TypeSpam, Config: map[string]interface{}{"minLamports": "lots"}}, true},
		{"utf8", corpus.FilterConfig{Type: TypeUTF8}, false},
		{"require", corpus.FilterConfig{Type: TypeRequire, Config: map[string]interface{}{"paths": []interface{}{"slot"}}}, false},
		{"require missing paths", corpus.FilterConfig{Type: TypeRequire}, true},
		{"condition", corpus.FilterConfig{Type: TypeCondition, Config: map[string]interface{}{"expression": "slot > 1"}}, false},
		{"condition syntax error", corpus.FilterConfig{Type: TypeCondition, Config: map[string]interface{}{"expression": "slot >"}}, true},
		{"script", corpus.FilterConfig{Type: TypeScript, Config: map[string]interface{}{"script": "function keep(r) { return true; }"}}, false},
		{"script without keep", corpus.FilterConfig{Type: TypeScript, Config: map[string]interface{}{"script": "var x = 1;"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constructor := GetFilterConstructor(tt.cfg.Type)
			if constructor == nil {
				t.Fatalf("no constructor for %q", tt.cfg.Type)
			}
			f, err := constructor(tt.cfg, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("constructor err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && f == nil {
				t.Error("constructor returned nil filter")
			}
		})
	}
}
