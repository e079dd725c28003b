package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/buildplan/buildplan/pkg/diag"
)

func TestBuiltin(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin() error: %v", err)
	}

	for _, id := range []string{
		"com.android.application",
		"com.android.library",
		"kotlin-android",
		"org.jetbrains.kotlin.android",
		"dev.flutter.flutter-gradle-plugin",
	} {
		if _, err := r.Lookup(id); err != nil {
			t.Errorf("Lookup(%q) error: %v", id, err)
		}
	}

	app, _ := r.Lookup("com.android.application")
	if ref, ok := app.Defaults["signing"].AsString(); !ok || ref != "debug" {
		t.Errorf("application signing default = %v, want debug", app.Defaults["signing"])
	}

	kotlin, _ := r.Lookup("kotlin-android")
	if kotlin.ID != "org.jetbrains.kotlin.android" {
		t.Errorf("alias resolved to %q", kotlin.ID)
	}

	if _, ok := r.Toolchain()["version_code"]; !ok {
		t.Error("toolchain defaults missing version_code")
	}
}

func TestLookup_NotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("Z")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.ID != "Z" {
		t.Errorf("NotFoundError.ID = %q, want Z", nf.ID)
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	r, err := Parse([]byte(`
version: 1
plugins:
  - id: a
    defaults:
      compile_sdk: 30
`))
	if err != nil {
		t.Fatal(err)
	}
	p, _ := r.Lookup("a")
	delete(p.Defaults, "compile_sdk")

	again, _ := r.Lookup("a")
	if _, ok := again.Defaults["compile_sdk"]; !ok {
		t.Error("mutating a looked-up record changed the registry")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid",
			yaml: `
version: 1
toolchain:
  compatibility: "11"
plugins:
  - id: a
    defaults:
      compileSdk: 30
    constraints:
      - expr: "config.compile_sdk > 0"
        message: positive
        severity: warning
`,
		},
		{
			name:    "unsupported version",
			yaml:    "version: 2\nplugins: []\n",
			wantErr: "unsupported catalog version 2",
		},
		{
			name:    "missing version",
			yaml:    "plugins: []\n",
			wantErr: "unsupported catalog version 0",
		},
		{
			name: "duplicate id",
			yaml: `
version: 1
plugins:
  - id: a
  - id: a
`,
			wantErr: "already registered",
		},
		{
			name: "alias collides with id",
			yaml: `
version: 1
plugins:
  - id: a
  - id: b
    aliases: [a]
`,
			wantErr: "alias a already registered",
		},
		{
			name: "missing id",
			yaml: `
version: 1
plugins:
  - description: nameless
`,
			wantErr: "invalid catalog",
		},
		{
			name: "bad severity",
			yaml: `
version: 1
plugins:
  - id: a
    constraints:
      - expr: "true"
        message: m
        severity: fatal
`,
			wantErr: "invalid catalog",
		},
		{
			name:    "malformed yaml",
			yaml:    "version: [",
			wantErr: "failed to parse catalog YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				p, err := r.Lookup("a")
				if err != nil {
					t.Fatal(err)
				}
				if n, ok := p.Defaults["compile_sdk"].AsInt(); !ok || n != 30 {
					t.Errorf("compile_sdk default = %v, want 30", p.Defaults["compile_sdk"])
				}
				if got := p.Constraints[0].EffectiveSeverity(); got != diag.SeverityWarning {
					t.Errorf("severity = %s, want warning", got)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nplugins:\n  - id: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if ids := r.IDs(); len(ids) != 1 || ids[0] != "x" {
		t.Errorf("IDs() = %v", ids)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAPILevel(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"L", 21, true},
		{"O", 26, true},
		{"J-MR2", 18, true},
		{"n-mr1", 25, true},
		{"34", 34, true},
		{" 21 ", 21, true},
		{"0", 0, false},
		{"-3", -3, false},
		{"Z", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := APILevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("APILevel(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
