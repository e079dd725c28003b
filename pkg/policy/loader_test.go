package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/buildplan/buildplan/pkg/diag"
)

const testRego = `# Forbid legacy API levels
# for every variant.
package test.legacy

import rego.v1

deny contains "legacy min_sdk" if input.config.min_sdk < 23
`

func TestLoadFromFile_Rego(t *testing.T) {
	loader := NewLoader(zerolog.New(nil).Level(zerolog.Disabled))

	policyFile := filepath.Join(t.TempDir(), "legacy.rego")
	if err := os.WriteFile(policyFile, []byte(testRego), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "legacy" {
		t.Errorf("Expected name 'legacy', got '%s'", policy.Name)
	}
	if policy.Description != "Forbid legacy API levels for every variant." {
		t.Errorf("Unexpected description %q", policy.Description)
	}
	if policy.Severity != diag.SeverityWarning || !policy.Enabled {
		t.Errorf("Unexpected defaults: %+v", policy)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	loader := NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"name": "custom", "enabled": true, "rego": "package c"}`), 0644); err != nil {
		t.Fatal(err)
	}
	policy, err := loader.loadFromFile(context.Background(), good)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if policy.Name != "custom" || policy.Severity != diag.SeverityWarning {
		t.Errorf("Unexpected policy: %+v", policy)
	}

	nameless := filepath.Join(dir, "nameless.json")
	if err := os.WriteFile(nameless, []byte(`{"rego": "package c"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loader.loadFromFile(context.Background(), nameless); err == nil {
		t.Error("Expected error for policy without name")
	}
}

func TestLoadPolicies_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "legacy.rego"), []byte(testRego), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies() error: %v", err)
	}
	if _, err := eng.GetPolicy("legacy"); err != nil {
		t.Fatalf("legacy policy not loaded: %v", err)
	}

	cfg := validConfig()
	cfg["min_sdk"] = int64(21)
	violations, err := eng.Evaluate(context.Background(), &Input{Variant: "debug", Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 1 || violations[0].Message != "legacy min_sdk" {
		t.Errorf("violations = %+v", violations)
	}
}

func TestLoadPolicies_MissingPath(t *testing.T) {
	eng := newTestEngine(t)
	err := eng.LoadPolicies(context.Background(), []string{filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Error("expected error for missing path")
	}
}
