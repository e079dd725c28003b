package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/buildplan/buildplan/pkg/diag"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(context.Background(), logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func validConfig() map[string]interface{} {
	return map[string]interface{}{
		"namespace":      "com.example.flutter_tuner",
		"application_id": "com.example.flutter_tuner",
		"min_sdk":        int64(21),
		"target_sdk":     int64(36),
		"compile_sdk":    int64(36),
		"signing":        "upload",
		"version_code":   int64(2),
		"version_name":   "2.0.0",
	}
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	var names []string
	for _, p := range eng.ListPolicies() {
		names = append(names, p.Name)
	}
	want := "release-debug-signing,target-sdk-floor,version-name-format"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("built-in policies = %s, want %s", got, want)
	}
}

func TestEvaluate_BuiltinPolicies(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		name       string
		variant    string
		mutate     func(map[string]interface{})
		wantPolicy string
		wantField  string
	}{
		{
			name:    "clean release",
			variant: "release",
		},
		{
			name:       "release signed with debug",
			variant:    "release",
			mutate:     func(c map[string]interface{}) { c["signing"] = "debug" },
			wantPolicy: "release-debug-signing",
			wantField:  "signing",
		},
		{
			name:    "debug signed with debug",
			variant: "debug",
			mutate:  func(c map[string]interface{}) { c["signing"] = "debug" },
		},
		{
			name:       "old target sdk",
			variant:    "debug",
			mutate:     func(c map[string]interface{}) { c["target_sdk"] = int64(30) },
			wantPolicy: "target-sdk-floor",
			wantField:  "target_sdk",
		},
		{
			name:       "odd version name",
			variant:    "debug",
			mutate:     func(c map[string]interface{}) { c["version_name"] = "latest" },
			wantPolicy: "version-name-format",
			wantField:  "version_name",
		},
		{
			name:    "version name with suffix",
			variant: "debug",
			mutate:  func(c map[string]interface{}) { c["version_name"] = "2.0.0-debug" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			violations, err := eng.Evaluate(context.Background(), &Input{Variant: tt.variant, Config: cfg})
			if err != nil {
				t.Fatalf("Evaluation failed: %v", err)
			}

			if tt.wantPolicy == "" {
				if len(violations) != 0 {
					t.Errorf("expected no violations, got %+v", violations)
				}
				return
			}
			if len(violations) != 1 {
				t.Fatalf("expected one violation, got %+v", violations)
			}
			v := violations[0]
			if v.Policy != tt.wantPolicy || v.Field != tt.wantField {
				t.Errorf("violation = %+v, want policy %s field %s", v, tt.wantPolicy, tt.wantField)
			}
			if v.Severity != diag.SeverityWarning {
				t.Errorf("severity = %s, want warning", v.Severity)
			}
		})
	}
}

func TestAddPolicy_CustomSeverity(t *testing.T) {
	eng := newTestEngine(t)

	err := eng.AddPolicy(context.Background(), Policy{
		Name:     "min-sdk-23",
		Severity: diag.SeverityWarning,
		Enabled:  true,
		Rego: `package custom.minsdk

import rego.v1

deny contains "plain message" if input.config.min_sdk < 23

deny contains violation if {
	input.config.min_sdk < 23
	violation := {"message": "min_sdk must be 23", "severity": "error", "field": "min_sdk"}
}
`,
	})
	if err != nil {
		t.Fatalf("AddPolicy() error: %v", err)
	}

	violations, err := eng.Evaluate(context.Background(), &Input{Variant: "debug", Config: validConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", violations)
	}
	if violations[0].Message != "min_sdk must be 23" || violations[0].Severity != diag.SeverityError {
		t.Errorf("first violation = %+v", violations[0])
	}
	if violations[1].Message != "plain message" || violations[1].Severity != diag.SeverityWarning {
		t.Errorf("second violation = %+v", violations[1])
	}
}

func TestAddPolicy_Invalid(t *testing.T) {
	eng := newTestEngine(t)
	err := eng.AddPolicy(context.Background(), Policy{Name: "broken", Rego: "package x\n deny contains"})
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestEnableDisable(t *testing.T) {
	eng := newTestEngine(t)
	cfg := validConfig()
	cfg["signing"] = "debug"
	input := &Input{Variant: "release", Config: cfg}

	if err := eng.DisablePolicy("release-debug-signing"); err != nil {
		t.Fatal(err)
	}
	violations, _ := eng.Evaluate(context.Background(), input)
	if len(violations) != 0 {
		t.Errorf("disabled policy still reported: %+v", violations)
	}

	if err := eng.EnablePolicy("release-debug-signing"); err != nil {
		t.Fatal(err)
	}
	violations, _ = eng.Evaluate(context.Background(), input)
	if len(violations) != 1 {
		t.Errorf("enabled policy not reported: %+v", violations)
	}

	if err := eng.EnablePolicy("missing"); err == nil {
		t.Error("expected error for unknown policy")
	}
	if _, err := eng.GetPolicy("missing"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestEvaluate_NilInput(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := eng.Evaluate(context.Background(), nil); err == nil {
		t.Error("expected error for nil input")
	}
}
