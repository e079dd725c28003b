package resolver

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/descriptor"
)

const testCatalog = `
version: 1
toolchain:
  compatibility: "1.8"
  version_code: 1
  version_name: "1.0"
plugins:
  - id: A
    aliases: [a-alias]
    defaults:
      compile_sdk: 30
      min_sdk: 16
  - id: B
    defaults:
      compile_sdk: 34
  - id: C
    defaults:
      source_root: "."
      signing: debug
`

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	r, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error: %v", err)
	}
	return r
}

func parse(t *testing.T, src string) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.ParseHCL("build.hcl", []byte(src))
	if err != nil {
		t.Fatalf("ParseHCL() error: %v", err)
	}
	return d
}

func resolve(t *testing.T, src string, opts ...Option) *Result {
	t.Helper()
	res, err := New(testRegistry(t), opts...).Resolve(context.Background(), parse(t, src))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return res
}

func TestResolve_LayerPrecedence(t *testing.T) {
	res := resolve(t, `
plugins    = ["A", "B"]
target_sdk = 34

variant "release" {
  min_sdk = 21
}

variant "debug" {
  target_sdk = 40
}
`)

	if len(res.Configs) != 2 {
		t.Fatalf("got %d configs, want 2", len(res.Configs))
	}
	if res.Configs[0].Variant != "release" || res.Configs[1].Variant != "debug" {
		t.Fatalf("variant order = %s, %s", res.Configs[0].Variant, res.Configs[1].Variant)
	}

	release, debug := res.Configs[0], res.Configs[1]
	if release.CompileSDK != 34 || release.TargetSDK != 34 || release.MinSDK != 21 {
		t.Errorf("release = compile %d target %d min %d, want 34/34/21",
			release.CompileSDK, release.TargetSDK, release.MinSDK)
	}
	if debug.CompileSDK != 34 || debug.TargetSDK != 40 || debug.MinSDK != 16 {
		t.Errorf("debug = compile %d target %d min %d, want 34/40/16",
			debug.CompileSDK, debug.TargetSDK, debug.MinSDK)
	}

	tests := []struct {
		cfg  *ResolvedConfig
		key  string
		want string
	}{
		{release, descriptor.KeyCompileSDK, "plugin.B.compile_sdk"},
		{release, descriptor.KeyTargetSDK, "module.target_sdk"},
		{release, descriptor.KeyMinSDK, "variant.release.min_sdk"},
		{debug, descriptor.KeyMinSDK, "plugin.A.min_sdk"},
		{debug, descriptor.KeyTargetSDK, "variant.debug.target_sdk"},
		{debug, descriptor.KeyCompatibility, "toolchain.compatibility"},
		{debug, descriptor.KeyNamespace, "variant.debug.namespace"},
	}
	for _, tt := range tests {
		if got := tt.cfg.FieldPath(tt.key); got != tt.want {
			t.Errorf("%s FieldPath(%s) = %q, want %q", tt.cfg.Variant, tt.key, got, tt.want)
		}
	}
	if pos := debug.Pos(descriptor.KeyTargetSDK); pos == nil || pos.Line != 10 {
		t.Errorf("debug target_sdk pos = %v, want line 10", pos)
	}
}

func TestResolve_NoVariants(t *testing.T) {
	src := `
plugins     = ["A", "C"]
namespace   = "com.example.app"
compile_sdk = 33
`
	res := resolve(t, src)
	if len(res.Configs) != 1 {
		t.Fatalf("got %d configs, want 1", len(res.Configs))
	}
	cfg := res.Configs[0]
	if cfg.Variant != DefaultVariant {
		t.Errorf("variant = %q, want %q", cfg.Variant, DefaultVariant)
	}

	want := &ResolvedConfig{
		Variant:       DefaultVariant,
		Namespace:     "com.example.app",
		MinSDK:        16,
		CompileSDK:    33,
		Compatibility: "1.8",
		Signing:       "debug",
		SourceRoot:    ".",
		VersionCode:   1,
		VersionName:   "1.0",
	}
	cfg.Extras, cfg.Provenance = nil, nil
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("config = %+v\nwant   %+v", cfg, want)
	}
}

func TestResolve_PluginOrder(t *testing.T) {
	stripProvenance := func(r *Result) *ResolvedConfig {
		c := *r.Configs[0]
		c.Provenance = nil
		return &c
	}

	// A and C share no keys: order does not matter.
	ac := stripProvenance(resolve(t, `plugins = ["A", "C"]`))
	ca := stripProvenance(resolve(t, `plugins = ["C", "A"]`))
	if !reflect.DeepEqual(ac, ca) {
		t.Errorf("non-conflicting reorder changed result:\n%+v\n%+v", ac, ca)
	}

	// A and B share compile_sdk: only that key changes.
	ab := stripProvenance(resolve(t, `plugins = ["A", "B"]`))
	ba := stripProvenance(resolve(t, `plugins = ["B", "A"]`))
	if ab.CompileSDK != 34 || ba.CompileSDK != 30 {
		t.Errorf("compile_sdk = %d (A,B) and %d (B,A); want 34 and 30", ab.CompileSDK, ba.CompileSDK)
	}
	ba.CompileSDK = ab.CompileSDK
	if !reflect.DeepEqual(ab, ba) {
		t.Errorf("conflicting reorder changed more than compile_sdk:\n%+v\n%+v", ab, ba)
	}
}

func TestResolve_UnknownPlugin(t *testing.T) {
	res, err := New(testRegistry(t)).Resolve(context.Background(), parse(t, `plugins = ["A", "Z"]`))
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
	var nf *catalog.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "Z" {
		t.Fatalf("expected NotFoundError for Z, got %v", err)
	}
}

func TestResolve_PluginNamedTwiceThroughAlias(t *testing.T) {
	res, err := New(testRegistry(t)).Resolve(context.Background(), parse(t, `plugins = ["a-alias", "B", "A"]`))
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
	var pe *descriptor.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *descriptor.ParseError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), `duplicate plugin "A"`) || !strings.Contains(err.Error(), `"a-alias"`) {
		t.Errorf("error = %v", err)
	}
}

func TestSettings_FieldsWinOverExtras(t *testing.T) {
	cfg := &ResolvedConfig{
		Variant:   "release",
		Namespace: "com.example.app",
		Extras: map[string]descriptor.Value{
			"variant":     descriptor.String("oops"),
			"namespace":   descriptor.String("com.other"),
			"ndk_version": descriptor.String("26.1"),
		},
	}
	got := cfg.Settings()
	if got["variant"] != "release" {
		t.Errorf("Settings()[variant] = %v, want release", got["variant"])
	}
	if got["namespace"] != "com.example.app" {
		t.Errorf("Settings()[namespace] = %v, want com.example.app", got["namespace"])
	}
	if got["ndk_version"] != "26.1" {
		t.Errorf("Settings()[ndk_version] = %v, want 26.1", got["ndk_version"])
	}
}

func TestResolve_Conversions(t *testing.T) {
	res := resolve(t, `
plugins       = ["A"]
min_sdk       = "L"
target_sdk    = "O"
compatibility = "VERSION_1_8"
version_code  = "7"

variant "release" {
  compatibility = "VERSION_11"
}

variant "broken" {
  compile_sdk = "abc"
}

variant "typed" {
  version_name = 2
  compatibility = 17
}
`)

	release, _ := res.Config("release")
	if release.MinSDK != 21 || release.TargetSDK != 26 {
		t.Errorf("codenames resolved to min %d target %d, want 21/26", release.MinSDK, release.TargetSDK)
	}
	if release.Compatibility != "11" {
		t.Errorf("release compatibility = %q, want 11", release.Compatibility)
	}
	if release.VersionCode != 7 {
		t.Errorf("version_code = %d, want 7", release.VersionCode)
	}
	if d := res.DiagnosticsFor("release"); len(d) != 0 {
		t.Errorf("release diagnostics = %v, want none", d)
	}

	broken := res.DiagnosticsFor("broken")
	if len(broken) != 1 {
		t.Fatalf("broken diagnostics = %v, want one", broken)
	}
	if broken[0].Path != "variant.broken.compile_sdk" || broken[0].Rule != RuleType {
		t.Errorf("broken diagnostic = %+v", broken[0])
	}
	if !strings.Contains(broken[0].Message, `"abc"`) {
		t.Errorf("message %q does not quote the value", broken[0].Message)
	}

	typed, _ := res.Config("typed")
	if typed.Compatibility != "17" {
		t.Errorf("typed compatibility = %q, want 17", typed.Compatibility)
	}
	td := res.DiagnosticsFor("typed")
	if len(td) != 1 || td[0].Path != "variant.typed.version_name" {
		t.Errorf("typed diagnostics = %v", td)
	}

	defaultCompat, _ := res.Config("broken")
	if defaultCompat.Compatibility != "1.8" {
		t.Errorf("module compatibility = %q, want 1.8", defaultCompat.Compatibility)
	}
}

func TestResolve_SuffixesAndExtras(t *testing.T) {
	res := resolve(t, `
application_id = "com.example.app"
version_name   = "2.0.0"
ndk_version    = "26.1"

variant "debug" {
  application_id_suffix = ".debug"
  version_name_suffix   = "-debug"
  debuggable            = true
}
`)
	cfg := res.Configs[0]
	if cfg.ApplicationID != "com.example.app.debug" {
		t.Errorf("application id = %q", cfg.ApplicationID)
	}
	if cfg.VersionName != "2.0.0-debug" {
		t.Errorf("version name = %q", cfg.VersionName)
	}
	if got := strings.Join(cfg.ExtraKeys(), ","); got != "debuggable,ndk_version" {
		t.Errorf("extras = %s, want debuggable,ndk_version", got)
	}
	if cfg.Settings()["debuggable"] != true {
		t.Errorf("Settings()[debuggable] = %v", cfg.Settings()["debuggable"])
	}
}

func TestResolve_VariantIsolation(t *testing.T) {
	res := resolve(t, `
compile_sdk = 34

variant "a" {
  compile_sdk = 35
}

variant "b" {}
`)
	b, _ := res.Config("b")
	if b.CompileSDK != 34 {
		t.Errorf("variant b saw sibling override: compile_sdk = %d", b.CompileSDK)
	}
}

func TestResolve_WithVariants(t *testing.T) {
	src := `
variant "release" {}
variant "debug" {}
variant "profile" {}
`
	res := resolve(t, src, WithVariants("profile", "release"))
	var names []string
	for _, c := range res.Configs {
		names = append(names, c.Variant)
	}
	if strings.Join(names, ",") != "release,profile" {
		t.Errorf("variants = %v, want declaration order release,profile", names)
	}

	_, err := New(testRegistry(t), WithVariants("staging")).Resolve(context.Background(), parse(t, src))
	var uv *UnknownVariantError
	if !errors.As(err, &uv) || uv.Name != "staging" {
		t.Fatalf("expected UnknownVariantError, got %v", err)
	}

	res = resolve(t, `compile_sdk = 34`, WithVariants(DefaultVariant))
	if len(res.Configs) != 1 {
		t.Errorf("requesting the default variant returned %d configs", len(res.Configs))
	}
}

func TestResolve_ParallelMatchesSequential(t *testing.T) {
	var b strings.Builder
	b.WriteString("plugins = [\"A\", \"B\", \"C\"]\n")
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&b, "variant \"v%02d\" {\n  min_sdk = %d\n}\n", i, 16+i)
	}
	src := b.String()

	seq := resolve(t, src)
	par := resolve(t, src, WithParallelism(4))
	if !reflect.DeepEqual(seq, par) {
		t.Error("parallel resolution differs from sequential resolution")
	}
}

func TestResolve_NilInputs(t *testing.T) {
	if _, err := New(testRegistry(t)).Resolve(context.Background(), nil); err == nil {
		t.Error("expected error for nil descriptor")
	}
	if _, err := New(nil).Resolve(context.Background(), parse(t, "")); err == nil {
		t.Error("expected error for nil registry")
	}
}
