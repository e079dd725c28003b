package resolver

import (
	"strconv"
	"strings"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/diag"
)

// RuleType identifies value conversion diagnostics.
const RuleType = "type"

// consumed lists the keys that map onto ResolvedConfig fields or modify
// them; everything else lands in Extras.
var consumed = map[string]bool{
	descriptor.KeyNamespace:           true,
	descriptor.KeyApplicationID:       true,
	descriptor.KeyMinSDK:              true,
	descriptor.KeyTargetSDK:           true,
	descriptor.KeyCompileSDK:          true,
	descriptor.KeyCompatibility:       true,
	descriptor.KeySigning:             true,
	descriptor.KeySourceRoot:          true,
	descriptor.KeyVersionCode:         true,
	descriptor.KeyVersionName:         true,
	descriptor.KeyApplicationIDSuffix: true,
	descriptor.KeyVersionNameSuffix:   true,
}

type converter struct {
	cfg    *ResolvedConfig
	merged layer
	diags  diag.Diagnostics
}

func build(variant string, merged layer) (*ResolvedConfig, diag.Diagnostics) {
	cfg := &ResolvedConfig{
		Variant:    variant,
		Extras:     make(map[string]descriptor.Value),
		Provenance: make(map[string]Origin, len(merged)),
	}
	for k, e := range merged {
		cfg.Provenance[k] = e.origin
		if !consumed[k] {
			cfg.Extras[k] = e.value
		}
	}

	c := &converter{cfg: cfg, merged: merged}
	cfg.Namespace = c.str(descriptor.KeyNamespace)
	cfg.ApplicationID = c.str(descriptor.KeyApplicationID)
	cfg.MinSDK = c.sdk(descriptor.KeyMinSDK)
	cfg.TargetSDK = c.sdk(descriptor.KeyTargetSDK)
	cfg.CompileSDK = c.sdk(descriptor.KeyCompileSDK)
	cfg.Compatibility = c.compatibility(descriptor.KeyCompatibility)
	cfg.Signing = c.str(descriptor.KeySigning)
	cfg.SourceRoot = c.str(descriptor.KeySourceRoot)
	cfg.VersionCode = c.integer(descriptor.KeyVersionCode)
	cfg.VersionName = c.str(descriptor.KeyVersionName)

	if suffix := c.str(descriptor.KeyApplicationIDSuffix); suffix != "" && cfg.ApplicationID != "" {
		cfg.ApplicationID += suffix
	}
	if suffix := c.str(descriptor.KeyVersionNameSuffix); suffix != "" && cfg.VersionName != "" {
		cfg.VersionName += suffix
	}

	return cfg, c.diags
}

func (c *converter) fail(key, format string, args ...any) {
	d := diag.Errorf(c.cfg.FieldPath(key), format, args...)
	d.Variant = c.cfg.Variant
	d.Rule = RuleType
	d.Pos = c.cfg.Pos(key)
	c.diags = append(c.diags, d)
}

func (c *converter) lookup(key string) (descriptor.Value, bool) {
	e, ok := c.merged[key]
	return e.value, ok
}

func (c *converter) str(key string) string {
	v, ok := c.lookup(key)
	if !ok {
		return ""
	}
	s, ok := v.AsString()
	if !ok {
		c.fail(key, "%s must be a string, got %s %s", key, v.Kind(), v)
		return ""
	}
	return s
}

func (c *converter) sdk(key string) int {
	v, ok := c.lookup(key)
	if !ok {
		return 0
	}
	switch v.Kind() {
	case descriptor.KindInt:
		n, _ := v.AsInt()
		if n <= 0 || n > int64(^uint32(0)>>1) {
			c.fail(key, "%s must be a positive API level, got %d", key, n)
			return 0
		}
		return int(n)
	case descriptor.KindString:
		s, _ := v.AsString()
		level, ok := catalog.APILevel(s)
		if !ok {
			c.fail(key, "cannot convert %s to an API level", v)
			return 0
		}
		return level
	default:
		c.fail(key, "%s must be an API level, got %s %s", key, v.Kind(), v)
		return 0
	}
}

// compatibility normalizes a language level: 11, "11", "VERSION_11" and
// "VERSION_1_8" become "11", "11", "11" and "1.8".
func (c *converter) compatibility(key string) string {
	v, ok := c.lookup(key)
	if !ok {
		return ""
	}
	var s string
	switch v.Kind() {
	case descriptor.KindInt:
		n, _ := v.AsInt()
		s = strconv.FormatInt(n, 10)
	case descriptor.KindString:
		s, _ = v.AsString()
		s = strings.TrimPrefix(strings.TrimSpace(s), "JavaVersion.")
		s = strings.TrimPrefix(s, "VERSION_")
		s = strings.ReplaceAll(s, "_", ".")
	default:
		c.fail(key, "%s must be a language level, got %s %s", key, v.Kind(), v)
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err != nil || f <= 0 {
		c.fail(key, "cannot convert %s to a language level", v)
		return ""
	}
	return s
}

func (c *converter) integer(key string) int64 {
	v, ok := c.lookup(key)
	if !ok {
		return 0
	}
	switch v.Kind() {
	case descriptor.KindInt:
		n, _ := v.AsInt()
		return n
	case descriptor.KindString:
		s, _ := v.AsString()
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			c.fail(key, "cannot convert %s to an integer", v)
			return 0
		}
		return n
	default:
		c.fail(key, "%s must be an integer, got %s %s", key, v.Kind(), v)
		return 0
	}
}
