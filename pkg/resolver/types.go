package resolver

import (
	"sort"
	"strings"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/diag"
)

// DefaultVariant names the single configuration produced for a descriptor
// that declares no variants.
const DefaultVariant = "default"

// Provenance sources.
const (
	SourceToolchain = "toolchain"
	SourceModule    = "module"
	sourcePlugin    = "plugin:"
	sourceVariant   = "variant:"
)

// Origin records which layer supplied a resolved value.
type Origin struct {
	// Source is "toolchain", "plugin:<id>", "module" or "variant:<name>".
	Source string `json:"source"`

	// Pos is the declaration site, when known.
	Pos *diag.Pos `json:"pos,omitempty"`
}

// Path renders the origin as a diagnostic field path prefix, e.g.
// "variant.debug" or "plugin.com.android.application".
func (o Origin) Path() string {
	switch {
	case strings.HasPrefix(o.Source, sourcePlugin):
		return "plugin." + strings.TrimPrefix(o.Source, sourcePlugin)
	case strings.HasPrefix(o.Source, sourceVariant):
		return "variant." + strings.TrimPrefix(o.Source, sourceVariant)
	default:
		return o.Source
	}
}

// ResolvedConfig is the merged configuration of one variant. It is built
// once by the resolver and never modified afterwards.
type ResolvedConfig struct {
	Variant       string `validate:"required"`
	Namespace     string `validate:"required"`
	ApplicationID string `validate:"required"`
	MinSDK        int    `validate:"required"`
	TargetSDK     int    `validate:"required"`
	CompileSDK    int    `validate:"required"`
	Compatibility string `validate:"required"`
	Signing       string `validate:"required"`
	SourceRoot    string `validate:"required"`
	VersionCode   int64  `validate:"required"`
	VersionName   string `validate:"required"`

	// Extras holds settings with no dedicated field, such as variant-only
	// keys and opaque values.
	Extras map[string]descriptor.Value

	// Provenance maps each resolved key to the layer that supplied it.
	Provenance map[string]Origin
}

// FieldKeys maps ResolvedConfig field names to setting keys.
var FieldKeys = map[string]string{
	"Variant":       descriptor.KeyVariant,
	"Namespace":     descriptor.KeyNamespace,
	"ApplicationID": descriptor.KeyApplicationID,
	"MinSDK":        descriptor.KeyMinSDK,
	"TargetSDK":     descriptor.KeyTargetSDK,
	"CompileSDK":    descriptor.KeyCompileSDK,
	"Compatibility": descriptor.KeyCompatibility,
	"Signing":       descriptor.KeySigning,
	"SourceRoot":    descriptor.KeySourceRoot,
	"VersionCode":   descriptor.KeyVersionCode,
	"VersionName":   descriptor.KeyVersionName,
}

// Origin returns the provenance of key.
func (c *ResolvedConfig) Origin(key string) (Origin, bool) {
	o, ok := c.Provenance[key]
	return o, ok
}

// FieldPath returns the diagnostic path of key: the layer that supplied it
// followed by the key. Keys no layer supplied are reported against the
// variant.
func (c *ResolvedConfig) FieldPath(key string) string {
	if o, ok := c.Provenance[key]; ok {
		return o.Path() + "." + key
	}
	return "variant." + c.Variant + "." + key
}

// Pos returns the declaration site of key, when known.
func (c *ResolvedConfig) Pos(key string) *diag.Pos {
	if o, ok := c.Provenance[key]; ok {
		return o.Pos
	}
	return nil
}

// ExtraKeys returns the extra setting keys in sorted order.
func (c *ResolvedConfig) ExtraKeys() []string {
	keys := make([]string, 0, len(c.Extras))
	for k := range c.Extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings returns the configuration as a flat map of plain values keyed by
// setting name, suitable as expression or policy input.
// Dedicated fields always win over extras of the same name.
func (c *ResolvedConfig) Settings() map[string]any {
	out := make(map[string]any, len(c.Extras)+len(FieldKeys))
	for k, v := range c.Extras {
		out[k] = v.Interface()
	}
	out[descriptor.KeyVariant] = c.Variant
	out[descriptor.KeyNamespace] = c.Namespace
	out[descriptor.KeyApplicationID] = c.ApplicationID
	out[descriptor.KeyMinSDK] = int64(c.MinSDK)
	out[descriptor.KeyTargetSDK] = int64(c.TargetSDK)
	out[descriptor.KeyCompileSDK] = int64(c.CompileSDK)
	out[descriptor.KeyCompatibility] = c.Compatibility
	out[descriptor.KeySigning] = c.Signing
	out[descriptor.KeySourceRoot] = c.SourceRoot
	out[descriptor.KeyVersionCode] = c.VersionCode
	out[descriptor.KeyVersionName] = c.VersionName
	return out
}

// Result is the outcome of resolving one descriptor.
type Result struct {
	// Source is the descriptor source name.
	Source string

	// Configs holds one configuration per resolved variant, in declaration
	// order.
	Configs []*ResolvedConfig

	// Diagnostics holds conversion problems, each stamped with its variant.
	Diagnostics diag.Diagnostics

	// Plugins are the plugin records referenced by the descriptor, in
	// declaration order.
	Plugins []catalog.PluginDefault
}

// Config returns the configuration of the named variant.
func (r *Result) Config(variant string) (*ResolvedConfig, bool) {
	for _, c := range r.Configs {
		if c.Variant == variant {
			return c, true
		}
	}
	return nil, false
}

// DiagnosticsFor returns the diagnostics attached to variant.
func (r *Result) DiagnosticsFor(variant string) diag.Diagnostics {
	var out diag.Diagnostics
	for _, d := range r.Diagnostics {
		if d.Variant == variant {
			out = append(out, d)
		}
	}
	return out
}
