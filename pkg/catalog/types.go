package catalog

import (
	"fmt"

	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/diag"
)

// FormatVersion is the only catalog format version this build understands.
const FormatVersion = 1

// File is the on-disk layout of a plugin catalog.
type File struct {
	// Version is the catalog format version.
	Version int `yaml:"version" validate:"required,eq=1"`

	// Toolchain holds the implicit defaults applied before any plugin.
	Toolchain map[string]any `yaml:"toolchain,omitempty"`

	// Plugins lists the plugin records.
	Plugins []Entry `yaml:"plugins" validate:"dive"`
}

// Entry is one plugin record as written in a catalog file.
type Entry struct {
	// ID is the plugin identifier referenced by descriptors.
	ID string `yaml:"id" validate:"required,excludesall= "`

	// Aliases are alternative identifiers for the same plugin.
	Aliases []string `yaml:"aliases,omitempty" validate:"dive,required,excludesall= "`

	// Description is a short human-readable summary.
	Description string `yaml:"description,omitempty"`

	// Defaults maps setting names to default values.
	Defaults map[string]any `yaml:"defaults,omitempty"`

	// Constraints are expressions every resolved configuration using this
	// plugin must satisfy.
	Constraints []Constraint `yaml:"constraints,omitempty" validate:"dive"`
}

// Constraint is a CEL expression evaluated against a resolved configuration.
// The expression sees `config` (map of resolved settings) and `variant`.
type Constraint struct {
	Expr     string        `yaml:"expr" validate:"required"`
	Message  string        `yaml:"message" validate:"required"`
	Severity diag.Severity `yaml:"severity,omitempty" validate:"omitempty,oneof=error warning"`
}

// EffectiveSeverity returns the constraint severity, defaulting to error.
func (c Constraint) EffectiveSeverity() diag.Severity {
	if c.Severity == "" {
		return diag.SeverityError
	}
	return c.Severity
}

// PluginDefault is the read-only record the resolver consumes for one plugin.
type PluginDefault struct {
	ID          string
	Aliases     []string
	Description string
	Defaults    map[string]descriptor.Value
	Constraints []Constraint
}

// Keys returns the default keys in sorted order.
func (p PluginDefault) Keys() []string {
	return sortedKeys(p.Defaults)
}

func (p PluginDefault) clone() PluginDefault {
	out := p
	out.Aliases = append([]string(nil), p.Aliases...)
	out.Constraints = append([]Constraint(nil), p.Constraints...)
	out.Defaults = make(map[string]descriptor.Value, len(p.Defaults))
	for k, v := range p.Defaults {
		out.Defaults[k] = v
	}
	return out
}

func convertDefaults(owner string, raw map[string]any) (map[string]descriptor.Value, error) {
	out := make(map[string]descriptor.Value, len(raw))
	for key, v := range raw {
		val, err := descriptor.FromInterface(v)
		if err != nil {
			return nil, fmt.Errorf("%s: default %q: %w", owner, key, err)
		}
		canonical := descriptor.CanonicalKey(key)
		if _, dup := out[canonical]; dup {
			return nil, fmt.Errorf("%s: default %q declared more than once", owner, canonical)
		}
		out[canonical] = val
	}
	return out, nil
}
