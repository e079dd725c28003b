package descriptor

import (
	"fmt"

	"github.com/buildplan/buildplan/pkg/diag"
)

// PluginRef is a plugin identifier declared by a descriptor.
type PluginRef struct {
	ID  string
	Pos diag.Pos
}

// Setting is a single key/value declaration.
type Setting struct {
	Key   string
	Value Value
	Pos   diag.Pos
}

// Settings is an ordered, read-only set of settings.
type Settings struct {
	keys  []string
	byKey map[string]Setting
}

// Get returns the setting stored under key.
func (s Settings) Get(key string) (Setting, bool) {
	st, ok := s.byKey[key]
	return st, ok
}

// Keys returns the keys in declaration order.
func (s Settings) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of settings.
func (s Settings) Len() int { return len(s.keys) }

// All returns the settings in declaration order.
func (s Settings) All() []Setting {
	out := make([]Setting, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.byKey[k])
	}
	return out
}

func (s *Settings) add(st Setting) bool {
	if s.byKey == nil {
		s.byKey = make(map[string]Setting)
	}
	if _, exists := s.byKey[st.Key]; exists {
		return false
	}
	s.keys = append(s.keys, st.Key)
	s.byKey[st.Key] = st
	return true
}

// Variant is a named set of overrides.
type Variant struct {
	Name      string
	Overrides Settings
	Pos       diag.Pos
}

// Signing returns the signing-identity reference of the variant, if any.
func (v Variant) Signing() (string, bool) {
	st, ok := v.Overrides.Get(KeySigning)
	if !ok {
		return "", false
	}
	return st.Value.AsString()
}

// Descriptor is a parsed, unresolved module build declaration.
type Descriptor struct {
	source   string
	plugins  []PluginRef
	settings Settings
	variants []Variant
}

// Source returns the name of the source the descriptor was parsed from.
func (d *Descriptor) Source() string { return d.source }

// Plugins returns the plugin references in declaration order.
func (d *Descriptor) Plugins() []PluginRef {
	return append([]PluginRef(nil), d.plugins...)
}

// PluginIDs returns the plugin identifiers in declaration order.
func (d *Descriptor) PluginIDs() []string {
	ids := make([]string, len(d.plugins))
	for i, p := range d.plugins {
		ids[i] = p.ID
	}
	return ids
}

// Settings returns the module-level settings.
func (d *Descriptor) Settings() Settings { return d.settings }

// Variants returns the variant blocks in declaration order.
func (d *Descriptor) Variants() []Variant {
	return append([]Variant(nil), d.variants...)
}

// Variant looks up a variant by name.
func (d *Descriptor) Variant(name string) (Variant, bool) {
	for _, v := range d.variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// builder accumulates a descriptor and the problems found while parsing it.
type builder struct {
	d      *Descriptor
	issues []Issue
	seenPl map[string]diag.Pos
	seenVr map[string]diag.Pos
}

func newBuilder(source string) *builder {
	return &builder{
		d:      &Descriptor{source: source},
		seenPl: make(map[string]diag.Pos),
		seenVr: make(map[string]diag.Pos),
	}
}

func (b *builder) issue(pos diag.Pos, format string, args ...any) {
	b.issues = append(b.issues, Issue{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (b *builder) addPlugin(id string, pos diag.Pos) {
	if id == "" {
		b.issue(pos, "plugin identifier must not be empty")
		return
	}
	if first, dup := b.seenPl[id]; dup {
		b.issue(pos, "duplicate plugin %q (first declared at %s)", id, first)
		return
	}
	b.seenPl[id] = pos
	b.d.plugins = append(b.d.plugins, PluginRef{ID: id, Pos: pos})
}

func (b *builder) setModule(key string, v Value, pos diag.Pos) {
	addSetting(b, &b.d.settings, key, v, pos)
}

func addSetting(b *builder, s *Settings, key string, v Value, pos diag.Pos) {
	key = CanonicalKey(key)
	if reservedKeys[key] {
		b.issue(pos, "%q is reserved and cannot be used as a setting", key)
		return
	}
	if !s.add(Setting{Key: key, Value: v, Pos: pos}) {
		b.issue(pos, "setting %q declared more than once", key)
	}
}

func (b *builder) addVariant(name string, overrides Settings, pos diag.Pos) {
	if name == "" {
		b.issue(pos, "variant name must not be empty")
		return
	}
	if first, dup := b.seenVr[name]; dup {
		b.issue(pos, "duplicate variant %q (first declared at %s)", name, first)
		return
	}
	b.seenVr[name] = pos
	b.d.variants = append(b.d.variants, Variant{Name: name, Overrides: overrides, Pos: pos})
}

func (b *builder) build() (*Descriptor, error) {
	if len(b.issues) > 0 {
		return nil, &ParseError{File: b.d.source, Issues: b.issues}
	}
	return b.d, nil
}
