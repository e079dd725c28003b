package plan

import "github.com/buildplan/buildplan/pkg/resolver"

// FormatVersion is the version of the plan document layout.
const FormatVersion = 1

// Document is the build plan handed to the compiler/packager. It holds no
// timestamps or run identifiers so identical inputs encode identically.
type Document struct {
	FormatVersion int      `json:"format_version" yaml:"format_version"`
	Module        string   `json:"module" yaml:"module"`
	Variants      []Record `json:"variants" yaml:"variants"`
	Omitted       []string `json:"omitted" yaml:"omitted"`
}

// Record is the resolved configuration of one emitted variant.
type Record struct {
	Variant       string         `json:"variant" yaml:"variant"`
	Namespace     string         `json:"namespace" yaml:"namespace"`
	ApplicationID string         `json:"application_id" yaml:"application_id"`
	MinSDK        int            `json:"min_sdk" yaml:"min_sdk"`
	TargetSDK     int            `json:"target_sdk" yaml:"target_sdk"`
	CompileSDK    int            `json:"compile_sdk" yaml:"compile_sdk"`
	Compatibility string         `json:"compatibility" yaml:"compatibility"`
	Signing       string         `json:"signing" yaml:"signing"`
	SourceRoot    string         `json:"source_root" yaml:"source_root"`
	VersionCode   int64          `json:"version_code" yaml:"version_code"`
	VersionName   string         `json:"version_name" yaml:"version_name"`
	Extras        map[string]any `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// Build assembles a document from the configurations to emit, kept in the
// given order, and the names of variants withheld because of errors.
func Build(module string, configs []*resolver.ResolvedConfig, omitted []string) *Document {
	doc := &Document{
		FormatVersion: FormatVersion,
		Module:        module,
		Variants:      make([]Record, 0, len(configs)),
		Omitted:       append([]string{}, omitted...),
	}
	for _, cfg := range configs {
		doc.Variants = append(doc.Variants, recordFrom(cfg))
	}
	return doc
}

func recordFrom(cfg *resolver.ResolvedConfig) Record {
	r := Record{
		Variant:       cfg.Variant,
		Namespace:     cfg.Namespace,
		ApplicationID: cfg.ApplicationID,
		MinSDK:        cfg.MinSDK,
		TargetSDK:     cfg.TargetSDK,
		CompileSDK:    cfg.CompileSDK,
		Compatibility: cfg.Compatibility,
		Signing:       cfg.Signing,
		SourceRoot:    cfg.SourceRoot,
		VersionCode:   cfg.VersionCode,
		VersionName:   cfg.VersionName,
	}
	if len(cfg.Extras) > 0 {
		r.Extras = make(map[string]any, len(cfg.Extras))
		for _, k := range cfg.ExtraKeys() {
			r.Extras[k] = cfg.Extras[k].Interface()
		}
	}
	return r
}

// VariantNames returns the names of the emitted variants in order.
func (d *Document) VariantNames() []string {
	names := make([]string, len(d.Variants))
	for i, r := range d.Variants {
		names[i] = r.Variant
	}
	return names
}
