package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/diag"
)

// Resolver merges plugin defaults, module settings and variant overrides
// into one ResolvedConfig per variant.
type Resolver struct {
	// registry supplies plugin defaults.
	registry *catalog.Registry

	// parallelism is the number of variants resolved concurrently.
	parallelism int

	// variants restricts resolution to the named variants.
	variants []string

	logger zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithParallelism resolves up to n variants concurrently. Output order is
// unaffected.
func WithParallelism(n int) Option {
	return func(r *Resolver) {
		r.parallelism = n
	}
}

// WithVariants restricts resolution to the named variants. Requesting a
// variant the descriptor does not declare is an error.
func WithVariants(names ...string) Option {
	return func(r *Resolver) {
		r.variants = append([]string(nil), names...)
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a resolver backed by registry.
func New(registry *catalog.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry:    registry,
		parallelism: 1,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// entry is one value in a merged layer together with where it came from.
type entry struct {
	value  descriptor.Value
	origin Origin
}

// layer is a merged key/value mapping. Layers are never shared mutably:
// each variant works on its own copy of the base.
type layer map[string]entry

func (l layer) clone() layer {
	out := make(layer, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

func (l layer) apply(settings descriptor.Settings, source string) {
	for _, st := range settings.All() {
		l[st.Key] = entry{value: st.Value, origin: Origin{Source: source, Pos: posPtr(st.Pos)}}
	}
}

// target is one variant to resolve.
type target struct {
	name      string
	overrides descriptor.Settings
}

// Resolve resolves every variant of desc. An unknown plugin aborts
// resolution with a wrapped *catalog.NotFoundError and no configs; value
// conversion problems are reported as diagnostics on the affected variant.
func (r *Resolver) Resolve(ctx context.Context, desc *descriptor.Descriptor) (*Result, error) {
	if desc == nil {
		return nil, fmt.Errorf("descriptor is nil")
	}
	if r.registry == nil {
		return nil, fmt.Errorf("resolver has no plugin registry")
	}

	base, plugins, err := r.base(desc)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", desc.Source(), err)
	}

	targets, err := r.targets(desc)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", desc.Source(), err)
	}

	configs := make([]*ResolvedConfig, len(targets))
	diags := make([]diag.Diagnostics, len(targets))

	if r.parallelism <= 1 || len(targets) <= 1 {
		for i, t := range targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			configs[i], diags[i] = r.resolveVariant(base, t)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.parallelism)
		for i, t := range targets {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				configs[i], diags[i] = r.resolveVariant(base, t)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Source:  desc.Source(),
		Configs: configs,
		Plugins: plugins,
	}
	for _, d := range diags {
		result.Diagnostics = append(result.Diagnostics, d...)
	}
	return result, nil
}

// base builds the variant-independent layers: toolchain defaults, plugin
// defaults in declaration order (later plugin wins) and module settings.
func (r *Resolver) base(desc *descriptor.Descriptor) (layer, []catalog.PluginDefault, error) {
	merged := make(layer)

	toolchain := r.registry.Toolchain()
	keys := make([]string, 0, len(toolchain))
	for k := range toolchain {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged[k] = entry{value: toolchain[k], origin: Origin{Source: SourceToolchain}}
	}

	var plugins []catalog.PluginDefault
	seen := make(map[string]descriptor.PluginRef)
	for _, ref := range desc.Plugins() {
		p, err := r.registry.Lookup(ref.ID)
		if err != nil {
			return nil, nil, err
		}
		// Aliases make two different spellings name one plugin.
		if first, dup := seen[p.ID]; dup {
			return nil, nil, &descriptor.ParseError{
				File: desc.Source(),
				Issues: []descriptor.Issue{{
					Pos: ref.Pos,
					Message: fmt.Sprintf("duplicate plugin %q: %q and %q both name it (first declared at %s)",
						p.ID, first.ID, ref.ID, first.Pos),
				}},
			}
		}
		seen[p.ID] = ref
		plugins = append(plugins, p)
		for _, k := range p.Keys() {
			merged[k] = entry{
				value:  p.Defaults[k],
				origin: Origin{Source: sourcePlugin + p.ID, Pos: posPtr(ref.Pos)},
			}
		}
	}

	merged.apply(desc.Settings(), SourceModule)
	return merged, plugins, nil
}

func (r *Resolver) targets(desc *descriptor.Descriptor) ([]target, error) {
	declared := desc.Variants()

	var all []target
	if len(declared) == 0 {
		all = []target{{name: DefaultVariant}}
	} else {
		for _, v := range declared {
			all = append(all, target{name: v.Name, overrides: v.Overrides})
		}
	}
	if len(r.variants) == 0 {
		return all, nil
	}

	known := make(map[string]bool, len(all))
	names := make([]string, len(all))
	for i, t := range all {
		known[t.name] = true
		names[i] = t.name
	}
	requested := make(map[string]bool, len(r.variants))
	for _, name := range r.variants {
		if !known[name] {
			return nil, &UnknownVariantError{Name: name, Known: names}
		}
		requested[name] = true
	}

	var out []target
	for _, t := range all {
		if requested[t.name] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *Resolver) resolveVariant(base layer, t target) (*ResolvedConfig, diag.Diagnostics) {
	merged := base.clone()
	merged.apply(t.overrides, sourceVariant+t.name)

	cfg, diags := build(t.name, merged)
	r.logger.Debug().
		Str("variant", t.name).
		Int("keys", len(merged)).
		Int("diagnostics", len(diags)).
		Msg("resolved variant")
	return cfg, diags
}

func posPtr(p diag.Pos) *diag.Pos {
	if p == (diag.Pos{}) {
		return nil
	}
	return &p
}
