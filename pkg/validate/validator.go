package validate

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/diag"
	"github.com/buildplan/buildplan/pkg/policy"
	"github.com/buildplan/buildplan/pkg/resolver"
	"github.com/buildplan/buildplan/pkg/signing"
)

// Validator checks resolved configurations. It never modifies them.
type Validator struct {
	identities  *signing.Set
	structs     *validator.Validate
	constraints []constraintProgram
	policies    *policy.Engine
	module      string
	logger      zerolog.Logger
}

// Option configures a Validator.
type Option func(*options)

type options struct {
	plugins  []catalog.PluginDefault
	policies *policy.Engine
	module   string
	logger   zerolog.Logger
}

// WithPlugins enables the constraints declared by plugins.
func WithPlugins(plugins ...catalog.PluginDefault) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugins...)
	}
}

// WithPolicyEngine evaluates the engine's policies against every
// configuration.
func WithPolicyEngine(e *policy.Engine) Option {
	return func(o *options) {
		o.policies = e
	}
}

// WithModule names the descriptor the configurations came from; policies
// see it as input.module.
func WithModule(name string) Option {
	return func(o *options) {
		o.module = name
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a validator that checks signing references against
// identities. A nil set is treated as the default set.
func New(identities *signing.Set, opts ...Option) (*Validator, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if identities == nil {
		identities = signing.DefaultSet()
	}

	constraints, err := compileConstraints(o.plugins)
	if err != nil {
		return nil, err
	}

	return &Validator{
		identities:  identities,
		structs:     validator.New(validator.WithRequiredStructEnabled()),
		constraints: constraints,
		policies:    o.policies,
		module:      o.module,
		logger:      o.logger,
	}, nil
}

// Validate checks a single configuration.
func (v *Validator) Validate(ctx context.Context, cfg *resolver.ResolvedConfig) diag.Diagnostics {
	return v.validate(ctx, cfg, []string{cfg.Variant})
}

// ValidateAll checks every configuration and the rules that span variants.
// The result maps each variant name to its diagnostics; variants without
// findings map to nil.
func (v *Validator) ValidateAll(ctx context.Context, configs []*resolver.ResolvedConfig) map[string]diag.Diagnostics {
	names := make([]string, len(configs))
	for i, cfg := range configs {
		names[i] = cfg.Variant
	}

	out := make(map[string]diag.Diagnostics, len(configs))
	for _, cfg := range configs {
		out[cfg.Variant] = v.validate(ctx, cfg, names)
	}
	for variant, ds := range checkSharedSigning(configs) {
		out[variant] = append(out[variant], ds...)
	}
	return out
}

func (v *Validator) validate(ctx context.Context, cfg *resolver.ResolvedConfig, variants []string) diag.Diagnostics {
	var out diag.Diagnostics
	out = append(out, v.checkRequired(cfg)...)
	out = append(out, checkVersionOrder(cfg)...)
	out = append(out, checkIdentifier(cfg, descriptor.KeyApplicationID, cfg.ApplicationID, RuleApplicationID, diag.SeverityError)...)
	out = append(out, checkIdentifier(cfg, descriptor.KeyNamespace, cfg.Namespace, RuleNamespace, diag.SeverityWarning)...)
	out = append(out, v.checkSigning(cfg)...)
	out = append(out, checkVersionCode(cfg)...)

	for _, c := range v.constraints {
		if d := c.evaluate(cfg); d != nil {
			out = append(out, *d)
		}
	}

	out = append(out, v.checkPolicies(ctx, cfg, variants)...)

	v.logger.Debug().
		Str("variant", cfg.Variant).
		Int("errors", len(out.Errors())).
		Int("warnings", len(out.Warnings())).
		Msg("validated variant")
	return out
}

func (v *Validator) checkPolicies(ctx context.Context, cfg *resolver.ResolvedConfig, variants []string) diag.Diagnostics {
	if v.policies == nil {
		return nil
	}

	provenance := make(map[string]string, len(cfg.Provenance))
	for k, o := range cfg.Provenance {
		provenance[k] = o.Source
	}
	input := &policy.Input{
		Variant:    cfg.Variant,
		Config:     cfg.Settings(),
		Provenance: provenance,
		Variants:   variants,
		Module:     v.module,
	}

	violations, err := v.policies.Evaluate(ctx, input)
	if err != nil {
		return diag.Diagnostics{{
			Severity: diag.SeverityWarning,
			Message:  fmt.Sprintf("policy evaluation failed: %v", err),
			Path:     "variant." + cfg.Variant,
			Variant:  cfg.Variant,
			Rule:     RulePolicy,
		}}
	}

	out := make(diag.Diagnostics, 0, len(violations))
	for _, vi := range violations {
		d := diag.Diagnostic{
			Severity: vi.Severity,
			Message:  vi.Message,
			Path:     "variant." + cfg.Variant,
			Variant:  cfg.Variant,
			Rule:     RulePolicy + ":" + vi.Policy,
		}
		if vi.Field != "" {
			key := descriptor.CanonicalKey(vi.Field)
			d.Path = cfg.FieldPath(key)
			d.Pos = cfg.Pos(key)
		}
		out = append(out, d)
	}
	return out
}
