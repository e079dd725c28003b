package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/descriptor"
	"github.com/buildplan/buildplan/pkg/plan"
	"github.com/buildplan/buildplan/pkg/policy"
	"github.com/buildplan/buildplan/pkg/resolver"
	"github.com/buildplan/buildplan/pkg/signing"
	"github.com/buildplan/buildplan/pkg/stores"
	"github.com/buildplan/buildplan/pkg/telemetry"
	"github.com/buildplan/buildplan/pkg/validate"
)

// Pipeline stage names, used for spans, logs and metrics.
const (
	StageParse    = "parse"
	StageResolve  = "resolve"
	StageValidate = "validate"
	StageEmit     = "emit"
)

// History receives the record of every run.
type History interface {
	CreateRun(ctx context.Context, run *stores.Run) error
	AddVariantResults(ctx context.Context, results []*stores.VariantResult) error
	CompleteRun(ctx context.Context, id string, status stores.RunStatus, exitCode int, checksum string, errMsg *string) error
}

// Pipeline runs parse, resolve, validate and emit for one descriptor at a
// time. It holds only read-only collaborators and may be reused.
type Pipeline struct {
	registry    *catalog.Registry
	identities  *signing.Set
	policies    *policy.Engine
	history     History
	parallelism int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPolicyEngine evaluates Rego policies during validation.
func WithPolicyEngine(e *policy.Engine) Option {
	return func(p *Pipeline) {
		p.policies = e
	}
}

// WithHistory records every run in h.
func WithHistory(h History) Option {
	return func(p *Pipeline) {
		p.history = h
	}
}

// WithParallelism resolves up to n variants concurrently.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		p.parallelism = n
	}
}

// NewPipeline creates a pipeline over a plugin registry and the known
// signing identities. A nil identity set knows only the debug identity.
func NewPipeline(registry *catalog.Registry, identities *signing.Set, opts ...Option) (*Pipeline, error) {
	if registry == nil {
		return nil, fmt.Errorf("plugin registry is required")
	}
	if identities == nil {
		identities = signing.DefaultSet()
	}
	p := &Pipeline{registry: registry, identities: identities, parallelism: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Request describes one run.
type Request struct {
	// Path is the descriptor file. When Source is set, Path only names it.
	Path string

	// Source is in-memory descriptor text.
	Source []byte

	// Variants restricts the run to these variants. Empty means all.
	Variants []string

	// Format is the plan format. Empty means JSON.
	Format plan.Format

	// Output is the plan file. When empty the plan goes to Writer.
	Output string

	// Writer is the stream sink used when Output is empty. A nil Writer
	// with no Output skips the write.
	Writer io.Writer

	// DryRun renders the plan without writing it.
	DryRun bool
}

func (r Request) sink() string {
	switch {
	case r.DryRun:
		return ""
	case r.Output != "":
		return r.Output
	case r.Writer != nil:
		return "stream"
	default:
		return ""
	}
}

// Run executes the pipeline. The report is never nil. The error is nil when
// every requested variant was emitted, a validation-class *Error when some
// variants carry error diagnostics, and a fatal *Error otherwise.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	timer := telemetry.NewTimer()
	report := &Report{RunID: uuid.NewString(), Source: req.Path}

	tel := telemetry.FromTelemetryContext(ctx)
	if tel == nil {
		tel = telemetry.Noop()
	}
	logger := telemetry.FromContext(ctx).
		NewComponentLogger("pipeline").
		WithRunID(report.RunID).
		WithDescriptor(req.Path)
	ctx = logger.WithContext(ctx)

	ctx, span := tel.Tracer.StartRunSpan(ctx, report.RunID, req.Path)
	defer span.End()

	tel.Metrics.RecordRunStarted()
	p.startHistory(ctx, report, req, logger)

	err := p.run(ctx, req, report)

	report.Err = err
	report.ExitCode = ExitCode(err)
	report.Duration = timer.Duration()

	span.SetAttributes(telemetry.AttrExitCode.Int(report.ExitCode))
	if err != nil {
		cls := Classify(err)
		span.SetAttributes(telemetry.AttrErrorClass.String(string(cls.Class)))
		telemetry.RecordError(span, err)
		tel.Metrics.RecordError(string(cls.Class))
	} else {
		telemetry.RecordSuccess(span)
	}
	for _, v := range report.Variants {
		if v.Emitted {
			tel.Metrics.RecordVariant("emitted")
		} else {
			tel.Metrics.RecordVariant("omitted")
		}
		for _, d := range v.Diagnostics {
			tel.Metrics.RecordDiagnostic(string(d.Severity), d.Rule)
		}
	}
	tel.Metrics.RecordRunCompleted(report.ExitCode, report.Duration)
	p.finishHistory(ctx, report, logger)

	logger.WithFields(map[string]interface{}{
		"exit_code": report.ExitCode,
		"emitted":   len(report.Emitted()),
		"omitted":   len(report.Omitted()),
		"duration":  report.Duration.String(),
	}).Info("Run finished")

	if err != nil {
		return report, Classify(err).WithSource(req.Path)
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, report *Report) error {
	format, err := plan.ParseFormat(string(req.Format))
	if err != nil {
		return NewUsageError("invalid plan format", err).WithCode(ErrCodeBadFormat)
	}

	desc, err := p.parse(ctx, req)
	if err != nil {
		return err
	}
	report.Source = desc.Source()

	result, err := p.resolve(ctx, desc, req.Variants)
	if err != nil {
		return err
	}

	if err := p.validate(ctx, desc, result, report); err != nil {
		return err
	}

	var emitted []*resolver.ResolvedConfig
	for _, v := range report.Variants {
		if v.Emitted {
			emitted = append(emitted, v.Config)
		}
	}
	report.Document = plan.Build(desc.Source(), emitted, report.Omitted())

	if err := p.emit(ctx, req, format, report); err != nil {
		return err
	}

	return validationOutcome(report)
}

func (p *Pipeline) parse(ctx context.Context, req Request) (desc *descriptor.Descriptor, err error) {
	st := telemetry.StartStage(ctx, StageParse)
	defer func() { st.End(err) }()

	if req.Source != nil {
		desc, err = descriptor.Parse(req.Path, req.Source)
	} else {
		desc, err = descriptor.ParseFile(req.Path)
	}
	if err != nil {
		var pe *descriptor.ParseError
		if errors.As(err, &pe) {
			return nil, NewParseError("", err).WithSource(req.Path)
		}
		// Unreadable file: still no plan can be produced.
		return nil, NewParseError("failed to read descriptor", err).WithSource(req.Path)
	}

	st.Logger.WithFields(map[string]interface{}{
		"plugins":  len(desc.Plugins()),
		"variants": len(desc.Variants()),
	}).Debug("Descriptor parsed")
	return desc, nil
}

func (p *Pipeline) resolve(ctx context.Context, desc *descriptor.Descriptor, variants []string) (result *resolver.Result, err error) {
	st := telemetry.StartStage(ctx, StageResolve)
	defer func() { st.End(err) }()

	r := resolver.New(p.registry,
		resolver.WithParallelism(p.parallelism),
		resolver.WithVariants(variants...),
		resolver.WithLogger(st.Logger.Zerolog()),
	)
	result, err = r.Resolve(st.Ctx, desc)
	if err != nil {
		return nil, Classify(err)
	}
	return result, nil
}

func (p *Pipeline) validate(ctx context.Context, desc *descriptor.Descriptor, result *resolver.Result, report *Report) (err error) {
	st := telemetry.StartStage(ctx, StageValidate)
	defer func() { st.End(err) }()

	v, err := validate.New(p.identities,
		validate.WithPlugins(result.Plugins...),
		validate.WithPolicyEngine(p.policies),
		validate.WithModule(desc.Source()),
		validate.WithLogger(st.Logger.Zerolog()),
	)
	if err != nil {
		return NewRegistryError("invalid plugin catalog", err).WithCode(ErrCodeBadCatalog)
	}

	byVariant := v.ValidateAll(st.Ctx, result.Configs)
	report.Variants = make([]VariantReport, 0, len(result.Configs))
	for _, cfg := range result.Configs {
		ds := append(result.DiagnosticsFor(cfg.Variant), byVariant[cfg.Variant]...)
		report.Variants = append(report.Variants, VariantReport{
			Name:        cfg.Variant,
			Emitted:     !ds.HasErrors(),
			Config:      cfg,
			Diagnostics: ds,
		})
	}
	return nil
}

func (p *Pipeline) emit(ctx context.Context, req Request, format plan.Format, report *Report) (err error) {
	st := telemetry.StartStage(ctx, StageEmit)
	defer func() { st.End(err) }()

	emitter, err := plan.NewEmitter(format, plan.WithLogger(st.Logger.Zerolog()))
	if err != nil {
		return NewInternalError("failed to create plan emitter", err)
	}

	var data []byte
	switch {
	case req.DryRun:
		data, err = emitter.Render(report.Document)
		if err != nil {
			err = &plan.EmitError{Sink: "render", Err: err}
		}
	case req.Output != "":
		data, err = emitter.EmitFile(req.Output, report.Document)
	case req.Writer != nil:
		data, err = emitter.Emit(req.Writer, report.Document)
	default:
		data, err = emitter.Render(report.Document)
	}
	if err != nil {
		return Classify(err)
	}

	report.Plan = data
	report.Checksum = plan.Checksum(data)
	if tel := telemetry.FromTelemetryContext(ctx); tel != nil && req.sink() != "" {
		tel.Metrics.RecordPlanEmitted(string(format), len(data))
	}
	return nil
}

func validationOutcome(report *Report) error {
	var errs []error
	for _, v := range report.Variants {
		if err := validate.Check(v.Name, v.Diagnostics); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return NewValidationError(
		fmt.Sprintf("%d of %d variant(s) failed validation", len(errs), len(report.Variants)),
		errors.Join(errs...),
	).WithDetail("omitted", report.Omitted())
}

func (p *Pipeline) startHistory(ctx context.Context, report *Report, req Request, logger *telemetry.Logger) {
	if p.history == nil {
		return
	}
	format := string(req.Format)
	if format == "" {
		format = string(plan.FormatJSON)
	}
	run := &stores.Run{
		ID:         report.RunID,
		Descriptor: req.Path,
		Format:     format,
		Sink:       req.sink(),
		Variants:   strings.Join(req.Variants, ","),
	}
	if err := p.history.CreateRun(ctx, run); err != nil {
		logger.WithError(err).Warn("Failed to record run start")
	}
}

func (p *Pipeline) finishHistory(ctx context.Context, report *Report, logger *telemetry.Logger) {
	if p.history == nil {
		return
	}

	results := make([]*stores.VariantResult, 0, len(report.Variants))
	for i, v := range report.Variants {
		data, err := json.Marshal(v.Diagnostics.Sorted())
		if err != nil || v.Diagnostics == nil {
			data = []byte("[]")
		}
		results = append(results, &stores.VariantResult{
			RunID:       report.RunID,
			Variant:     v.Name,
			Position:    i,
			Emitted:     v.Emitted,
			Errors:      len(v.Diagnostics.Errors()),
			Warnings:    len(v.Diagnostics.Warnings()),
			Diagnostics: string(data),
		})
	}
	if err := p.history.AddVariantResults(ctx, results); err != nil {
		logger.WithError(err).Warn("Failed to record variant results")
	}

	var errMsg *string
	if report.Err != nil && report.ExitCode == ExitFatal {
		msg := report.Err.Error()
		errMsg = &msg
	}
	status := stores.RunStatus(report.Status())
	if err := p.history.CompleteRun(ctx, report.RunID, status, report.ExitCode, report.Checksum, errMsg); err != nil {
		logger.WithError(err).Warn("Failed to record run outcome")
	}
}
