package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles the logger, tracer and metrics of one process.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Close()
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// Noop returns telemetry that records nothing. Useful in tests and library use.
func Noop() *Telemetry {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = false
	tracer, _ := NewTracer(TracingConfig{}, cfg.ServiceName, cfg.ServiceVersion)
	metrics, _ := NewMetrics(cfg.Metrics)
	return &Telemetry{
		Logger:  Nop(),
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown flushes spans, writes the metrics textfile if one is configured,
// and closes owned outputs.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if path := t.Config.Metrics.Textfile; path != "" {
		errs = append(errs, t.Metrics.WriteTextfile(path))
	}
	errs = append(errs, t.Tracer.Shutdown(ctx), t.Logger.Close())
	return errors.Join(errs...)
}

// Stage is one instrumented pipeline stage: a span, a timer and a logger
// carrying the stage name.
type Stage struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger

	name    string
	timer   *Timer
	metrics *Metrics
}

// StartStage begins an instrumented stage. Without telemetry in ctx the
// stage only carries a timer and the context logger.
func StartStage(ctx context.Context, name string) *Stage {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &Stage{
			Ctx:    ctx,
			Span:   trace.SpanFromContext(ctx),
			Logger: FromContext(ctx),
			name:   name,
			timer:  NewTimer(),
		}
	}

	spanCtx, span := tel.Tracer.StartStageSpan(ctx, name)
	logger := FromContext(ctx).WithField("stage", name)
	if span.SpanContext().IsValid() {
		logger = logger.WithField("trace_id", span.SpanContext().TraceID().String())
	}

	return &Stage{
		Ctx:     spanCtx,
		Span:    span,
		Logger:  logger,
		name:    name,
		timer:   NewTimer(),
		metrics: tel.Metrics,
	}
}

// End finishes the stage, recording its duration and outcome.
func (s *Stage) End(err error) {
	if s.metrics != nil {
		s.metrics.ObserveStage(s.name, s.timer.Duration())
		if err != nil {
			RecordError(s.Span, err)
		} else {
			RecordSuccess(s.Span)
		}
		s.Span.End()
	}
	if err != nil {
		s.Logger.WithError(err).Debug("stage failed")
		return
	}
	s.Logger.Debugf("stage finished in %s", s.timer.Duration())
}
