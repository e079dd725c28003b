package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/engine"
	"github.com/buildplan/buildplan/pkg/policy"
	"github.com/buildplan/buildplan/pkg/settings"
	"github.com/buildplan/buildplan/pkg/signing"
	"github.com/buildplan/buildplan/pkg/stores"
	"github.com/buildplan/buildplan/pkg/telemetry"
)

// environment is everything a command needs besides its arguments.
type environment struct {
	settings   *settings.Settings
	tel        *telemetry.Telemetry
	registry   *catalog.Registry
	identities *signing.Set
	policies   *policy.Engine
	store      *stores.SQLiteStore
}

// loadSettings applies, weakest first: defaults, the settings file, command
// flags and LOG_LEVEL.
func loadSettings(cmd *cobra.Command, opts *globalOptions) (*settings.Settings, error) {
	var (
		s   *settings.Settings
		err error
	)
	if opts.configPath != "" {
		s, err = settings.Load(opts.configPath)
	} else {
		s, err = settings.LoadOptional(settings.DefaultFile)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("catalog") {
		s.Catalog = opts.catalog
	}
	if flags.Changed("keystores") {
		s.Keystores = opts.keystores
	}
	if flags.Changed("policy") {
		s.Policies = append(s.Policies, opts.policies...)
	}
	if flags.Changed("history") {
		s.History = opts.history
	}
	if flags.Changed("metrics-out") {
		s.Metrics.Textfile = opts.metricsOut
	}
	if flags.Changed("trace-out") {
		s.Tracing.Enabled = true
		s.Tracing.Exporter = "stdout"
		s.Tracing.Output = opts.traceOut
	}
	if opts.verbose {
		s.Logging.Level = "debug"
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		s.Logging.Level = level
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// setup loads settings, telemetry, the plugin catalog, signing identities,
// policies and, when configured, the run history.
func setup(cmd *cobra.Command, opts *globalOptions) (*environment, context.Context, error) {
	s, err := loadSettings(cmd, opts)
	if err != nil {
		return nil, nil, err
	}

	tcfg := s.Telemetry()
	tcfg.ServiceVersion = opts.info.Version
	if tcfg.ServiceVersion == "" {
		tcfg.ServiceVersion = "dev"
	}
	tel, err := telemetry.NewTelemetry(tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	env := &environment{settings: s, tel: tel}
	ctx := tel.WithContext(cmd.Context())

	if err := env.load(ctx); err != nil {
		env.close(ctx)
		return nil, nil, err
	}
	return env, ctx, nil
}

func (e *environment) load(ctx context.Context) error {
	if err := e.loadInputs(); err != nil {
		return err
	}

	var err error
	e.policies, err = policy.NewEngine(ctx, e.tel.Logger.Zerolog())
	if err != nil {
		return fmt.Errorf("failed to start policy engine: %w", err)
	}
	if len(e.settings.Policies) > 0 {
		if err := e.policies.LoadPolicies(ctx, e.settings.Policies); err != nil {
			return err
		}
	}
	for _, name := range e.settings.DisabledPolicies {
		if err := e.policies.DisablePolicy(name); err != nil {
			return fmt.Errorf("disabled_policies: %w", err)
		}
	}

	if e.settings.History != "" {
		if e.store, err = openHistory(ctx, e.settings.History); err != nil {
			return err
		}
	}
	return nil
}

// loadInputs (re)loads the plugin catalog and signing identities.
func (e *environment) loadInputs() error {
	var err error
	if e.settings.Catalog != "" {
		e.registry, err = catalog.LoadFile(e.settings.Catalog)
	} else {
		e.registry, err = catalog.Builtin()
	}
	if err != nil {
		return engine.NewRegistryError("failed to load plugin catalog", err).WithCode(engine.ErrCodeBadCatalog)
	}

	if e.settings.Keystores != "" {
		e.identities, err = signing.LoadFile(e.settings.Keystores)
		if err != nil {
			return fmt.Errorf("failed to load signing identities: %w", err)
		}
	} else {
		e.identities = signing.DefaultSet()
	}
	return nil
}

// inputFiles lists the files a run reads besides the descriptor.
func (e *environment) inputFiles() []string {
	var files []string
	for _, f := range []string{e.settings.Catalog, e.settings.Keystores} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

func openHistory(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// pipeline builds the engine pipeline over the loaded environment.
func (e *environment) pipeline() (*engine.Pipeline, error) {
	opts := []engine.Option{
		engine.WithPolicyEngine(e.policies),
		engine.WithParallelism(e.settings.Parallelism),
	}
	if e.store != nil {
		opts = append(opts, engine.WithHistory(e.store))
	}
	return engine.NewPipeline(e.registry, e.identities, opts...)
}

func (e *environment) close(ctx context.Context) {
	var errs []error
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	errs = append(errs, e.tel.Shutdown(ctx))
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Msg("Shutdown incomplete")
	}
}
