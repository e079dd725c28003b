// Package engine runs the buildplan pipeline: parse a descriptor, look up its
// plugins, resolve every variant, validate the results and emit one plan.
//
// # Errors and exit codes
//
// Every failure is classified into an ErrorClass:
//
//   - parse: the descriptor is malformed or unreadable; nothing is emitted.
//   - registry: a plugin is unknown or the catalog is broken; nothing is emitted.
//   - usage: the request names an unknown variant or format; nothing is emitted.
//   - validation: some variants carry error diagnostics. They are omitted from
//     the plan and listed in its "omitted" field; the rest are emitted.
//   - emit: the sink could not be written. File sinks never keep partial output.
//   - internal: anything else.
//
// Validation maps to exit code 1; every other class maps to 2.
//
// # Usage
//
//	p, err := engine.NewPipeline(registry, identities,
//	    engine.WithPolicyEngine(policies),
//	    engine.WithHistory(store),
//	)
//	if err != nil {
//	    return err
//	}
//	report, err := p.Run(ctx, engine.Request{Path: "app/build.hcl", Output: "plan.json"})
//	for _, d := range report.Diagnostics() {
//	    fmt.Println(d)
//	}
//	os.Exit(engine.ExitCode(err))
//
// Telemetry attached to ctx with telemetry.(*Telemetry).WithContext is used
// for stage spans, metrics and logging.
package engine
