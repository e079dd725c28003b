// Package telemetry provides logging, tracing and metrics for buildplan runs.
//
// Logging is structured (zerolog) and travels in the context. Tracing uses the
// OpenTelemetry SDK with a stdout exporter that writes spans as JSON to a file
// or standard error; there is no network exporter. Metrics are collected in a
// private Prometheus registry and, when a textfile path is configured, dumped
// at shutdown in the text exposition format.
//
// Typical use:
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//	ctx = tel.WithContext(ctx)
//
//	st := telemetry.StartStage(ctx, "resolve")
//	result, err := resolve(st.Ctx)
//	st.End(err)
package telemetry
