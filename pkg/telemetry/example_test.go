package telemetry_test

import (
	"context"
	"errors"

	"github.com/buildplan/buildplan/pkg/telemetry"
)

func Example_stageInstrumentation() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Output = "stdout"
	cfg.Logging.Level = "warn"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	st := telemetry.StartStage(ctx, "parse")
	st.End(nil)

	st = telemetry.StartStage(ctx, "emit")
	st.End(errors.New("disk full"))

	// Output:
}
