package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buildplan/buildplan/cmd/buildplan/commands"
	"github.com/buildplan/buildplan/pkg/telemetry"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := commands.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr, commands.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
	stop()
	os.Exit(code)
}

// setupLogging configures the global zerolog logger for messages emitted
// before the command has loaded its settings.
func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	zerolog.SetGlobalLevel(telemetry.ParseLevel(level))
}
