package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus is the outcome of a resolve run.
type RunStatus string

const (
	// RunStatusRunning marks a run that has started and not yet completed.
	RunStatusRunning RunStatus = "running"
	// RunStatusSucceeded marks a run where every variant was emitted.
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusInvalid marks a run where some variant had error diagnostics.
	RunStatusInvalid RunStatus = "invalid"
	// RunStatusFailed marks a run stopped by a fatal error.
	RunStatusFailed RunStatus = "failed"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID          string     `json:"id"`
	Descriptor  string     `json:"descriptor"`
	Format      string     `json:"format"`
	Sink        string     `json:"sink"`
	Variants    string     `json:"variants"` // comma separated request, empty for all
	Status      RunStatus  `json:"status"`
	ExitCode    int        `json:"exit_code"`
	Checksum    string     `json:"checksum,omitempty"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// VariantResult records how one variant fared in a run.
type VariantResult struct {
	RunID       string `json:"run_id"`
	Variant     string `json:"variant"`
	Position    int    `json:"position"`
	Emitted     bool   `json:"emitted"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	Diagnostics string `json:"diagnostics"` // JSON array
}

// Store defines the interface for the run history.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	CompleteRun(ctx context.Context, id string, status RunStatus, exitCode int, checksum string, errMsg *string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Variant results
	AddVariantResults(ctx context.Context, results []*VariantResult) error
	ListVariantResults(ctx context.Context, runID string) ([]*VariantResult, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
