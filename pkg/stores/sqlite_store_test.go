package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a migrated store backed by a temporary file.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Fatal("health check passed before Init")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate in-memory store: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Running again is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}

	for _, table := range []string{"runs", "variant_results"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{
		ID:         "run-1",
		Descriptor: "app/build.hcl",
		Format:     "json",
		Sink:       "plan.json",
		Variants:   "debug,release",
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if run.Status != RunStatusRunning || run.StartedAt.IsZero() {
		t.Fatalf("CreateRun() did not fill defaults: %+v", run)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Descriptor != "app/build.hcl" || got.Status != RunStatusRunning || got.CompletedAt != nil {
		t.Fatalf("GetRun() = %+v", got)
	}

	if err := store.CompleteRun(ctx, "run-1", RunStatusInvalid, 1, "abc123", nil); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != RunStatusInvalid || got.ExitCode != 1 || got.Checksum != "abc123" {
		t.Errorf("completed run = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if got.Error != nil {
		t.Errorf("error = %q, want nil", *got.Error)
	}
}

func TestCompleteRun_WithError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, &Run{ID: "r", Descriptor: "x.hcl", Format: "json"}); err != nil {
		t.Fatal(err)
	}
	msg := `unknown plugin "Z"`
	if err := store.CompleteRun(ctx, "r", RunStatusFailed, 2, "", &msg); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}
	got, err := store.GetRun(ctx, "r")
	if err != nil {
		t.Fatal(err)
	}
	if got.Error == nil || *got.Error != msg {
		t.Fatalf("error = %v, want %q", got.Error, msg)
	}
}

func TestRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun() error = %v, want ErrNotFound", err)
	}
	if err := store.CompleteRun(ctx, "missing", RunStatusSucceeded, 0, "", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteRun() error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteRun() error = %v, want ErrNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := &Run{ID: id, Descriptor: "build.hcl", Format: "json", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun(%s) error = %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("ListRuns(2, 0) = %v", ids(runs))
	}

	runs, err = store.ListRuns(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "a" {
		t.Fatalf("ListRuns(10, 2) = %v", ids(runs))
	}
	if !runs[0].StartedAt.Equal(base) {
		t.Errorf("started_at = %v, want %v", runs[0].StartedAt, base)
	}
}

func TestVariantResults(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, &Run{ID: "run-1", Descriptor: "build.hcl", Format: "yaml"}); err != nil {
		t.Fatal(err)
	}

	results := []*VariantResult{
		{RunID: "run-1", Variant: "release", Position: 1, Emitted: true, Warnings: 1,
			Diagnostics: `[{"severity":"warning","message":"uses debug signing"}]`},
		{RunID: "run-1", Variant: "debug", Position: 0, Emitted: false, Errors: 1},
	}
	if err := store.AddVariantResults(ctx, results); err != nil {
		t.Fatalf("AddVariantResults() error = %v", err)
	}

	got, err := store.ListVariantResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListVariantResults() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Variant != "debug" || got[0].Emitted || got[0].Errors != 1 || got[0].Diagnostics != "[]" {
		t.Errorf("first result = %+v", got[0])
	}
	if got[1].Variant != "release" || !got[1].Emitted || got[1].Warnings != 1 {
		t.Errorf("second result = %+v", got[1])
	}
}

func TestVariantResults_RollbackOnDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, &Run{ID: "run-1", Descriptor: "build.hcl", Format: "json"}); err != nil {
		t.Fatal(err)
	}
	results := []*VariantResult{
		{RunID: "run-1", Variant: "debug", Position: 0},
		{RunID: "run-1", Variant: "debug", Position: 1},
	}
	if err := store.AddVariantResults(ctx, results); err == nil {
		t.Fatal("expected primary key violation")
	}
	got, err := store.ListVariantResults(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("partial insert kept %d rows", len(got))
	}
}

func TestDeleteRun_Cascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, &Run{ID: "run-1", Descriptor: "build.hcl", Format: "json"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddVariantResults(ctx, []*VariantResult{{RunID: "run-1", Variant: "default"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}
	got, err := store.ListVariantResults(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("variant results survived delete: %d", len(got))
	}
}

func ids(runs []*Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
