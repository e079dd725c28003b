package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatch_RunsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.hcl")
	if err := os.WriteFile(path, []byte(`plugins = []`), 0o644); err != nil {
		t.Fatal(err)
	}
	// Writes to other files in the directory are ignored.
	other := filepath.Join(dir, "notes.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{path}, 10*time.Millisecond, func(context.Context) {
			calls.Add(1)
		})
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("onChange was not called")
		case <-tick.C:
			_ = os.WriteFile(other, []byte("x"), 0o644)
			_ = os.WriteFile(path, []byte(`plugins = ["app"]`), 0o644)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_NothingToWatch(t *testing.T) {
	if err := Watch(context.Background(), nil, 0, func(context.Context) {}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "build.hcl")
	if err := Watch(context.Background(), []string{path}, 0, func(context.Context) {}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
