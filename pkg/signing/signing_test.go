package signing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSet(t *testing.T) {
	s := DefaultSet()
	if !s.Has(DebugIdentity) {
		t.Error("default set lacks the debug identity")
	}
	if s.Has("upload") {
		t.Error("default set should not know upload")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantNames []string
		wantErr   string
	}{
		{
			name: "adds debug",
			yaml: `
identities:
  - name: upload
    store: keystores/upload.jks
    alias: upload
`,
			wantNames: []string{"debug", "upload"},
		},
		{
			name: "explicit debug kept",
			yaml: `
identities:
  - name: debug
    store: ~/.android/debug.keystore
`,
			wantNames: []string{"debug"},
		},
		{
			name:      "empty",
			yaml:      "",
			wantNames: []string{"debug"},
		},
		{
			name: "duplicate",
			yaml: `
identities:
  - name: upload
  - name: upload
`,
			wantErr: `"upload" declared more than once`,
		},
		{
			name: "missing name",
			yaml: `
identities:
  - store: x.jks
`,
			wantErr: "invalid signing identity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Join(s.Names(), ","); got != strings.Join(tt.wantNames, ",") {
				t.Errorf("Names() = %s, want %v", got, tt.wantNames)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystores.yaml")
	if err := os.WriteFile(path, []byte("identities:\n  - name: release\n    alias: rel\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	id, ok := s.Get("release")
	if !ok || id.Alias != "rel" {
		t.Errorf("Get(release) = %+v, %v", id, ok)
	}
}

func TestNilSet(t *testing.T) {
	var s *Set
	if s.Has(DebugIdentity) {
		t.Error("nil set should know nothing")
	}
}
