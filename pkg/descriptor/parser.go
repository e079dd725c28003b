package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Parse parses descriptor source. The grammar is chosen by the extension of
// name: ".cue" selects CUE, anything else HCL.
func Parse(name string, src []byte) (*Descriptor, error) {
	if strings.EqualFold(filepath.Ext(name), ".cue") {
		return ParseCUE(name, src)
	}
	return ParseHCL(name, src)
}

// ParseFile reads and parses the descriptor at path.
func ParseFile(path string) (*Descriptor, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", path, err)
	}
	return Parse(path, src)
}
