package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinCatalog []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Builtin returns a registry populated from the catalog compiled into the
// binary.
func Builtin() (*Registry, error) {
	r, err := Parse(builtinCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	return r, nil
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML catalog and builds a registry from it.
func Parse(data []byte) (*Registry, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if file.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported catalog version %d (want %d)", file.Version, FormatVersion)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	r := NewRegistry()
	toolchain, err := convertDefaults("toolchain", file.Toolchain)
	if err != nil {
		return nil, err
	}
	r.SetToolchain(toolchain)

	for _, entry := range file.Plugins {
		defaults, err := convertDefaults("plugin "+entry.ID, entry.Defaults)
		if err != nil {
			return nil, err
		}
		p := PluginDefault{
			ID:          entry.ID,
			Aliases:     entry.Aliases,
			Description: entry.Description,
			Defaults:    defaults,
			Constraints: entry.Constraints,
		}
		if err := r.Register(p); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
	}
	return r, nil
}
