package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a plan serialization format.
type Format string

const (
	// FormatJSON is indented JSON with a trailing newline.
	FormatJSON Format = "json"

	// FormatYAML is YAML with two-space indentation.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported plan format %q (want json or yaml)", s)
	}
}

// Encode serializes doc. Map keys are written in sorted order by both
// encoders, so the output is a pure function of the document.
func Encode(doc *Document, format Format) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("plan document is nil")
	}

	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode plan as JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode plan as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode plan as YAML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}
}
