// Package diag defines the diagnostics produced while resolving and
// validating build descriptors.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity is the severity of a diagnostic.
type Severity string

const (
	// SeverityError blocks plan emission for the affected variant.
	SeverityError Severity = "error"

	// SeverityWarning is reported but never blocks emission.
	SeverityWarning Severity = "warning"
)

// Pos is a location in a descriptor source.
type Pos struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String renders the position as file:line:column.
func (p Pos) String() string {
	if p.File == "" && p.Line == 0 {
		return ""
	}
	if p.Line == 0 {
		return p.File
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Diagnostic describes a single problem found in a resolved configuration.
type Diagnostic struct {
	// Severity is error or warning.
	Severity Severity `json:"severity"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Path is the originating field path (e.g. "variant.debug.target_sdk").
	Path string `json:"path"`

	// Variant is the name of the variant the diagnostic belongs to.
	Variant string `json:"variant,omitempty"`

	// Rule identifies the check that produced the diagnostic.
	Rule string `json:"rule,omitempty"`

	// Pos is the source location of the offending value, when known.
	Pos *Pos `json:"pos,omitempty"`
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(string(d.Severity))
	if d.Variant != "" {
		fmt.Fprintf(&b, " [%s]", d.Variant)
	}
	if d.Path != "" {
		fmt.Fprintf(&b, " %s", d.Path)
	}
	fmt.Fprintf(&b, ": %s", d.Message)
	if d.Pos != nil {
		if loc := d.Pos.String(); loc != "" {
			fmt.Fprintf(&b, " (%s)", loc)
		}
	}
	return b.String()
}

// Errorf builds an error diagnostic.
func Errorf(path, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Warningf builds a warning diagnostic.
func Warningf(path, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Diagnostics is an ordered collection of diagnostics.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic has error severity.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the error-severity diagnostics.
func (ds Diagnostics) Errors() Diagnostics {
	return ds.filter(SeverityError)
}

// Warnings returns the warning-severity diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	return ds.filter(SeverityWarning)
}

func (ds Diagnostics) filter(sev Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// ForVariant stamps the variant name and rule on every diagnostic that does
// not carry one yet.
func (ds Diagnostics) ForVariant(variant, rule string) Diagnostics {
	out := make(Diagnostics, len(ds))
	for i, d := range ds {
		if d.Variant == "" {
			d.Variant = variant
		}
		if d.Rule == "" {
			d.Rule = rule
		}
		out[i] = d
	}
	return out
}

// Sorted returns a copy ordered by severity (errors first), then path, then
// message. The receiver is left untouched.
func (ds Diagnostics) Sorted() Diagnostics {
	out := append(Diagnostics(nil), ds...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity == SeverityError
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// Error joins all diagnostics into a single message.
func (ds Diagnostics) Error() string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, "; ")
}
