package engine

import (
	"time"

	"github.com/buildplan/buildplan/pkg/diag"
	"github.com/buildplan/buildplan/pkg/plan"
	"github.com/buildplan/buildplan/pkg/resolver"
)

// VariantReport is the outcome of one variant.
type VariantReport struct {
	Name        string
	Emitted     bool
	Config      *resolver.ResolvedConfig
	Diagnostics diag.Diagnostics
}

// Report describes a finished run. It is returned for fatal runs too, with
// whatever stages completed.
type Report struct {
	RunID  string
	Source string

	// Variants holds every resolved variant in declaration order.
	Variants []VariantReport

	// Document is the plan that was emitted, or would have been for a dry run.
	Document *plan.Document

	// Plan holds the encoded document and Checksum its sha256.
	Plan     []byte
	Checksum string

	ExitCode int
	Err      error
	Duration time.Duration
}

// Diagnostics returns every diagnostic of the run, variant by variant in
// declaration order, each list sorted errors first.
func (r *Report) Diagnostics() diag.Diagnostics {
	var out diag.Diagnostics
	for _, v := range r.Variants {
		out = append(out, v.Diagnostics.Sorted()...)
	}
	return out
}

// Variant returns the report of the named variant.
func (r *Report) Variant(name string) (VariantReport, bool) {
	for _, v := range r.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return VariantReport{}, false
}

// Emitted returns the names of variants included in the plan.
func (r *Report) Emitted() []string {
	return r.names(true)
}

// Omitted returns the names of variants withheld because of errors.
func (r *Report) Omitted() []string {
	return r.names(false)
}

func (r *Report) names(emitted bool) []string {
	out := []string{}
	for _, v := range r.Variants {
		if v.Emitted == emitted {
			out = append(out, v.Name)
		}
	}
	return out
}

// Status summarises the run for history records.
func (r *Report) Status() string {
	switch r.ExitCode {
	case ExitOK:
		return "succeeded"
	case ExitInvalid:
		return "invalid"
	default:
		return "failed"
	}
}
