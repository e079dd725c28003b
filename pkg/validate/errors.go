package validate

import (
	"fmt"

	"github.com/buildplan/buildplan/pkg/diag"
)

// ValidationError aggregates the error diagnostics of one variant. It never
// affects sibling variants.
type ValidationError struct {
	Variant     string
	Diagnostics diag.Diagnostics
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	errs := e.Diagnostics.Errors()
	return fmt.Sprintf("variant %q failed validation with %d error(s): %s", e.Variant, len(errs), errs.Error())
}

// Check returns a *ValidationError when diags holds at least one error.
func Check(variant string, diags diag.Diagnostics) error {
	if !diags.HasErrors() {
		return nil
	}
	return &ValidationError{Variant: variant, Diagnostics: diags}
}
