package resolver

import (
	"fmt"
	"strings"
)

// UnknownVariantError reports a requested variant the descriptor does not
// declare.
type UnknownVariantError struct {
	Name  string
	Known []string
}

// Error implements the error interface.
func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown variant %q (declared: %s)", e.Name, strings.Join(e.Known, ", "))
}
