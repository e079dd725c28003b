package catalog

import "fmt"

// NotFoundError reports a plugin identifier the registry does not know.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown plugin %q", e.ID)
}
