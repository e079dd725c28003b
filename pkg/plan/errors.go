package plan

import "fmt"

// EmitError reports a failure to write a plan to its sink. Partial is set
// once writing has started. A file sink never keeps incomplete output: its
// temporary file is removed.
type EmitError struct {
	// Sink is the file path, or "stream" for writers.
	Sink    string
	Partial bool
	Err     error
}

// Error implements the error interface.
func (e *EmitError) Error() string {
	if e.Partial {
		return fmt.Sprintf("emit plan to %s: output incomplete: %v", e.Sink, e.Err)
	}
	return fmt.Sprintf("emit plan to %s: %v", e.Sink, e.Err)
}

// Unwrap returns the underlying error.
func (e *EmitError) Unwrap() error { return e.Err }
