package descriptor

import (
	"fmt"
	"strings"

	"github.com/buildplan/buildplan/pkg/diag"
)

// Issue is one problem found while parsing a descriptor.
type Issue struct {
	Pos     diag.Pos
	Message string
}

// String renders the issue with its location.
func (i Issue) String() string {
	if loc := i.Pos.String(); loc != "" {
		return loc + ": " + i.Message
	}
	return i.Message
}

// ParseError reports malformed descriptor input. No configuration can be
// resolved from a descriptor that failed to parse.
type ParseError struct {
	File   string
	Issues []Issue
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("parse %s: malformed descriptor", e.File)
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("parse %s: %s", e.File, strings.Join(parts, "; "))
}

// Pos returns the location of the first issue.
func (e *ParseError) Pos() diag.Pos {
	if len(e.Issues) == 0 {
		return diag.Pos{File: e.File}
	}
	return e.Issues[0].Pos
}

func singleIssue(file string, pos diag.Pos, format string, args ...any) *ParseError {
	return &ParseError{File: file, Issues: []Issue{{Pos: pos, Message: fmt.Sprintf(format, args...)}}}
}
