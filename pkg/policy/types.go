package policy

import (
	"github.com/buildplan/buildplan/pkg/diag"
)

// Policy is a Rego policy evaluated against every resolved configuration.
// The module must define a `deny` set in its package; each element is
// either a message string or an object with "message" and optional
// "severity" and "field" keys.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity diag.Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Input is the document a policy sees as `input`.
type Input struct {
	// Variant is the name of the variant being evaluated.
	Variant string `json:"variant"`

	// Config holds the resolved settings keyed by setting name.
	Config map[string]interface{} `json:"config"`

	// Provenance maps setting names to the layer that supplied them.
	Provenance map[string]string `json:"provenance,omitempty"`

	// Variants lists every variant resolved from the same descriptor.
	Variants []string `json:"variants,omitempty"`

	// Module is the descriptor source name.
	Module string `json:"module,omitempty"`
}

// Violation is a single policy finding.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity diag.Severity `json:"severity"`

	// Field is the offending setting, when the policy names one.
	Field string `json:"field,omitempty"`
}
