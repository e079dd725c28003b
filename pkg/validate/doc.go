// Package validate checks resolved configurations and reports problems as
// diagnostics.
//
// Rules, in evaluation order:
//
//	required                 every field is supplied by some layer
//	version-order            min_sdk <= target_sdk <= compile_sdk (one error at most)
//	application-id           two or more lowercase dot-separated segments
//	namespace                same grammar as application-id, warning only
//	signing-identity         the signing reference names a known identity
//	version-code             version_code is positive
//	plugin-constraint        CEL expressions declared by plugins in the catalog
//	policy:<name>            Rego policies from pkg/policy
//	shared-signing-identity  a later variant reuses an identity (warning, ValidateAll only)
//
// Error diagnostics withhold the affected variant from the plan; they never
// affect sibling variants.
package validate
