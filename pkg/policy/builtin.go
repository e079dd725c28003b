package policy

import (
	"github.com/buildplan/buildplan/pkg/diag"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		releaseDebugSigningPolicy(),
		targetSDKFloorPolicy(),
		versionNamePolicy(),
	}
}

// releaseDebugSigningPolicy flags release builds signed with the debug
// identity.
func releaseDebugSigningPolicy() Policy {
	return Policy{
		Name:        "release-debug-signing",
		Description: "Release variants should not be signed with the debug identity",
		Severity:    diag.SeverityWarning,
		Enabled:     true,
		Tags:        []string{"signing", "release"},
		Rego: `package buildplan.policies.signing

import rego.v1

deny contains violation if {
	input.variant == "release"
	input.config.signing == "debug"
	violation := {
		"message": "release variant is signed with the debug identity",
		"field": "signing",
	}
}
`,
	}
}

// targetSDKFloorPolicy warns when the target API level is older than the
// level app stores currently accept for updates.
func targetSDKFloorPolicy() Policy {
	return Policy{
		Name:        "target-sdk-floor",
		Description: "Target API level should be 34 or newer",
		Severity:    diag.SeverityWarning,
		Enabled:     true,
		Tags:        []string{"sdk"},
		Rego: `package buildplan.policies.sdk

import rego.v1

min_target := 34

deny contains violation if {
	input.config.target_sdk > 0
	input.config.target_sdk < min_target
	violation := {
		"message": sprintf("target_sdk %d is below %d", [input.config.target_sdk, min_target]),
		"field": "target_sdk",
	}
}
`,
	}
}

// versionNamePolicy warns on version names that are not dotted numbers with
// an optional suffix.
func versionNamePolicy() Policy {
	return Policy{
		Name:        "version-name-format",
		Description: "Version names should look like MAJOR.MINOR[.PATCH][suffix]",
		Severity:    diag.SeverityWarning,
		Enabled:     true,
		Tags:        []string{"versioning"},
		Rego: `package buildplan.policies.versioning

import rego.v1

deny contains violation if {
	name := input.config.version_name
	name != ""
	not regex.match("^[0-9]+\\.[0-9]+(\\.[0-9]+)?([-+.][0-9A-Za-z.-]+)?$", name)
	violation := {
		"message": sprintf("version_name %q is not of the form MAJOR.MINOR[.PATCH]", [name]),
		"field": "version_name",
	}
}
`,
	}
}
