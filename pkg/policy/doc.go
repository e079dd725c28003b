// Package policy evaluates Open Policy Agent (Rego) policies against
// resolved build configurations.
//
// Every policy module defines a `deny` set. The engine queries
// `data.<package>.deny` with an Input document:
//
//	{
//	  "variant": "release",
//	  "module": "android/app/build.hcl",
//	  "variants": ["release", "debug"],
//	  "config": {"signing": "debug", "target_sdk": 36, ...},
//	  "provenance": {"signing": "plugin:com.android.application", ...}
//	}
//
// Each element of the set becomes a Violation. A plain string is used as
// the message; an object may set "message", "severity" (error or warning)
// and "field" (the offending setting).
//
// # Built-in Policies
//
//   - release-debug-signing: a variant named release uses the debug identity
//   - target-sdk-floor: target_sdk below 34
//   - version-name-format: version_name is not MAJOR.MINOR[.PATCH][suffix]
//
// All built-in policies report warnings. Custom policies are loaded with
// Engine.LoadPolicies from .rego files (named after the file, warning by
// default) or .json definitions:
//
//	{"name": "no-legacy", "severity": "error", "enabled": true,
//	 "rego": "package custom\nimport rego.v1\ndeny contains \"legacy\" if input.config.min_sdk < 23"}
package policy
