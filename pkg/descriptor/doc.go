// Package descriptor parses per-module build descriptors into an immutable,
// unresolved Descriptor tree.
//
// Two grammars are accepted. HCL native syntax is the primary one:
//
//	plugins        = ["com.android.application", "kotlin-android"]
//	namespace      = "com.example.tuner"
//	compile_sdk    = 36
//	target_sdk     = 36
//	application_id = "com.example.tuner"
//	version_code   = 2
//	version_name   = "2.0.0"
//
//	variant "release" {
//	  signing = "debug"
//	}
//
// CUE is accepted for files ending in ".cue", with variants declared as a
// list of structs carrying a "name" field.
//
// Duplicate plugin identifiers and duplicate variant names are rejected with
// a *ParseError that names every offending location. Unknown top-level keys
// (and unknown HCL blocks) are kept as opaque settings. Gradle's camelCase
// spellings (minSdk, applicationId, ...) are accepted as aliases of the
// canonical snake_case keys.
package descriptor
