// Package resolver merges the layers of a build descriptor into one
// ResolvedConfig per variant.
//
// Layers are applied weakest first:
//
//  1. toolchain defaults, then the defaults of every referenced plugin in
//     declaration order (a later plugin wins on a shared key)
//  2. module-level settings
//  3. the overrides of one variant
//
// A descriptor without variants yields a single configuration named
// "default" built from layers 1 and 2. Each variant is resolved from the
// same immutable base, so variants never observe each other's overrides and
// may be resolved concurrently.
//
// Every resolved key keeps its provenance, which diagnostics use as their
// field path ("variant.debug.target_sdk", "plugin.com.android.application.compile_sdk").
package resolver
