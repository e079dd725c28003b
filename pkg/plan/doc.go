// Package plan builds, validates and writes versioned build plan documents.
//
// A document lists one record per emitted variant in declaration order and
// the names of the variants withheld because of error diagnostics:
//
//	{
//	  "format_version": 1,
//	  "module": "android/app/build.hcl",
//	  "variants": [
//	    {"variant": "release", "namespace": "com.example.flutter_tuner", ...}
//	  ],
//	  "omitted": []
//	}
//
// Documents are checked against the embedded CUE #BuildPlan definition
// before anything is written.
package plan
