package engine_test

import (
	"context"
	"fmt"
	"os"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/engine"
)

func ExamplePipeline_Run() {
	registry, err := catalog.Builtin()
	if err != nil {
		panic(err)
	}
	p, err := engine.NewPipeline(registry, nil)
	if err != nil {
		panic(err)
	}

	src := `
plugins        = ["com.android.application", "org.jetbrains.kotlin.android"]
namespace      = "com.example.tuner"
application_id = "com.example.tuner"

variant "release" {
  min_sdk = 40
}

variant "debug" {
  application_id_suffix = ".debug"
}
`
	report, err := p.Run(context.Background(), engine.Request{
		Path:   "build.hcl",
		Source: []byte(src),
		Writer: os.Stdout,
	})
	fmt.Println("exit code:", engine.ExitCode(err))
	for _, d := range report.Diagnostics().Errors() {
		fmt.Println(d.Path+":", d.Message)
	}

	// Output:
	// {
	//   "format_version": 1,
	//   "module": "build.hcl",
	//   "variants": [
	//     {
	//       "variant": "debug",
	//       "namespace": "com.example.tuner",
	//       "application_id": "com.example.tuner.debug",
	//       "min_sdk": 21,
	//       "target_sdk": 34,
	//       "compile_sdk": 34,
	//       "compatibility": "11",
	//       "signing": "debug",
	//       "source_root": ".",
	//       "version_code": 1,
	//       "version_name": "1.0"
	//     }
	//   ],
	//   "omitted": [
	//     "release"
	//   ]
	// }
	// exit code: 1
	// variant.release.min_sdk: minimum exceeds target (min_sdk 40 > target_sdk 34)
}
