package plan

import (
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// planSchema describes a well-formed plan document.
const planSchema = `
#BuildPlan: {
	format_version: 1
	module:         string
	variants: [...#Variant]
	omitted: [...string]
}

#Variant: {
	variant:        string & != ""
	namespace:      string & != ""
	application_id: string & =~"^[a-z][a-z0-9_]*(\\.[a-z][a-z0-9_]*)+$"
	min_sdk:        int & >0
	target_sdk:     int & >=min_sdk
	compile_sdk:    int & >=target_sdk
	compatibility:  string & != ""
	signing:        string & != ""
	source_root:    string & != ""
	version_code:   int & >0
	version_name:   string & != ""
	extras?: {[string]: _}
}
`

// Schema checks documents against the #BuildPlan definition.
type Schema struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// NewSchema compiles the built-in plan schema.
func NewSchema() (*Schema, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(planSchema, cue.Filename("plan.cue"))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile plan schema: %w", err)
	}
	def := val.LookupPath(cue.ParsePath("#BuildPlan"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("plan schema has no #BuildPlan: %w", err)
	}
	return &Schema{ctx: ctx, def: def}, nil
}

// Validate reports whether doc satisfies #BuildPlan.
func (s *Schema) Validate(doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	// cue.Context is not safe for concurrent use.
	s.mu.Lock()
	defer s.mu.Unlock()

	val := s.ctx.CompileBytes(data, cue.Filename("plan.json"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}
	if err := s.def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("plan does not match schema: %w", err)
	}
	return nil
}
