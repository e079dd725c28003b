package validate

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"

	"github.com/buildplan/buildplan/pkg/catalog"
	"github.com/buildplan/buildplan/pkg/diag"
	"github.com/buildplan/buildplan/pkg/resolver"
)

// constraintProgram is a compiled plugin constraint.
type constraintProgram struct {
	plugin     string
	index      int
	constraint catalog.Constraint
	program    celgo.Program
}

func newConstraintEnv() (*celgo.Env, error) {
	return celgo.NewEnv(
		celgo.Variable("config", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("variant", celgo.StringType),
	)
}

// compileConstraints type-checks every constraint of plugins. A constraint
// that does not compile or does not yield a bool is a catalog error.
func compileConstraints(plugins []catalog.PluginDefault) ([]constraintProgram, error) {
	env, err := newConstraintEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	var out []constraintProgram
	for _, p := range plugins {
		for i, c := range p.Constraints {
			ast, issues := env.Compile(c.Expr)
			if issues != nil && issues.Err() != nil {
				return nil, fmt.Errorf("plugin %s constraint %q: %w", p.ID, c.Expr, issues.Err())
			}
			if !ast.OutputType().IsExactType(celgo.BoolType) && !ast.OutputType().IsExactType(celgo.DynType) {
				return nil, fmt.Errorf("plugin %s constraint %q must evaluate to bool, got %s", p.ID, c.Expr, ast.OutputType())
			}
			prg, err := env.Program(ast)
			if err != nil {
				return nil, fmt.Errorf("plugin %s constraint %q: %w", p.ID, c.Expr, err)
			}
			out = append(out, constraintProgram{plugin: p.ID, index: i, constraint: c, program: prg})
		}
	}
	return out, nil
}

func (c constraintProgram) path() string {
	return fmt.Sprintf("plugin.%s.constraints[%d]", c.plugin, c.index)
}

// evaluate runs the constraint against cfg. A constraint that cannot be
// evaluated (for example because it reads an unset key) yields a warning.
func (c constraintProgram) evaluate(cfg *resolver.ResolvedConfig) *diag.Diagnostic {
	activation := map[string]any{
		"config":  cfg.Settings(),
		"variant": cfg.Variant,
	}
	out, _, err := c.program.Eval(activation)
	if err != nil {
		return &diag.Diagnostic{
			Severity: diag.SeverityWarning,
			Message:  fmt.Sprintf("constraint %q could not be evaluated: %v", c.constraint.Expr, err),
			Path:     c.path(),
			Variant:  cfg.Variant,
			Rule:     RulePluginConstraint,
		}
	}
	ok, isBool := out.Value().(bool)
	if isBool && ok {
		return nil
	}
	msg := c.constraint.Message
	if !isBool {
		msg = fmt.Sprintf("constraint %q returned %v, want bool", c.constraint.Expr, out.Value())
	}
	return &diag.Diagnostic{
		Severity: c.constraint.EffectiveSeverity(),
		Message:  msg,
		Path:     c.path(),
		Variant:  cfg.Variant,
		Rule:     RulePluginConstraint,
	}
}
