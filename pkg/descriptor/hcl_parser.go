package descriptor

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/buildplan/buildplan/pkg/diag"
)

// ParseHCL parses a descriptor written in HCL native syntax.
func ParseHCL(filename string, src []byte) (*Descriptor, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, parseErrorFromHCL(filename, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, singleIssue(filename, diag.Pos{File: filename}, "unexpected HCL body type %T", file.Body)
	}

	b := newBuilder(filename)
	for _, attr := range sortedAttributes(body.Attributes) {
		if CanonicalKey(attr.Name) == KeyPlugins {
			b.decodeHCLPlugins(attr)
			continue
		}
		val, ok := b.evalHCL(attr)
		if !ok {
			continue
		}
		b.setModule(attr.Name, val, posFromRange(attr.SrcRange))
	}

	for _, block := range body.Blocks {
		switch block.Type {
		case VariantBlock:
			b.decodeHCLVariant(block)
		default:
			key := strings.Join(append([]string{block.Type}, block.Labels...), ".")
			obj, ok := b.opaqueHCLBody(block.Body)
			if !ok {
				continue
			}
			b.setModule(key, Opaque(obj), posFromRange(block.DefRange()))
		}
	}

	return b.build()
}

func (b *builder) decodeHCLPlugins(attr *hclsyntax.Attribute) {
	pos := posFromRange(attr.SrcRange)
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		b.issues = append(b.issues, issuesFromHCL(diags)...)
		return
	}
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		b.issue(pos, "%q must be a list of plugin identifiers", KeyPlugins)
		return
	}

	var elemExprs []hclsyntax.Expression
	if tuple, ok := attr.Expr.(*hclsyntax.TupleConsExpr); ok {
		elemExprs = tuple.Exprs
	}

	idx := 0
	for it := val.ElementIterator(); it.Next(); idx++ {
		_, ev := it.Element()
		elemPos := pos
		if idx < len(elemExprs) {
			elemPos = posFromRange(elemExprs[idx].Range())
		}
		if ev.IsNull() || ev.Type() != cty.String {
			b.issue(elemPos, "plugin identifier must be a string")
			continue
		}
		b.addPlugin(ev.AsString(), elemPos)
	}
}

func (b *builder) decodeHCLVariant(block *hclsyntax.Block) {
	pos := posFromRange(block.DefRange())
	if len(block.Labels) != 1 {
		b.issue(pos, "variant block requires exactly one label (the variant name), got %d", len(block.Labels))
		return
	}
	for _, nested := range block.Body.Blocks {
		b.issue(posFromRange(nested.DefRange()), "variant %q: nested block %q is not allowed", block.Labels[0], nested.Type)
	}

	var overrides Settings
	for _, attr := range sortedAttributes(block.Body.Attributes) {
		val, ok := b.evalHCL(attr)
		if !ok {
			continue
		}
		addSetting(b, &overrides, attr.Name, val, posFromRange(attr.SrcRange))
	}
	b.addVariant(block.Labels[0], overrides, pos)
}

func (b *builder) evalHCL(attr *hclsyntax.Attribute) (Value, bool) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		b.issues = append(b.issues, issuesFromHCL(diags)...)
		return Value{}, false
	}
	v, err := fromCty(val)
	if err != nil {
		b.issue(posFromRange(attr.SrcRange), "%s: %v", attr.Name, err)
		return Value{}, false
	}
	return v, true
}

func (b *builder) opaqueHCLBody(body *hclsyntax.Body) (map[string]any, bool) {
	out := make(map[string]any, len(body.Attributes))
	ok := true
	for _, attr := range sortedAttributes(body.Attributes) {
		v, valid := b.evalHCL(attr)
		if !valid {
			ok = false
			continue
		}
		out[attr.Name] = v.Interface()
	}
	for _, nested := range body.Blocks {
		key := strings.Join(append([]string{nested.Type}, nested.Labels...), ".")
		obj, valid := b.opaqueHCLBody(nested.Body)
		if !valid {
			ok = false
			continue
		}
		out[key] = obj
	}
	return out, ok
}

// sortedAttributes returns attributes in source order; hclsyntax keeps them
// in a map.
func sortedAttributes(attrs hclsyntax.Attributes) []*hclsyntax.Attribute {
	out := make([]*hclsyntax.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SrcRange.Start.Byte < out[j].SrcRange.Start.Byte
	})
	return out
}

func fromCty(v cty.Value) (Value, error) {
	if v.IsNull() {
		return Value{}, fmt.Errorf("value must not be null")
	}
	if !v.IsWhollyKnown() {
		return Value{}, fmt.Errorf("value must be known at parse time")
	}

	switch ty := v.Type(); ty {
	case cty.String:
		return String(v.AsString()), nil
	case cty.Bool:
		return Bool(v.True()), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return Int(n), nil
			}
		}
		f, _ := bf.Float64()
		return Opaque(f), nil
	default:
		raw, err := ctyjson.SimpleJSONValue{Value: v}.MarshalJSON()
		if err != nil {
			return Value{}, err
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return Value{}, err
		}
		return Opaque(decoded), nil
	}
}

func posFromRange(r hcl.Range) diag.Pos {
	return diag.Pos{File: r.Filename, Line: r.Start.Line, Column: r.Start.Column}
}

func issuesFromHCL(diags hcl.Diagnostics) []Issue {
	var issues []Issue
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		var pos diag.Pos
		if d.Subject != nil {
			pos = posFromRange(*d.Subject)
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		issues = append(issues, Issue{Pos: pos, Message: msg})
	}
	return issues
}

func parseErrorFromHCL(filename string, diags hcl.Diagnostics) *ParseError {
	return &ParseError{File: filename, Issues: issuesFromHCL(diags)}
}
