package descriptor

import (
	"math"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/buildplan/buildplan/pkg/diag"
)

// ParseCUE parses a descriptor written in CUE. Variants are declared as a
// list so duplicate names stay detectable:
//
//	plugins: ["com.android.application"]
//	compile_sdk: 34
//	variants: [{name: "release", signing: "upload"}]
func ParseCUE(filename string, src []byte) (*Descriptor, error) {
	val := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, parseErrorFromCUE(filename, err)
	}
	if val.Kind() != cue.StructKind {
		return nil, singleIssue(filename, diag.Pos{File: filename}, "descriptor must be a struct, got %s", val.Kind())
	}

	b := newBuilder(filename)
	iter, err := val.Fields()
	if err != nil {
		return nil, parseErrorFromCUE(filename, err)
	}
	for iter.Next() {
		key, ok := cueLabel(iter.Selector())
		if !ok {
			continue
		}
		field := iter.Value()
		switch CanonicalKey(key) {
		case KeyPlugins:
			b.decodeCUEPlugins(field)
		case VariantsField:
			b.decodeCUEVariants(field)
		default:
			v, ok := b.valueFromCUE(key, field)
			if !ok {
				continue
			}
			b.setModule(key, v, posFromCUE(field))
		}
	}

	return b.build()
}

func (b *builder) decodeCUEPlugins(field cue.Value) {
	list, err := field.List()
	if err != nil {
		b.issue(posFromCUE(field), "%q must be a list of plugin identifiers", KeyPlugins)
		return
	}
	for list.Next() {
		elem := list.Value()
		id, err := elem.String()
		if err != nil {
			b.issue(posFromCUE(elem), "plugin identifier must be a string")
			continue
		}
		b.addPlugin(id, posFromCUE(elem))
	}
}

func (b *builder) decodeCUEVariants(field cue.Value) {
	list, err := field.List()
	if err != nil {
		b.issue(posFromCUE(field), "%q must be a list of variant structs", VariantsField)
		return
	}
	for list.Next() {
		elem := list.Value()
		pos := posFromCUE(elem)
		if elem.Kind() != cue.StructKind {
			b.issue(pos, "variant must be a struct")
			continue
		}
		iter, err := elem.Fields()
		if err != nil {
			b.issue(pos, "variant: %v", err)
			continue
		}

		var (
			name      string
			overrides Settings
		)
		for iter.Next() {
			key, ok := cueLabel(iter.Selector())
			if !ok {
				continue
			}
			v := iter.Value()
			if key == VariantNameField {
				s, err := v.String()
				if err != nil {
					b.issue(posFromCUE(v), "variant name must be a string")
					continue
				}
				name = s
				continue
			}
			val, ok := b.valueFromCUE(key, v)
			if !ok {
				continue
			}
			addSetting(b, &overrides, key, val, posFromCUE(v))
		}
		b.addVariant(name, overrides, pos)
	}
}

func (b *builder) valueFromCUE(key string, v cue.Value) (Value, bool) {
	pos := posFromCUE(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		b.issue(pos, "%s: value must be concrete: %v", key, err)
		return Value{}, false
	}

	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		return String(s), true
	case cue.BoolKind:
		t, _ := v.Bool()
		return Bool(t), true
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			b.issue(pos, "%s: %v", key, err)
			return Value{}, false
		}
		return Int(n), true
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			b.issue(pos, "%s: %v", key, err)
			return Value{}, false
		}
		if f == math.Trunc(f) {
			return Int(int64(f)), true
		}
		return Opaque(f), true
	default:
		var decoded any
		if err := v.Decode(&decoded); err != nil {
			b.issue(pos, "%s: %v", key, err)
			return Value{}, false
		}
		return Opaque(decoded), true
	}
}

func cueLabel(sel cue.Selector) (string, bool) {
	if sel.LabelType() != cue.StringLabel {
		return "", false
	}
	return sel.Unquoted(), true
}

func posFromCUE(v cue.Value) diag.Pos {
	p := v.Pos()
	if !p.IsValid() {
		return diag.Pos{}
	}
	return diag.Pos{File: p.Filename(), Line: p.Line(), Column: p.Column()}
}

func parseErrorFromCUE(filename string, err error) *ParseError {
	pe := &ParseError{File: filename}
	for _, e := range cueerrors.Errors(err) {
		var pos diag.Pos
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			pos = diag.Pos{
				File:   positions[0].Filename(),
				Line:   positions[0].Line(),
				Column: positions[0].Column(),
			}
		}
		pe.Issues = append(pe.Issues, Issue{Pos: pos, Message: cueerrors.Details(e, nil)})
	}
	if len(pe.Issues) == 0 {
		pe.Issues = []Issue{{Pos: diag.Pos{File: filename}, Message: err.Error()}}
	}
	return pe
}
