package coercion

import (
	"errors"
	"fmt"
	"math"

	language "github.com/hanpama/matchbox/internal/language"
	registry "github.com/hanpama/matchbox/internal/registry"
	schema "github.com/hanpama/matchbox/internal/schema"
	validation "github.com/hanpama/matchbox/internal/validation"
)

// ErrCoercion reports a selection or value that validation should have
// rejected. It indicates an inconsistency between validation and coercion,
// not a client error.
var ErrCoercion = errors.New("coercion failed")

func coercionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCoercion, fmt.Sprintf(format, args...))
}

// Coerce builds the selection tree of op. It expects op to have passed
// validation.ValidateOperation with the same ctx; no partial tree is
// returned on failure.
func Coerce(reg *registry.Registry, ctx *validation.Context, op *language.OperationDefinition) (*Operation, error) {
	root, ok := reg.RootType(op.Operation)
	if !ok {
		return nil, coercionError("no root type for %s", op.Operation)
	}
	sel, err := CoerceSelection(reg, root, op.SelectionSet, ctx)
	if err != nil {
		return nil, err
	}
	return &Operation{Kind: op.Operation, Name: op.Name, RootType: root.Name, Selection: sel}, nil
}

// CoerceSelection coerces set against the composite type typ.
func CoerceSelection(reg *registry.Registry, typ *schema.Type, set language.SelectionSet, ctx *validation.Context) ([]Selection, error) {
	out := make([]Selection, 0, len(set))
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			f, err := coerceField(reg, typ, sel, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		case *language.InlineFragment:
			if !typ.IsAbstract() {
				return nil, coercionError("inline fragment on %s", typ.Name)
			}
			target, ok := reg.LookupComposite(sel.TypeCondition)
			if !ok || !reg.IsPossibleType(typ.Name, target.Name) {
				return nil, coercionError("%q is not a possible type of %s", sel.TypeCondition, typ.Name)
			}
			sub, err := CoerceSelection(reg, target, sel.SelectionSet, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, &Fragment{On: target.Name, Selection: sub})
		default:
			return nil, coercionError("unsupported selection on %s", typ.Name)
		}
	}
	return out, nil
}

var typenameType = schema.NonNullType(schema.NamedType("String"))

func coerceField(reg *registry.Registry, parent *schema.Type, f *language.Field, ctx *validation.Context) (*Field, error) {
	if f.Name == validation.TypenameField {
		return &Field{Type: parent.Name, Name: f.Name, Alias: alias(f), Arguments: map[string]any{}, ReturnType: typenameType}, nil
	}
	def := parent.Field(f.Name)
	if def == nil {
		return nil, coercionError("field %q is not defined on %s", f.Name, parent.Name)
	}
	args, err := coerceArguments(reg, def, f.Arguments, ctx)
	if err != nil {
		return nil, fmt.Errorf("field %s.%s: %w", parent.Name, f.Name, err)
	}
	out := &Field{Type: parent.Name, Name: f.Name, Alias: alias(f), Arguments: args, ReturnType: def.Type}

	if reg.IsLeaf(def.Type.GetNamedType()) {
		return out, nil
	}
	child, ok := reg.LookupComposite(def.Type.GetNamedType())
	if !ok {
		return nil, coercionError("type %s of field %s.%s is not defined", def.Type.GetNamedType(), parent.Name, f.Name)
	}
	sub, err := CoerceSelection(reg, child, f.SelectionSet, ctx)
	if err != nil {
		return nil, err
	}
	out.Selection = sub
	return out, nil
}

func alias(f *language.Field) string {
	if f.Alias == f.Name {
		return ""
	}
	return f.Alias
}

// coerceArguments resolves every declared argument: the supplied literal (or
// the bound variable it references), else the schema default, else nil.
func coerceArguments(reg *registry.Registry, def *schema.Field, supplied language.ArgumentList, ctx *validation.Context) (map[string]any, error) {
	for _, arg := range supplied {
		if def.Argument(arg.Name) == nil {
			return nil, coercionError("unknown argument %q", arg.Name)
		}
	}
	out := make(map[string]any, len(def.Arguments))
	for _, argDef := range def.Arguments {
		raw, present := any(nil), false
		if arg := supplied.ForName(argDef.Name); arg != nil {
			raw, present = literalValue(arg.Value, ctx)
		}
		if !present && argDef.HasDefault() {
			raw, present = argDef.DefaultValue, true
		}
		if !present {
			if argDef.Type.IsNonNull() {
				return nil, coercionError("argument %q of type %s has no value", argDef.Name, argDef.Type)
			}
			out[argDef.Name] = nil
			continue
		}
		v, err := coerceValue(reg, raw, argDef.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", argDef.Name, err)
		}
		out[argDef.Name] = v
	}
	return out, nil
}

// literalValue evaluates a literal against the bound variables. The second
// result is false when the literal is a variable without a binding. Object
// fields referencing unbound variables are omitted so defaults apply.
func literalValue(v *language.Value, ctx *validation.Context) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch v.Kind {
	case language.Variable:
		if ctx == nil {
			return nil, false
		}
		return ctx.Variable(v.Raw)
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, child := range v.Children {
			out[i], _ = literalValue(child.Value, ctx)
		}
		return out, true
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			if item, ok := literalValue(child.Value, ctx); ok {
				out[child.Name] = item
			}
		}
		return out, true
	}
	return language.ValueToGo(v, nil), true
}

// coerceValue converts a JSON-equivalent value to the native representation
// of typ. Non-null wrappers make a level required; lists wrap single values.
func coerceValue(reg *registry.Registry, value any, typ *schema.TypeRef) (any, error) {
	if value == nil {
		if typ.IsNonNull() {
			return nil, coercionError("null for non-null %s", typ)
		}
		return nil, nil
	}
	t := typ.Nullable()
	if t.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			item, err := coerceValue(reg, value, t.OfType)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := coerceValue(reg, item, t.OfType)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	named, ok := reg.Lookup(t.Named)
	if !ok {
		return nil, coercionError("unknown type %s", t.Named)
	}
	switch named.Kind {
	case schema.TypeKindScalar:
		return coerceScalar(named.Name, value)
	case schema.TypeKindEnum:
		if s, ok := value.(string); ok && named.HasEnumValue(s) {
			return s, nil
		}
	case schema.TypeKindInputObject:
		obj, ok := value.(map[string]any)
		if !ok {
			break
		}
		return coerceInputObject(reg, named, obj)
	}
	return nil, coercionError("cannot use %v as %s", value, typ)
}

func coerceInputObject(reg *registry.Registry, typ *schema.Type, obj map[string]any) (map[string]any, error) {
	for key := range obj {
		if typ.InputField(key) == nil {
			return nil, coercionError("field %q is not defined by %s", key, typ.Name)
		}
	}
	out := make(map[string]any, len(typ.InputFields))
	for _, field := range typ.InputFields {
		raw, present := obj[field.Name]
		if !present && field.HasDefault() {
			raw, present = field.DefaultValue, true
		}
		if !present {
			if field.Type.IsNonNull() {
				return nil, coercionError("field %q of %s has no value", field.Name, typ.Name)
			}
			out[field.Name] = nil
			continue
		}
		v, err := coerceValue(reg, raw, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}
		out[field.Name] = v
	}
	return out, nil
}

func coerceScalar(name string, value any) (any, error) {
	switch name {
	case "Int":
		if f, ok := validation.AsNumber(value); ok && f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
			return int32(f), nil
		}
	case "Float":
		if f, ok := validation.AsNumber(value); ok {
			return f, nil
		}
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case "String", "ID":
		if s, ok := value.(string); ok {
			return s, nil
		}
	default:
		return value, nil
	}
	return nil, coercionError("cannot use %v as %s", value, name)
}
