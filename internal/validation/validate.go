package validation

import (
	language "github.com/hanpama/matchbox/internal/language"
	registry "github.com/hanpama/matchbox/internal/registry"
	schema "github.com/hanpama/matchbox/internal/schema"
)

// TypenameField is the meta field every composite type answers.
const TypenameField = "__typename"

// ValidateOperation checks op against the root type the schema declares for
// its kind. Variables must already be bound into ctx.
func ValidateOperation(reg *registry.Registry, ctx *Context, op *language.OperationDefinition) error {
	if !reg.HasSchemaDefinition() {
		return newError(MissingDefinition, op.Position, "schema declares no root operation types")
	}
	root, ok := reg.RootType(op.Operation)
	if !ok {
		return &Error{
			Kind:      InvalidOperation,
			Operation: op.Operation,
			Message:   "schema does not support " + string(op.Operation) + " operations",
			Locations: language.Locations(op.Position),
		}
	}
	if len(op.Directives) > 0 {
		return unknownDirective(op.Directives[0])
	}
	return ValidateSelection(reg, root, op.SelectionSet, ctx)
}

// ValidateSelection checks set against the composite type typ, recursing into
// nested composite fields and inline fragments.
func ValidateSelection(reg *registry.Registry, typ *schema.Type, set language.SelectionSet, ctx *Context) error {
	for _, sel := range set {
		var err error
		switch sel := sel.(type) {
		case *language.Field:
			err = validateField(reg, typ, sel, ctx)
		case *language.InlineFragment:
			err = validateInlineFragment(reg, typ, sel, ctx)
		case *language.FragmentSpread:
			err = newError(UnsupportedFragmentSpread, sel.Position, "fragment spread ...%s is not supported; use an inline fragment", sel.Name)
		default:
			err = &Error{Kind: Other, Message: "unexpected selection"}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func validateField(reg *registry.Registry, parent *schema.Type, f *language.Field, ctx *Context) error {
	if len(f.Directives) > 0 {
		return unknownDirective(f.Directives[0])
	}

	if f.Name == TypenameField {
		if len(f.Arguments) > 0 {
			return newError(InvalidFieldArguments, f.Position, "%s takes no arguments", TypenameField)
		}
		if len(f.SelectionSet) > 0 {
			return newError(InvalidSelectionSet, f.Position, "%s cannot have a selection set", TypenameField)
		}
		return nil
	}
	if parent.Kind == schema.TypeKindUnion {
		return newError(InvalidField, f.Position, "cannot select field %q on union %s; use an inline fragment", f.Name, parent.Name)
	}

	def := parent.Field(f.Name)
	if def == nil {
		return newError(InvalidSelectionSet, f.Position, "field %q is not defined on type %s", f.Name, parent.Name)
	}
	if err := validateArguments(reg, parent, def, f, ctx); err != nil {
		return err
	}

	named := def.Type.GetNamedType()
	if reg.IsLeaf(named) {
		if len(f.SelectionSet) > 0 {
			return newError(InvalidSelectionSet, f.Position, "field %s.%s of type %s cannot have a selection set", parent.Name, f.Name, def.Type)
		}
		return nil
	}
	child, ok := reg.LookupComposite(named)
	if !ok {
		return newError(MissingDefinition, f.Position, "type %s of field %s.%s is not defined", named, parent.Name, f.Name)
	}
	if len(f.SelectionSet) == 0 {
		return newError(InvalidSelectionSet, f.Position, "field %s.%s of type %s must have a selection set", parent.Name, f.Name, def.Type)
	}
	return ValidateSelection(reg, child, f.SelectionSet, ctx)
}

func validateArguments(reg *registry.Registry, parent *schema.Type, def *schema.Field, f *language.Field, ctx *Context) error {
	seen := make(map[string]bool, len(f.Arguments))
	for _, arg := range f.Arguments {
		argDef := def.Argument(arg.Name)
		if argDef == nil {
			return newError(InvalidFieldArguments, arg.Position, "unknown argument %q on field %s.%s", arg.Name, parent.Name, f.Name)
		}
		if seen[arg.Name] {
			return newError(InvalidFieldArguments, arg.Position, "argument %q is supplied more than once", arg.Name)
		}
		seen[arg.Name] = true
		if err := checkInputValue(reg, ctx, arg.Value, argDef); err != nil {
			return newError(InvalidFieldArguments, arg.Position, "argument %q of field %s.%s: %v", arg.Name, parent.Name, f.Name, err)
		}
	}
	for _, argDef := range def.Arguments {
		if argDef.Required() && !seen[argDef.Name] {
			return newError(InvalidFieldArguments, f.Position, "field %s.%s requires argument %q of type %s", parent.Name, f.Name, argDef.Name, argDef.Type)
		}
	}
	return nil
}

func validateInlineFragment(reg *registry.Registry, parent *schema.Type, frag *language.InlineFragment, ctx *Context) error {
	if len(frag.Directives) > 0 {
		return unknownDirective(frag.Directives[0])
	}
	if !parent.IsAbstract() {
		return newError(InvalidSelectionSet, frag.Position, "inline fragments are only allowed on interface and union types, not %s", parent.Name)
	}
	if frag.TypeCondition == "" {
		return newError(InvalidSelectionSet, frag.Position, "inline fragment on %s needs a type condition", parent.Name)
	}
	target, ok := reg.LookupComposite(frag.TypeCondition)
	if !ok {
		return newError(MissingDefinition, frag.Position, "type %s is not defined", frag.TypeCondition)
	}
	if !reg.IsPossibleType(parent.Name, target.Name) {
		return newError(InvalidSelectionSet, frag.Position, "%s is not a possible type of %s", target.Name, parent.Name)
	}
	return ValidateSelection(reg, target, frag.SelectionSet, ctx)
}

func unknownDirective(d *language.Directive) *Error {
	return newError(UnknownDirective, d.Position, "unknown directive @%s", d.Name)
}
