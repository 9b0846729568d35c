package schema

import (
	"fmt"

	language "github.com/hanpama/matchbox/internal/language"
)

// BuildFromSDL parses SDL and returns the corresponding Schema.
func BuildFromSDL(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument builds a Schema from a parsed type system document.
// Type extensions are merged into their base definitions. Without an
// explicit schema definition the conventional root names Query, Mutation and
// Subscription are used when such types exist.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema("")
	for _, t := range builtinScalars {
		s.AddType(t)
	}

	for _, def := range doc.Definitions {
		if existing, ok := s.Types[def.Name]; ok && !isBuiltin(existing) {
			return nil, fmt.Errorf("type %s is defined more than once", def.Name)
		}
		t, err := buildType(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, ext := range doc.Extensions {
		base, ok := s.Types[ext.Name]
		if !ok {
			return nil, fmt.Errorf("cannot extend undefined type %s", ext.Name)
		}
		if err := extendType(base, ext); err != nil {
			return nil, err
		}
	}

	defs := append(append([]*language.SchemaDefinition{}, doc.Schema...), doc.SchemaExtension...)
	for _, sd := range defs {
		s.Declared = true
		if sd.Description != "" {
			s.Description = sd.Description
		}
		for _, ot := range sd.OperationTypes {
			switch ot.Operation {
			case language.Query:
				s.SetQueryType(ot.Type)
			case language.Mutation:
				s.SetMutationType(ot.Type)
			case language.Subscription:
				s.SetSubscriptionType(ot.Type)
			}
		}
	}
	if !s.Declared {
		if _, ok := s.Types["Query"]; ok {
			s.SetQueryType("Query")
		}
		if _, ok := s.Types["Mutation"]; ok {
			s.SetMutationType("Mutation")
		}
		if _, ok := s.Types["Subscription"]; ok {
			s.SetSubscriptionType("Subscription")
		}
	}
	return s, nil
}

func isBuiltin(t *Type) bool {
	for _, b := range builtinScalars {
		if b == t {
			return true
		}
	}
	return false
}

func buildType(def *language.Definition) (*Type, error) {
	switch def.Kind {
	case language.Object:
		return buildComposite(NewType(def.Name, TypeKindObject, def.Description), def), nil
	case language.Interface:
		return buildComposite(NewType(def.Name, TypeKindInterface, def.Description), def), nil
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
		return t, nil
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		addEnumValues(t, def)
		return t, nil
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description)
		for _, f := range def.Fields {
			t.AddInputField(buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue))
		}
		return t, nil
	case language.Scalar:
		return NewType(def.Name, TypeKindScalar, def.Description), nil
	}
	return nil, fmt.Errorf("unsupported definition kind %s for %s", def.Kind, def.Name)
}

func buildComposite(t *Type, def *language.Definition) *Type {
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fd := range def.Fields {
		t.AddField(buildField(fd))
	}
	return t
}

func buildField(fd *language.FieldDefinition) *Field {
	f := NewField(fd.Name, fd.Description, TypeRefFromAST(fd.Type))
	for _, arg := range fd.Arguments {
		f.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue))
	}
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	return f
}

func buildInputValue(name, description string, typ *language.Type, def *language.Value) *InputValue {
	return NewInputValue(name, description, TypeRefFromAST(typ)).SetDefault(def)
}

func addEnumValues(t *Type, def *language.Definition) {
	for _, ev := range def.EnumValues {
		v := NewEnumValue(ev.Name, ev.Description)
		if reason, ok := deprecation(ev.Directives); ok {
			v.Deprecate(reason)
		}
		t.AddEnumValue(v)
	}
}

func extendType(base *Type, ext *language.Definition) error {
	if ext.Kind != language.DefinitionKind(base.Kind) {
		return fmt.Errorf("cannot extend %s %s as %s", base.Kind, base.Name, ext.Kind)
	}
	switch base.Kind {
	case TypeKindObject, TypeKindInterface:
		for _, name := range ext.Interfaces {
			base.AddInterface(name)
		}
		for _, fd := range ext.Fields {
			if base.Field(fd.Name) != nil {
				return fmt.Errorf("field %s.%s is defined more than once", base.Name, fd.Name)
			}
			base.AddField(buildField(fd))
		}
	case TypeKindUnion:
		for _, name := range ext.Types {
			base.AddPossibleType(name)
		}
	case TypeKindEnum:
		addEnumValues(base, ext)
	case TypeKindInputObject:
		for _, f := range ext.Fields {
			base.AddInputField(buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue))
		}
	}
	return nil
}

func deprecation(directives language.DirectiveList) (string, bool) {
	d := directives.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}
