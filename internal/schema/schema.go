package schema

import (
	language "github.com/hanpama/matchbox/internal/language"
)

// Schema is the complete, immutable type system a server exposes.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Description      string
	// Declared reports whether the source carried an explicit schema definition.
	Declared bool
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.lookupRoot(s.QueryType) }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.lookupRoot(s.MutationType) }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.lookupRoot(s.SubscriptionType) }

func (s *Schema) lookupRoot(name string) *Type {
	if name == "" {
		return nil
	}
	return s.Types[name]
}

// RootTypeName returns the root type name declared for the operation kind.
func (s *Schema) RootTypeName(op language.Operation) string {
	switch op {
	case language.Query:
		return s.QueryType
	case language.Mutation:
		return s.MutationType
	case language.Subscription:
		return s.SubscriptionType
	}
	return ""
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name          string
	Kind          TypeKind
	Description   string
	Fields        []*Field      // For OBJECT and INTERFACE
	Interfaces    []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes []string      // For UNION
	EnumValues    []*EnumValue  // For ENUM
	InputFields   []*InputValue // For INPUT_OBJECT
}

// Field looks up a field definition by name.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField looks up an input object field by name.
func (t *Type) InputField(name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasEnumValue reports whether name is one of the enum's values.
func (t *Type) HasEnumValue(name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

// IsComposite reports whether selections can be made on the type.
func (t *Type) IsComposite() bool {
	switch t.Kind {
	case TypeKindObject, TypeKindInterface, TypeKindUnion:
		return true
	}
	return false
}

// IsAbstract reports whether the type is an interface or a union.
func (t *Type) IsAbstract() bool {
	return t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// IsInput reports whether values of the type may appear as arguments or variables.
func (t *Type) IsInput() bool {
	switch t.Kind {
	case TypeKindScalar, TypeKindEnum, TypeKindInputObject:
		return true
	}
	return false
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	IsDeprecated      bool
	DeprecationReason string
}

// Argument looks up an argument definition by name.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

// InputValue is an argument or input object field.
type InputValue struct {
	Name        string
	Description string
	Type        *TypeRef
	// DefaultLiteral is the declared default as written in the source.
	DefaultLiteral *language.Value
	// DefaultValue is DefaultLiteral evaluated to its JSON-equivalent value.
	DefaultValue any
}

// HasDefault reports whether a default literal was declared.
func (v *InputValue) HasDefault() bool { return v.DefaultLiteral != nil }

// Required reports whether the input value must be supplied: non-null and no default.
func (v *InputValue) Required() bool { return IsNonNull(v.Type) && !v.HasDefault() }

func NewSchema(description string) *Schema {
	return &Schema{Types: make(map[string]*Type), Description: description}
}

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type        { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}
func (t *Type) AddEnumValue(v *EnumValue) *Type   { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type { t.InputFields = append(t.InputFields, v); return t }
func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) AddArgument(a *InputValue) *Field { f.Arguments = append(f.Arguments, a); return f }

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

// SetDefault records the default literal and its evaluated value.
func (v *InputValue) SetDefault(lit *language.Value) *InputValue {
	v.DefaultLiteral = lit
	if lit != nil {
		v.DefaultValue = language.ValueToGo(lit, nil)
	} else {
		v.DefaultValue = nil
	}
	return v
}
