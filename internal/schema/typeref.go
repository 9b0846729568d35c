package schema

import (
	language "github.com/hanpama/matchbox/internal/language"
)

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// TypeRef is a type expression as it appears on fields, arguments and
// variables. Named is set only for TypeRefKindNamed; OfType only for the two
// wrapping kinds. A Non-Null reference never wraps another Non-Null.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

func NamedType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }
func ListType(of *TypeRef) *TypeRef  { return &TypeRef{Kind: TypeRefKindList, OfType: of} }

// NonNullType wraps of, returning it unchanged when it is already Non-Null.
func NonNullType(of *TypeRef) *TypeRef {
	if of.IsNonNull() {
		return of
	}
	return &TypeRef{Kind: TypeRefKindNonNull, OfType: of}
}

// IsNonNull is nil-safe.
func IsNonNull(t *TypeRef) bool { return t.IsNonNull() }

func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList looks through an outer Non-Null.
func (t *TypeRef) IsList() bool {
	return t.Nullable().Kind == TypeRefKindList
}

func (t *TypeRef) Nullable() *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

// GetNamedType returns the name at the bottom of the wrappers.
func (t *TypeRef) GetNamedType() string {
	for t != nil && t.Kind != TypeRefKindNamed {
		t = t.OfType
	}
	if t == nil {
		return ""
	}
	return t.Named
}

func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	}
	return t.Named
}

// TypeRefFromAST converts a parsed type expression.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(TypeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}
