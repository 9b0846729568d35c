package schema

// builtinScalars seed every built schema. A document may redefine them.
var builtinScalars = []*Type{
	NewType("Int", TypeKindScalar, "A signed 32-bit integer."),
	NewType("Float", TypeKindScalar, "A signed double-precision floating point value."),
	NewType("String", TypeKindScalar, "A UTF-8 character sequence."),
	NewType("Boolean", TypeKindScalar, "Either `true` or `false`."),
	NewType("ID", TypeKindScalar, "A unique identifier, serialized like a String."),
}
