package schema

import (
	"sort"
	"strings"
)

// Render produces SDL from the Schema.
// Deterministic ordering: type names sorted lexicographically, fields and
// values in declaration order.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	if s.Declared || !conventionalRoots(s) {
		renderSchemaDefinition(&b, s)
	}

	typeNames := make([]string, 0, len(s.Types))
	for name, typ := range s.Types {
		if isBuiltin(typ) {
			continue
		}
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	for _, name := range typeNames {
		typ := s.Types[name]
		switch typ.Kind {
		case TypeKindScalar:
			renderDescription(&b, typ.Description, "")
			b.WriteString("scalar " + typ.Name + "\n\n")
		case TypeKindEnum:
			renderEnum(&b, typ)
		case TypeKindInputObject:
			renderInputObject(&b, typ)
		case TypeKindObject:
			renderComposite(&b, "type", typ)
		case TypeKindInterface:
			renderComposite(&b, "interface", typ)
		case TypeKindUnion:
			renderDescription(&b, typ.Description, "")
			b.WriteString("union " + typ.Name + " = " + strings.Join(typ.PossibleTypes, " | ") + "\n\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func conventionalRoots(s *Schema) bool {
	return (s.QueryType == "" || s.QueryType == "Query") &&
		(s.MutationType == "" || s.MutationType == "Mutation") &&
		(s.SubscriptionType == "" || s.SubscriptionType == "Subscription")
}

func renderSchemaDefinition(b *strings.Builder, s *Schema) {
	renderDescription(b, s.Description, "")
	b.WriteString("schema {\n")
	if s.QueryType != "" {
		b.WriteString("  query: " + s.QueryType + "\n")
	}
	if s.MutationType != "" {
		b.WriteString("  mutation: " + s.MutationType + "\n")
	}
	if s.SubscriptionType != "" {
		b.WriteString("  subscription: " + s.SubscriptionType + "\n")
	}
	b.WriteString("}\n\n")
}

func renderDescription(b *strings.Builder, desc, indent string) {
	if desc == "" {
		return
	}
	b.WriteString(indent + "\"\"\"\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		b.WriteString(indent + line + "\n")
	}
	b.WriteString(indent + "\"\"\"\n")
}

func renderDeprecation(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		b.WriteString("(reason: \"" + strings.ReplaceAll(reason, `"`, `\"`) + "\")")
	}
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("enum " + typ.Name + " {\n")
	for _, val := range typ.EnumValues {
		renderDescription(b, val.Description, "  ")
		b.WriteString("  " + val.Name)
		renderDeprecation(b, val.IsDeprecated, val.DeprecationReason)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString("input " + typ.Name + " {\n")
	for _, field := range typ.InputFields {
		renderDescription(b, field.Description, "  ")
		b.WriteString("  " + renderInputValue(field) + "\n")
	}
	b.WriteString("}\n\n")
}

func renderComposite(b *strings.Builder, keyword string, typ *Type) {
	renderDescription(b, typ.Description, "")
	b.WriteString(keyword + " " + typ.Name)
	if len(typ.Interfaces) > 0 {
		b.WriteString(" implements " + strings.Join(typ.Interfaces, " & "))
	}
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		renderField(b, field)
	}
	b.WriteString("}\n\n")
}

func renderField(b *strings.Builder, field *Field) {
	renderDescription(b, field.Description, "  ")
	b.WriteString("  " + field.Name)
	if len(field.Arguments) > 0 {
		args := make([]string, len(field.Arguments))
		for i, arg := range field.Arguments {
			args[i] = renderInputValue(arg)
		}
		b.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	b.WriteString(": " + field.Type.String())
	renderDeprecation(b, field.IsDeprecated, field.DeprecationReason)
	b.WriteString("\n")
}

func renderInputValue(v *InputValue) string {
	out := v.Name + ": " + v.Type.String()
	if v.DefaultLiteral != nil {
		out += " = " + v.DefaultLiteral.String()
	}
	return out
}
