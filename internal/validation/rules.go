package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/matchbox/internal/language"
	registry "github.com/hanpama/matchbox/internal/registry"
	schema "github.com/hanpama/matchbox/internal/schema"
)

// checkInputValue checks the literal supplied for an argument or input field.
// A declared variable without a binding leaves the value unsupplied, which is
// valid whenever def declares a default.
func checkInputValue(reg *registry.Registry, ctx *Context, value *language.Value, def *schema.InputValue) error {
	if def.HasDefault() && value != nil && value.Kind == language.Variable && ctx != nil && ctx.Declared(value.Raw) != nil {
		if _, ok := ctx.Variable(value.Raw); !ok {
			return nil
		}
	}
	return checkLiteral(reg, ctx, value, def.Type)
}

// checkLiteral reports why a query literal is not a valid value of typ.
// Variable references must be declared by the operation; bound variables are
// checked with the JSON rules against typ. A nil return means valid.
func checkLiteral(reg *registry.Registry, ctx *Context, value *language.Value, typ *schema.TypeRef) error {
	if value == nil || value.Kind == language.NullValue {
		if typ.IsNonNull() {
			return fmt.Errorf("expected non-null %s, found null", typ)
		}
		return nil
	}
	if value.Kind == language.Variable {
		if ctx == nil || ctx.Declared(value.Raw) == nil {
			return fmt.Errorf("variable $%s is not defined", value.Raw)
		}
		bound, ok := ctx.Variable(value.Raw)
		if !ok {
			if typ.IsNonNull() {
				return fmt.Errorf("variable $%s has no value for non-null %s", value.Raw, typ)
			}
			return nil
		}
		if err := checkJSON(reg, bound, typ); err != nil {
			return fmt.Errorf("variable $%s: %w", value.Raw, err)
		}
		return nil
	}

	t := typ.Nullable()
	if t.Kind == schema.TypeRefKindList {
		if value.Kind != language.ListValue {
			// A single value is accepted where a list is expected.
			return checkLiteral(reg, ctx, value, t.OfType)
		}
		for i, child := range value.Children {
			if err := checkLiteral(reg, ctx, child.Value, t.OfType); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
	if value.Kind == language.ListValue {
		return fmt.Errorf("expected %s, found list %s", typ, value.String())
	}

	named, ok := reg.Lookup(t.Named)
	if !ok {
		return fmt.Errorf("unknown type %s", t.Named)
	}
	switch named.Kind {
	case schema.TypeKindScalar:
		return checkScalarLiteral(named.Name, value)
	case schema.TypeKindEnum:
		if value.Kind != language.EnumValue || !named.HasEnumValue(value.Raw) {
			return fmt.Errorf("expected a value of enum %s, found %s", named.Name, value.String())
		}
		return nil
	case schema.TypeKindInputObject:
		if value.Kind != language.ObjectValue {
			return fmt.Errorf("expected input object %s, found %s", named.Name, value.String())
		}
		seen := make(map[string]bool, len(value.Children))
		for _, child := range value.Children {
			field := named.InputField(child.Name)
			if field == nil {
				return fmt.Errorf("field %q is not defined by input object %s", child.Name, named.Name)
			}
			if seen[child.Name] {
				return fmt.Errorf("field %q is supplied more than once", child.Name)
			}
			seen[child.Name] = true
			if err := checkInputValue(reg, ctx, child.Value, field); err != nil {
				return fmt.Errorf("field %q: %w", child.Name, err)
			}
		}
		for _, field := range named.InputFields {
			if field.Required() && !seen[field.Name] {
				return fmt.Errorf("field %q of input object %s is required", field.Name, named.Name)
			}
		}
		return nil
	}
	return fmt.Errorf("%s is not an input type", named.Name)
}

func checkScalarLiteral(name string, value *language.Value) error {
	switch name {
	case "Boolean":
		if value.Kind == language.BooleanValue {
			return nil
		}
	case "Int":
		if value.Kind == language.IntValue {
			if _, err := strconv.ParseInt(value.Raw, 10, 32); err != nil {
				return fmt.Errorf("Int cannot represent %s", value.Raw)
			}
			return nil
		}
	case "Float":
		if value.Kind == language.FloatValue {
			return nil
		}
	case "String", "ID":
		if value.Kind == language.StringValue || value.Kind == language.BlockValue {
			return nil
		}
	default:
		// Custom scalars accept any non-object literal.
		if value.Kind != language.ObjectValue {
			return nil
		}
	}
	return fmt.Errorf("expected %s, found %s", name, value.String())
}

// checkJSON reports why a decoded JSON value is not a valid value of typ.
func checkJSON(reg *registry.Registry, value any, typ *schema.TypeRef) error {
	if value == nil {
		if typ.IsNonNull() {
			return fmt.Errorf("expected non-null %s, found null", typ)
		}
		return nil
	}

	t := typ.Nullable()
	if t.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			return checkJSON(reg, value, t.OfType)
		}
		for i, item := range items {
			if err := checkJSON(reg, item, t.OfType); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	}
	if _, ok := value.([]any); ok {
		return fmt.Errorf("expected %s, found a list", typ)
	}

	named, ok := reg.Lookup(t.Named)
	if !ok {
		return fmt.Errorf("unknown type %s", t.Named)
	}
	switch named.Kind {
	case schema.TypeKindScalar:
		return checkScalarJSON(named.Name, value)
	case schema.TypeKindEnum:
		s, ok := value.(string)
		if !ok || !named.HasEnumValue(s) {
			return fmt.Errorf("expected a value of enum %s, found %v", named.Name, value)
		}
		return nil
	case schema.TypeKindInputObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("expected input object %s, found %T", named.Name, value)
		}
		for key, item := range obj {
			field := named.InputField(key)
			if field == nil {
				return fmt.Errorf("field %q is not defined by input object %s", key, named.Name)
			}
			if err := checkJSON(reg, item, field.Type); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
		}
		for _, field := range named.InputFields {
			if _, ok := obj[field.Name]; !ok && field.Required() {
				return fmt.Errorf("field %q of input object %s is required", field.Name, named.Name)
			}
		}
		return nil
	}
	return fmt.Errorf("%s is not an input type", named.Name)
}

func checkScalarJSON(name string, value any) error {
	switch name {
	case "Boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "Int":
		if f, ok := AsNumber(value); ok {
			if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
				return fmt.Errorf("Int cannot represent %v", value)
			}
			return nil
		}
	case "Float":
		if _, ok := AsNumber(value); ok {
			return nil
		}
	case "String", "ID":
		if _, ok := value.(string); ok {
			return nil
		}
	default:
		return nil
	}
	return fmt.Errorf("expected %s, found %v", name, value)
}

// AsNumber reports the float64 value of a decoded JSON number or Go numeric.
func AsNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
