package language

import (
	"strconv"
)

// ValueToGo converts a literal into its JSON-equivalent Go value: int64 for
// Int, float64 for Float, string for String and enum names, bool, []any and
// map[string]any. Variable references are looked up in variables; an unbound
// variable yields nil.
func ValueToGo(value *Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case Variable:
		return variables[value.Raw]
	case IntValue:
		iv, err := strconv.ParseInt(value.Raw, 10, 64)
		if err != nil {
			fv, _ := strconv.ParseFloat(value.Raw, 64)
			return fv
		}
		return iv
	case FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case StringValue, BlockValue, EnumValue:
		return value.Raw
	case BooleanValue:
		return value.Raw == "true"
	case NullValue:
		return nil
	case ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = ValueToGo(c.Value, variables)
		}
		return out
	case ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = ValueToGo(f.Value, variables)
		}
		return m
	default:
		return nil
	}
}
