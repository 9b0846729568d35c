package validation

import (
	"fmt"
	"sort"

	registry "github.com/hanpama/matchbox/internal/registry"
	schema "github.com/hanpama/matchbox/internal/schema"
)

// CheckSchemaDefaults verifies every argument and input field default of the
// registry's schema against its declared type. Defaults are constant, so a
// variable reference is rejected. The first offending default is reported.
func CheckSchemaDefaults(reg *registry.Registry) error {
	types := reg.Schema().Types
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := types[name]
		for _, f := range t.Fields {
			for _, arg := range f.Arguments {
				if err := checkDefault(reg, arg); err != nil {
					return fmt.Errorf("default of argument %s.%s(%s:): %w", t.Name, f.Name, arg.Name, err)
				}
			}
		}
		for _, field := range t.InputFields {
			if err := checkDefault(reg, field); err != nil {
				return fmt.Errorf("default of input field %s.%s: %w", t.Name, field.Name, err)
			}
		}
	}
	return nil
}

func checkDefault(reg *registry.Registry, v *schema.InputValue) error {
	if !v.HasDefault() {
		return nil
	}
	return checkLiteral(reg, nil, v.DefaultLiteral, v.Type)
}
