package validation

import (
	language "github.com/hanpama/matchbox/internal/language"
	registry "github.com/hanpama/matchbox/internal/registry"
	schema "github.com/hanpama/matchbox/internal/schema"
)

// BindVariables checks the provided variable values against the declared
// variable definitions and records the bound values in c.Variables.
//
// A provided value wins over a declared default. A declared default is
// evaluated to its Go value. A non-null variable with neither is a
// MissingVariable error. Provided values with no matching declaration are
// ignored.
func (c *Context) BindVariables(reg *registry.Registry, declared language.VariableDefinitionList, provided map[string]any) error {
	if c.Variables == nil {
		c.Variables = make(map[string]any)
	}
	for _, def := range declared {
		typ := schema.TypeRefFromAST(def.Type)
		if !reg.IsInputType(typ) {
			return &Error{
				Kind:      VariableMismatch,
				Name:      def.Variable,
				Message:   "variable $" + def.Variable + " cannot be of non-input type " + typ.String(),
				Locations: language.Locations(def.Position),
			}
		}
		if len(def.Directives) > 0 {
			return newError(UnknownDirective, def.Directives[0].Position, "unknown directive @%s on variable $%s", def.Directives[0].Name, def.Variable)
		}

		if value, ok := provided[def.Variable]; ok {
			if err := checkJSON(reg, value, typ); err != nil {
				return &Error{
					Kind:      VariableMismatch,
					Name:      def.Variable,
					Message:   "variable $" + def.Variable + " got invalid value: " + err.Error(),
					Locations: language.Locations(def.Position),
				}
			}
			c.Variables[def.Variable] = value
			continue
		}

		if def.DefaultValue != nil {
			if err := checkLiteral(reg, nil, def.DefaultValue, typ); err != nil {
				return &Error{
					Kind:      VariableMismatch,
					Name:      def.Variable,
					Message:   "variable $" + def.Variable + " has invalid default value: " + err.Error(),
					Locations: language.Locations(def.DefaultValue.Position),
				}
			}
			c.Variables[def.Variable] = language.ValueToGo(def.DefaultValue, nil)
			continue
		}

		if typ.IsNonNull() {
			return &Error{
				Kind:      MissingVariable,
				Name:      def.Variable,
				Message:   "variable $" + def.Variable + " of required type " + typ.String() + " was not provided",
				Locations: language.Locations(def.Position),
			}
		}
	}
	return nil
}
