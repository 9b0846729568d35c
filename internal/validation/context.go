package validation

import (
	language "github.com/hanpama/matchbox/internal/language"
)

// Context carries the per-request state shared by the binder, the validator
// and the coercer. It is filled while binding variables and only read
// afterwards; it is never shared between requests.
type Context struct {
	Fragments           language.FragmentDefinitionList
	VariableDefinitions language.VariableDefinitionList
	// Variables holds bound values: provided values and evaluated defaults.
	// Declared nullable variables without value or default are absent.
	Variables map[string]any
}

// NewContext prepares a context for op, a member of doc.
func NewContext(doc *language.QueryDocument, op *language.OperationDefinition) *Context {
	c := &Context{Variables: make(map[string]any)}
	if doc != nil {
		c.Fragments = doc.Fragments
	}
	if op != nil {
		c.VariableDefinitions = op.VariableDefinitions
	}
	return c
}

// Variable returns the bound value of name.
func (c *Context) Variable(name string) (any, bool) {
	v, ok := c.Variables[name]
	return v, ok
}

// Declared returns the operation's definition of the variable name.
func (c *Context) Declared(name string) *language.VariableDefinition {
	return c.VariableDefinitions.ForName(name)
}
