package engine

import (
	"bytes"
	"encoding/json"
	"errors"

	coercion "github.com/hanpama/matchbox/internal/coercion"
	language "github.com/hanpama/matchbox/internal/language"
	registry "github.com/hanpama/matchbox/internal/registry"
	validation "github.com/hanpama/matchbox/internal/validation"
)

// Request is one GraphQL request as received from a transport.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// ParseAndCoerce parses queryText, binds the JSON object variablesJSON,
// validates the single operation of the document and coerces it.
//
// Errors are a *ParseError, a *validation.Error or wrap coercion.ErrCoercion.
func ParseAndCoerce(reg *registry.Registry, queryText string, variablesJSON []byte) (*coercion.Operation, error) {
	vars, err := DecodeVariables(variablesJSON)
	if err != nil {
		return nil, err
	}
	return Prepare(reg, Request{Query: queryText, Variables: vars})
}

// DecodeVariables decodes a JSON object of variable values. Empty input and
// null decode to no variables.
func DecodeVariables(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var vars map[string]any
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, &validation.Error{Kind: validation.Other, Message: "variables must be a JSON object: " + err.Error()}
	}
	return vars, nil
}

// Prepare runs the request through parsing, variable binding, validation and
// coercion. Nothing is resolved; failures reject the whole request.
func Prepare(reg *registry.Registry, req Request) (*coercion.Operation, error) {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var ge *language.Error
		if !errors.As(err, &ge) {
			ge = &language.Error{Message: err.Error()}
		}
		return nil, &ParseError{Err: ge}
	}
	op, err := selectOperation(doc, req.OperationName)
	if err != nil {
		return nil, err
	}

	ctx := validation.NewContext(doc, op)
	if err := ctx.BindVariables(reg, op.VariableDefinitions, req.Variables); err != nil {
		return nil, err
	}
	if err := validation.ValidateOperation(reg, ctx, op); err != nil {
		return nil, err
	}
	return coercion.Coerce(reg, ctx, op)
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name != "" {
		if op := doc.Operations.ForName(name); op != nil {
			return op, nil
		}
		return nil, &validation.Error{Kind: validation.Other, Message: "unknown operation named \"" + name + "\""}
	}
	switch len(doc.Operations) {
	case 0:
		return nil, &validation.Error{Kind: validation.Other, Message: "document contains no operations"}
	case 1:
		return doc.Operations[0], nil
	}
	return nil, &validation.Error{Kind: validation.Other, Message: "operation name is required when the document contains several operations"}
}
