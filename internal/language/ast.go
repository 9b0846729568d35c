package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses an executable document. Syntax errors are returned as *Error.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, asError(err)
	}
	return doc, nil
}

// ParseSchema parses a type system document without the gqlparser prelude.
func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, asError(err)
	}
	return doc, nil
}

// Locations converts a parser position into error locations.
func Locations(pos *Position) []ErrorLocation {
	if pos == nil {
		return nil
	}
	return []ErrorLocation{{Line: pos.Line, Column: pos.Column}}
}

func asError(err error) error {
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		return ge
	}
	return &gqlerror.Error{Err: err, Message: err.Error()}
}
