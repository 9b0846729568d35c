package validation

import (
	"errors"
	"fmt"

	language "github.com/hanpama/matchbox/internal/language"
)

// ErrorKind classifies a QueryValidationError.
type ErrorKind string

const (
	InvalidSelectionSet       ErrorKind = "INVALID_SELECTION_SET"
	InvalidField              ErrorKind = "INVALID_FIELD"
	InvalidFieldArguments     ErrorKind = "INVALID_FIELD_ARGUMENTS"
	InvalidOperation          ErrorKind = "INVALID_OPERATION"
	MissingDefinition         ErrorKind = "MISSING_DEFINITION"
	MissingVariable           ErrorKind = "MISSING_VARIABLE"
	VariableMismatch          ErrorKind = "VARIABLE_MISMATCH"
	UnknownDirective          ErrorKind = "UNKNOWN_DIRECTIVE"
	UnsupportedFragmentSpread ErrorKind = "UNSUPPORTED_FRAGMENT_SPREAD"
	Other                     ErrorKind = "OTHER"
)

// Error is a client-visible validation failure. Validation errors are never
// retried: the same document fails the same way every time.
type Error struct {
	Kind    ErrorKind
	Message string
	// Operation is set for InvalidOperation.
	Operation language.Operation
	// Name is the variable name for MissingVariable and VariableMismatch.
	Name      string
	Locations []language.ErrorLocation
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "validation: " + e.Message
}

func newError(kind ErrorKind, pos *language.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Locations: language.Locations(pos)}
}

// IsKind reports whether err is a validation Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Kind == kind
}
