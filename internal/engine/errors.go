package engine

import (
	language "github.com/hanpama/matchbox/internal/language"
)

// ParseError reports query text that is not a well-formed document.
type ParseError struct {
	Err *language.Error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "invalid query"
	}
	return "invalid query: " + e.Err.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolveError wraps a failure returned by a Resolver or by one of the
// pending computations it registered. The wrapped error is not interpreted.
type ResolveError struct {
	Err error
}

func (e *ResolveError) Error() string { return "resolve: " + e.Err.Error() }

func (e *ResolveError) Unwrap() error { return e.Err }
