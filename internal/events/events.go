// Package events defines the payloads published on the eventbus while a
// request moves through the server and the engine. Subscribers receive the
// publishing context, which carries the request id from package reqid.
package events

import (
	"net/http"
	"time"
)

type HTTPStart struct {
	Request *http.Request
}

type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// OperationStart precedes preparation of a single operation. A batched
// request publishes one per entry.
type OperationStart struct {
	Query         string
	OperationName string
	// OperationType is empty when the query does not select exactly one
	// parsable operation.
	OperationType string
}

// OperationFinish reports the outcome of the matching OperationStart. Err is
// the error returned to the client, if any.
type OperationFinish struct {
	OperationName string
	OperationType string
	Err           error
	Duration      time.Duration
}

// ValidationFailed is published when variable binding or validation rejects
// a request. Kind is the validation error kind name.
type ValidationFailed struct {
	OperationName string
	Kind          string
	Message       string
}

// CoercionFailed is published when coercion rejects an operation that passed
// validation.
type CoercionFailed struct {
	OperationName string
	Err           error
}
