// Package reqid tags a request context with a random identifier that
// correlates log lines, events and spans of one request.
package reqid

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/go-logr/logr"
)

type ctxKey struct{}

// NewContext derives a context carrying a fresh positive id and returns both.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64N(math.MaxInt64) + 1
	return context.WithValue(parent, ctxKey{}, id), id
}

func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}

// Logger adds the request id of ctx to log, if ctx has one.
func Logger(ctx context.Context, log logr.Logger) logr.Logger {
	if id, ok := FromContext(ctx); ok {
		return log.WithValues("requestID", id)
	}
	return log
}
