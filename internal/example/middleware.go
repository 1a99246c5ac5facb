// Package example implements example middleware in an outside package.
package example

import (
	"context"

	"github.com/advdv/bserve"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "x-request-id"

// RequestID returns middleware that echoes the caller's request id, or a fresh
// one, in the response header. Handlers registered after it read the id with [ID].
func RequestID() bserve.Handler {
	return bserve.Next(func(_ context.Context, w *bserve.Response, r *bserve.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
	})
}

// ID returns the request id set by [RequestID].
func ID(w *bserve.Response) string {
	return w.Header().Get(RequestIDHeader)
}
