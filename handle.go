package bserve

import (
	"context"
	"strconv"
)

// Flow is returned by every handler to decide whether the next matching handler runs.
type Flow uint8

const (
	// Continue runs the next matching handler, like calling next() in express.
	Continue Flow = iota
	// Stop ends handling of the request.
	Stop
)

func (f Flow) String() string {
	switch f {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "Flow(" + strconv.Itoa(int(f)) + ")"
	}
}

// Handler serves a request by writing into the response accumulator. Handlers
// run one after the other in registration order until one returns [Stop] or
// the response has a body.
type Handler interface {
	ServeFlow(ctx context.Context, w *Response, r *Request) Flow
}

// HandlerFunc allow casting a function to implement [Handler].
type HandlerFunc func(context.Context, *Response, *Request) Flow

// ServeFlow implements the [Handler] interface.
func (f HandlerFunc) ServeFlow(ctx context.Context, w *Response, r *Request) Flow {
	return f(ctx, w, r)
}

// Next wraps a function that always continues.
func Next(f func(context.Context, *Response, *Request)) Handler {
	return HandlerFunc(func(ctx context.Context, w *Response, r *Request) Flow {
		f(ctx, w, r)
		return Continue
	})
}

// Final wraps a function that always stops.
func Final(f func(context.Context, *Response, *Request)) Handler {
	return HandlerFunc(func(ctx context.Context, w *Response, r *Request) Flow {
		f(ctx, w, r)
		return Stop
	})
}
