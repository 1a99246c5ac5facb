package bapptest

import (
	"context"

	"github.com/advdv/bserve"
)

// CallHandler invokes a single handler with a fresh response and returns the
// response together with the flow the handler returned.
func CallHandler(ctx context.Context, h bserve.Handler, r *bserve.Request) (*bserve.Response, bserve.Flow) {
	if r.Header == nil {
		r.Header = bserve.Header{}
	}

	w := bserve.NewResponse()
	flow := h.ServeFlow(ctx, w, r)

	return w, flow
}
