package bserve

import (
	"context"
	"fmt"

	"github.com/advdv/bserve/internal/pathtrie"
	"github.com/cockroachdb/errors"
)

// Outcome of dispatching a single request.
type Outcome struct {
	// Invoked counts the handlers that ran.
	Invoked int
	// Stopped is set when a handler returned [Stop].
	Stopped bool
}

// PanicError carries the value a handler panicked with.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Dispatch runs the handlers matching r in ascending registration order. The
// matches of the method trie, the any-method trie and the middleware list are
// each already sorted, so they are merged instead of being collected and
// sorted again. Dispatching ends when a handler returns [Stop], when w has a
// body, or when all matches ran.
//
// A panicking handler ends dispatching; the panic is returned as an error
// with [CodeInternalServerError].
func (rt *Router) Dispatch(ctx context.Context, w *Response, r *Request) (Outcome, error) {
	var out Outcome

	var sources [3][]pathtrie.Match[Handler]
	if trie := rt.methods[r.Method]; trie != nil {
		sources[0] = trie.Lookup(r.Path)
	}
	sources[1] = rt.any.Lookup(r.Path)
	sources[2] = rt.middleware

	var pos [3]int
	for !w.HasBody() {
		best := -1
		for i := range sources {
			if pos[i] >= len(sources[i]) {
				continue
			}
			if best < 0 || sources[i][pos[i]].Index < sources[best][pos[best]].Index {
				best = i
			}
		}

		if best < 0 {
			break
		}

		m := sources[best][pos[best]]
		pos[best]++

		out.Invoked++
		flow, err := serveSafely(ctx, m.Value, w, r.withVars(m.Vars))
		if err != nil {
			return out, NewError(CodeInternalServerError, errors.Wrapf(err, "handler for %s", describe(m)))
		}

		if flow == Stop {
			out.Stopped = true
			break
		}
	}

	return out, nil
}

func serveSafely(ctx context.Context, h Handler, w *Response, r *Request) (flow Flow, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.WithStack(&PanicError{Value: v})
		}
	}()

	return h.ServeFlow(ctx, w, r), nil
}

func describe(m pathtrie.Match[Handler]) string {
	if m.Pattern == nil {
		return fmt.Sprintf("middleware #%d", m.Index)
	}
	return fmt.Sprintf("%s #%d", m.Pattern, m.Index)
}
