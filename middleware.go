package bserve

import "github.com/advdv/bserve/internal/pathtrie"

// Use registers middleware: a handler that matches every path and method. It
// runs in registration order relative to all other handlers, so middleware
// registered after a route that stops never sees requests for that route.
func (rt *Router) Use(h Handler) uint64 {
	rt.ensureNotFrozen()

	idx := rt.next()
	rt.middleware = append(rt.middleware, pathtrie.Match[Handler]{Value: h, Index: idx})

	return idx
}

// UseFunc registers a middleware function, see [Router.Use].
func (rt *Router) UseFunc(f HandlerFunc) uint64 {
	return rt.Use(f)
}
