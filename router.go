package bserve

import (
	"sync/atomic"

	"github.com/advdv/bserve/internal/pathpattern"
	"github.com/advdv/bserve/internal/pathtrie"
	"github.com/cockroachdb/errors"
)

// Router owns one trie per method, a trie for handlers of any method and a flat
// list of middleware. Every registration, wherever it lands, takes the next
// value of a single counter so dispatching can restore the registration order.
type Router struct {
	counter    uint64
	methods    map[Method]*pathtrie.Node[Handler]
	any        *pathtrie.Node[Handler]
	middleware []pathtrie.Match[Handler]
	names      *namedPatterns
	frozen     atomic.Bool
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		methods: make(map[Method]*pathtrie.Node[Handler]),
		any:     pathtrie.New[Handler](),
		names:   newNamedPatterns(),
	}
}

// Handle registers a handler for the method and path pattern and returns its
// sequence index. [MethodAll] registers it for every method. An optional name
// allows building urls for the pattern with [Router.Reverse].
func (rt *Router) Handle(method Method, pattern string, h Handler, name ...string) (uint64, error) {
	rt.ensureNotFrozen()

	pat, err := pathpattern.Parse(pattern)
	if err != nil {
		return 0, errors.Wrapf(err, "register %s %s", method, pattern)
	}

	if method != MethodAll {
		if _, ok := ParseMethod(string(method)); !ok {
			return 0, errors.Newf("register %s %s: unrecognized method", method, pattern)
		}
	}

	if len(name) > 0 {
		if err := rt.names.add(name[0], pat); err != nil {
			return 0, err
		}
	}

	trie := rt.any
	if method != MethodAll {
		trie = rt.methods[method]
		if trie == nil {
			trie = pathtrie.New[Handler]()
			rt.methods[method] = trie
		}
	}

	idx := rt.next()
	trie.Insert(pat, h, idx)

	return idx, nil
}

// HandleFunc registers a handler function, see [Router.Handle].
func (rt *Router) HandleFunc(method Method, pattern string, f HandlerFunc, name ...string) (uint64, error) {
	return rt.Handle(method, pattern, f, name...)
}

// Get registers a handler for GET requests.
func (rt *Router) Get(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodGet, pattern, h, name...)
}

// Head registers a handler for HEAD requests.
func (rt *Router) Head(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodHead, pattern, h, name...)
}

// Post registers a handler for POST requests.
func (rt *Router) Post(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodPost, pattern, h, name...)
}

// Put registers a handler for PUT requests.
func (rt *Router) Put(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodPut, pattern, h, name...)
}

// Delete registers a handler for DELETE requests.
func (rt *Router) Delete(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodDelete, pattern, h, name...)
}

// Patch registers a handler for PATCH requests.
func (rt *Router) Patch(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodPatch, pattern, h, name...)
}

// Options registers a handler for OPTIONS requests.
func (rt *Router) Options(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodOptions, pattern, h, name...)
}

// All registers a handler for the pattern regardless of the request method.
func (rt *Router) All(pattern string, h Handler, name ...string) (uint64, error) {
	return rt.Handle(MethodAll, pattern, h, name...)
}

// Reverse returns the url based on the name and parameter values.
func (rt *Router) Reverse(name string, vals ...string) (string, error) {
	return rt.names.build(name, vals...)
}

// Counter returns the index the next registration will receive.
func (rt *Router) Counter() uint64 { return rt.counter }

// Len returns the number of registered handlers.
func (rt *Router) Len() int {
	n := rt.any.Len() + len(rt.middleware)
	for _, t := range rt.methods {
		n += t.Len()
	}

	return n
}

// Freeze marks the router read-only. Servers freeze their router before
// accepting connections so that it can be shared without locking.
func (rt *Router) Freeze() { rt.frozen.Store(true) }

func (rt *Router) next() uint64 {
	idx := rt.counter
	rt.counter++

	return idx
}

func (rt *Router) ensureNotFrozen() {
	if rt.frozen.Load() {
		panic("bserve: cannot register handlers on a router that is being served")
	}
}
