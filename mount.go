package bserve

import "github.com/advdv/bserve/internal/pathtrie"

// Append merges every handler and named route of other into rt. The indices of
// other are shifted by the current counter of rt so that dispatching behaves as
// if all of rt's handlers were registered first, followed by all of other's in
// the order other was built. other is not modified and may be appended again.
func (rt *Router) Append(other *Router) {
	rt.ensureNotFrozen()
	if other == rt {
		panic("bserve: cannot append a router to itself")
	}

	if err := rt.names.merge(other.names); err != nil {
		panic("bserve: " + err.Error())
	}

	shift := rt.counter
	for method, trie := range other.methods {
		dst := rt.methods[method]
		if dst == nil {
			dst = pathtrie.New[Handler]()
			rt.methods[method] = dst
		}

		dst.Merge(trie, shift)
	}

	rt.any.Merge(other.any, shift)

	for _, m := range other.middleware {
		m.Index += shift
		rt.middleware = append(rt.middleware, m)
	}

	rt.counter += other.counter
}
