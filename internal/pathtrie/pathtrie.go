// Package pathtrie implements a segment trie that returns every pattern matching a concrete path.
package pathtrie

import (
	"slices"

	"github.com/advdv/bserve/internal/pathpattern"
)

// Node of the trie. The zero value is an empty trie ready for use.
type Node[T any] struct {
	statics  map[string]*Node[T]
	wildcard *Node[T]
	variable *Node[T]
	leaves   []leaf[T]
}

// leaf records a pattern terminating at a node. Variable names are kept with
// the pattern rather than in the trie keys so that differently named variables
// at the same depth share a branch.
type leaf[T any] struct {
	value   T
	index   uint64
	pattern *pathpattern.Pattern
}

// Match is a single result of Lookup.
type Match[T any] struct {
	Value   T
	Index   uint64
	Pattern *pathpattern.Pattern
	Vars    map[string]string
}

// New returns an empty trie.
func New[T any]() *Node[T] { return &Node[T]{} }

// Insert adds value under the pattern. Registering the same pattern more than
// once keeps every value.
func (n *Node[T]) Insert(pat *pathpattern.Pattern, value T, index uint64) {
	cur := n
	for _, seg := range pat.Segments() {
		cur = cur.child(seg)
	}

	cur.leaves = append(cur.leaves, leaf[T]{value: value, index: index, pattern: pat})
}

func (n *Node[T]) child(seg pathpattern.Segment) *Node[T] {
	switch seg.Kind {
	case pathpattern.Wildcard:
		if n.wildcard == nil {
			n.wildcard = &Node[T]{}
		}
		return n.wildcard
	case pathpattern.Variable:
		if n.variable == nil {
			n.variable = &Node[T]{}
		}
		return n.variable
	default:
		if n.statics == nil {
			n.statics = make(map[string]*Node[T])
		}
		next, ok := n.statics[seg.Value]
		if !ok {
			next = &Node[T]{}
			n.statics[seg.Value] = next
		}
		return next
	}
}

type frame[T any] struct {
	node  *Node[T]
	depth int
}

// Lookup returns every inserted pattern that matches path segment by segment,
// sorted by ascending index. Literal branches are explored before pattern
// branches but no branch shadows another: all full-depth matches are returned.
func (n *Node[T]) Lookup(path []string) []Match[T] {
	var (
		out   []Match[T]
		stack = []frame[T]{{node: n}}
	)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth == len(path) {
			for _, l := range top.node.leaves {
				out = append(out, Match[T]{
					Value:   l.value,
					Index:   l.index,
					Pattern: l.pattern,
					Vars:    bind(l.pattern, path),
				})
			}
			continue
		}

		seg := path[top.depth]
		if seg == "" {
			continue
		}

		// pushed in reverse so the literal branch is popped first
		if top.node.variable != nil {
			stack = append(stack, frame[T]{top.node.variable, top.depth + 1})
		}
		if top.node.wildcard != nil {
			stack = append(stack, frame[T]{top.node.wildcard, top.depth + 1})
		}
		if next, ok := top.node.statics[seg]; ok {
			stack = append(stack, frame[T]{next, top.depth + 1})
		}
	}

	slices.SortStableFunc(out, func(a, b Match[T]) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		default:
			return 0
		}
	})

	return out
}

func bind(pat *pathpattern.Pattern, path []string) map[string]string {
	var vars map[string]string
	for i, seg := range pat.Segments() {
		if seg.Kind != pathpattern.Variable {
			continue
		}
		if vars == nil {
			vars = make(map[string]string, 1)
		}
		vars[seg.Value] = path[i]
	}

	return vars
}

// Merge copies every pattern of other into n, adding shift to each index.
// The other trie is left untouched.
func (n *Node[T]) Merge(other *Node[T], shift uint64) {
	for _, l := range other.leaves {
		l.index += shift
		n.leaves = append(n.leaves, l)
	}

	for key, child := range other.statics {
		n.child(pathpattern.Segment{Kind: pathpattern.Static, Value: key}).Merge(child, shift)
	}
	if other.wildcard != nil {
		n.child(pathpattern.Segment{Kind: pathpattern.Wildcard}).Merge(other.wildcard, shift)
	}
	if other.variable != nil {
		n.child(pathpattern.Segment{Kind: pathpattern.Variable}).Merge(other.variable, shift)
	}
}

// Len returns the number of patterns stored in the trie.
func (n *Node[T]) Len() (total int) {
	n.Walk(func(*pathpattern.Pattern, T, uint64) { total++ })
	return total
}

// Walk calls fn for every stored pattern, in no particular order.
func (n *Node[T]) Walk(fn func(pat *pathpattern.Pattern, value T, index uint64)) {
	stack := []*Node[T]{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, l := range cur.leaves {
			fn(l.pattern, l.value, l.index)
		}
		for _, c := range cur.statics {
			stack = append(stack, c)
		}
		if cur.wildcard != nil {
			stack = append(stack, cur.wildcard)
		}
		if cur.variable != nil {
			stack = append(stack, cur.variable)
		}
	}
}
