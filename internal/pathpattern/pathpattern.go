// Package pathpattern parses url path patterns made of whole-segment literals, wildcards and named variables.
package pathpattern

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind of a pattern segment.
type Kind uint8

const (
	// Static segments match a path segment with the exact same text.
	Static Kind = iota
	// Wildcard segments match any single non-empty path segment.
	Wildcard
	// Variable segments match like a wildcard but bind the segment to a name.
	Variable
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Wildcard:
		return "wildcard"
	case Variable:
		return "variable"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

const (
	wildcardToken  = "*"
	variableMarker = ':'
)

// Segment is a single component of a pattern. Value holds the literal text for
// static segments and the binding name for variables.
type Segment struct {
	Kind  Kind
	Value string
}

func (s Segment) String() string {
	switch s.Kind {
	case Wildcard:
		return wildcardToken
	case Variable:
		return string(variableMarker) + s.Value
	default:
		return s.Value
	}
}

// Pattern is a parsed path pattern.
type Pattern struct {
	raw  string
	segs []Segment
}

// Segments returns the ordered segments of the pattern.
func (p *Pattern) Segments() []Segment { return p.segs }

// Len returns the number of segments.
func (p *Pattern) Len() int { return len(p.segs) }

// Raw returns the pattern as it was provided to Parse.
func (p *Pattern) Raw() string { return p.raw }

// String formats the pattern in its normalized form.
func (p *Pattern) String() string {
	if len(p.segs) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, s := range p.segs {
		b.WriteByte('/')
		b.WriteString(s.String())
	}

	return b.String()
}

// Equal reports whether both patterns consist of the same segment sequence.
func (p *Pattern) Equal(o *Pattern) bool {
	if len(p.segs) != len(o.segs) {
		return false
	}

	for i := range p.segs {
		if p.segs[i] != o.segs[i] {
			return false
		}
	}

	return true
}

// ErrInvalid is matched by every error returned from Parse.
var ErrInvalid = errors.New("invalid path pattern")

// Error describes why a pattern was rejected.
type Error struct {
	Pattern string
	Segment int
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid path %q: segment %d: %s", e.Pattern, e.Segment, e.Reason)
}

// Is makes errors.Is(err, ErrInvalid) hold for every *Error.
func (e *Error) Is(target error) bool { return target == ErrInvalid }

// Parse compiles a pattern string. It is purely syntactic: no percent-decoding is performed.
func Parse(s string) (*Pattern, error) {
	parts := Split(s)
	pat := &Pattern{raw: s, segs: make([]Segment, 0, len(parts))}

	seen := map[string]struct{}{}
	for i, part := range parts {
		seg, reason := classify(part)
		if reason != "" {
			return nil, &Error{Pattern: s, Segment: i, Reason: reason}
		}

		if seg.Kind == Variable {
			if _, dup := seen[seg.Value]; dup {
				return nil, &Error{Pattern: s, Segment: i, Reason: fmt.Sprintf("variable %q bound twice", seg.Value)}
			}
			seen[seg.Value] = struct{}{}
		}

		pat.segs = append(pat.segs, seg)
	}

	return pat, nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) *Pattern {
	p, err := Parse(s)
	if err != nil {
		panic("pathpattern: " + err.Error())
	}

	return p
}

func classify(part string) (Segment, string) {
	switch {
	case part == wildcardToken:
		return Segment{Kind: Wildcard}, ""
	case part[0] == variableMarker:
		name := part[1:]
		if name == "" {
			return Segment{}, "empty variable name"
		}
		for _, c := range []byte(name) {
			if !isNameByte(c) {
				return Segment{}, fmt.Sprintf("invalid character %q in variable name", c)
			}
		}

		return Segment{Kind: Variable, Value: name}, ""
	default:
		for _, c := range []byte(part) {
			switch {
			case c == '*':
				return Segment{}, "wildcard must span the whole segment"
			case c == '%':
				return Segment{}, "percent escape in literal, request paths are matched decoded"
			case c == '?' || c == '#' || c == ' ' || c < 0x20 || c == 0x7f:
				return Segment{}, fmt.Sprintf("invalid character %q in literal", c)
			}
		}

		return Segment{Kind: Static, Value: part}, ""
	}
}

func isNameByte(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// Split cuts a path on "/" and drops every empty component.
func Split(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// Build fills the pattern's wildcard and variable segments with vals, in order.
func Build(p *Pattern, vals ...string) (string, error) {
	var b strings.Builder

	next := 0
	for _, s := range p.segs {
		b.WriteByte('/')
		if s.Kind == Static {
			b.WriteString(s.Value)
			continue
		}

		if next >= len(vals) {
			return "", errors.Newf("not enough values for %s: got %d", p, len(vals))
		}
		if vals[next] == "" || strings.Contains(vals[next], "/") {
			return "", errors.Newf("value %q for segment %s is not a single path segment", vals[next], s)
		}

		b.WriteString(vals[next])
		next++
	}

	if next != len(vals) {
		return "", errors.Newf("too many values for %s: got %d, want %d", p, len(vals), next)
	}

	if b.Len() == 0 {
		return "/", nil
	}

	return b.String(), nil
}
