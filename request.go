package bserve

import (
	"maps"
	"net/url"
	"strings"

	"github.com/advdv/bserve/internal/pathpattern"
	"github.com/advdv/bserve/internal/wire"
	"github.com/cockroachdb/errors"
)

// Method is a request method. [MethodAll] is only used at registration time.
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodOptions Method = "OPTIONS"
	MethodConnect Method = "CONNECT"
	MethodTrace   Method = "TRACE"

	// MethodAll registers a handler for requests of any method.
	MethodAll Method = "*"
)

var knownMethods = map[string]Method{
	"GET": MethodGet, "HEAD": MethodHead, "POST": MethodPost, "PUT": MethodPut, "DELETE": MethodDelete,
	"PATCH": MethodPatch, "OPTIONS": MethodOptions, "CONNECT": MethodConnect, "TRACE": MethodTrace,
}

// ParseMethod recognizes a request method. Methods are case-sensitive.
func ParseMethod(s string) (Method, bool) {
	m, ok := knownMethods[s]
	return m, ok
}

// Version of the protocol.
type Version uint8

const (
	VersionUnknown Version = iota
	HTTP10
	HTTP11
)

func (v Version) String() string {
	switch v {
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	default:
		return "HTTP/?"
	}
}

// ParseVersion recognizes the supported protocol versions.
func ParseVersion(s string) (Version, bool) {
	switch s {
	case "HTTP/1.0":
		return HTTP10, true
	case "HTTP/1.1":
		return HTTP11, true
	default:
		return VersionUnknown, false
	}
}

// Request is the read-only view handlers receive. Path holds the percent-decoded
// segments of the request target.
type Request struct {
	Method   Method
	Target   string
	Path     []string
	RawQuery string
	Version  Version
	Header   Header
	Body     []byte

	vars map[string]string
}

// Var returns the value bound to a path variable by the pattern the handler was registered with.
func (r *Request) Var(name string) string { return r.vars[name] }

// Vars returns a copy of all path variable bindings.
func (r *Request) Vars() map[string]string { return maps.Clone(r.vars) }

// Query parses the raw query string.
func (r *Request) Query() url.Values {
	vs, _ := url.ParseQuery(r.RawQuery)
	return vs
}

// URLPath returns the request path in its normalized form.
func (r *Request) URLPath() string { return "/" + strings.Join(r.Path, "/") }

// withVars returns a shallow copy carrying the bindings of a single match.
func (r *Request) withVars(vars map[string]string) *Request {
	if len(vars) == 0 && len(r.vars) == 0 {
		return r
	}

	r2 := *r
	r2.vars = vars
	return &r2
}

// NewRequest builds a request from an assembled message. It fails with
// [CodeNotImplemented] for unknown methods or any transfer coding and with
// [CodeBadRequest] for unsupported versions or undecodable targets.
func NewRequest(msg *wire.Message) (*Request, error) {
	line := msg.RequestLine

	version, ok := ParseVersion(line.Version)
	if !ok {
		return nil, NewError(CodeBadRequest, errors.Newf("unsupported version %q", line.Version))
	}

	method, ok := ParseMethod(line.Method)
	if !ok {
		return nil, NewError(CodeNotImplemented, errors.Newf("unrecognized method %q", line.Method))
	}

	header := make(Header, len(msg.Fields))
	for _, f := range msg.Fields {
		header.Add(f.Name, f.Value)
	}

	if header.Has("transfer-encoding") {
		return nil, NewError(CodeNotImplemented, errors.Newf("transfer-encoding %q", header.Get("transfer-encoding")))
	}

	path, query, err := splitTarget(line.Target)
	if err != nil {
		return nil, NewError(CodeBadRequest, err)
	}

	return &Request{
		Method:   method,
		Target:   line.Target,
		Path:     path,
		RawQuery: query,
		Version:  version,
		Header:   header,
		Body:     msg.Body,
	}, nil
}

func splitTarget(target string) ([]string, string, error) {
	if target == "*" {
		return []string{}, "", nil
	}

	if !strings.HasPrefix(target, "/") {
		u, err := url.ParseRequestURI(target)
		if err != nil {
			return nil, "", errors.Wrapf(err, "parse target %q", target)
		}
		target = u.RequestURI()
	}

	rawPath, query, _ := strings.Cut(target, "?")

	segs := pathpattern.Split(rawPath)
	for i, s := range segs {
		dec, err := url.PathUnescape(s)
		if err != nil {
			return nil, "", errors.Wrapf(err, "decode path segment %q", s)
		}
		segs[i] = dec
	}

	return segs, query, nil
}
