package wire

import (
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/http/httpguts"
)

// RequestLine is the first line of a request head.
type RequestLine struct {
	Method  string
	Target  string
	Version string
}

// Field is a single header line. Name is lower-cased, Value is trimmed.
type Field struct {
	Name  string
	Value string
}

// Fields of a head in the order they were received.
type Fields []Field

// Get returns the value of the last field named name, compared case-insensitively.
func (fs Fields) Get(name string) (string, bool) {
	for i := len(fs) - 1; i >= 0; i-- {
		if strings.EqualFold(fs[i].Name, name) {
			return fs[i].Value, true
		}
	}

	return "", false
}

// ParseHead decodes head bytes (without the terminating blank line) into the
// request line and header fields.
func ParseHead(head []byte) (RequestLine, Fields, error) {
	if !utf8.Valid(head) {
		return RequestLine{}, nil, errors.Wrap(ErrMalformedHead, "head is not valid utf-8")
	}

	lines := strings.Split(string(head), "\r\n")

	line, err := parseRequestLine(lines[0])
	if err != nil {
		return RequestLine{}, nil, err
	}

	fields := make(Fields, 0, len(lines)-1)
	for _, l := range lines[1:] {
		f, err := parseField(l)
		if err != nil {
			return RequestLine{}, nil, err
		}

		fields = append(fields, f)
	}

	return line, fields, nil
}

func parseRequestLine(l string) (RequestLine, error) {
	parts := strings.Split(l, " ")
	if len(parts) != 3 {
		return RequestLine{}, errors.Wrapf(ErrMalformedHead, "request line %q", l)
	}

	for _, p := range parts {
		if p == "" {
			return RequestLine{}, errors.Wrapf(ErrMalformedHead, "request line %q", l)
		}
	}

	return RequestLine{Method: parts[0], Target: parts[1], Version: parts[2]}, nil
}

func parseField(l string) (Field, error) {
	if l == "" {
		return Field{}, errors.Wrap(ErrMalformedHead, "empty header line")
	}
	if l[0] == ' ' || l[0] == '\t' {
		return Field{}, errors.Wrap(ErrMalformedHead, "obsolete header line folding")
	}

	name, value, ok := strings.Cut(l, ":")
	if !ok {
		return Field{}, errors.Wrapf(ErrMalformedHead, "header line %q has no colon", l)
	}

	if !httpguts.ValidHeaderFieldName(name) {
		return Field{}, errors.Wrapf(ErrMalformedHead, "invalid header name %q", name)
	}

	value = strings.Trim(value, " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return Field{}, errors.Wrapf(ErrMalformedHead, "invalid value for header %q", name)
	}

	return Field{Name: strings.ToLower(name), Value: value}, nil
}
