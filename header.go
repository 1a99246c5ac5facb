package bserve

import (
	"io"
	"net/textproto"
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/net/http/httpguts"
)

// Header maps lower-cased field names to their values in the order they were added.
// All methods compare names case-insensitively.
type Header map[string][]string

func headerKey(name string) string { return strings.ToLower(name) }

// Get returns the last value set for name. When a field is repeated the last one wins.
func (h Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup is like Get but also reports whether the field is present.
func (h Header) Lookup(name string) (string, bool) {
	vs := h[headerKey(name)]
	if len(vs) == 0 {
		return "", false
	}

	return vs[len(vs)-1], true
}

// Values returns every value for name.
func (h Header) Values(name string) []string { return h[headerKey(name)] }

// Add appends a value for name.
func (h Header) Add(name, value string) {
	k := headerKey(name)
	h[k] = append(h[k], value)
}

// Set replaces all values for name.
func (h Header) Set(name, value string) { h[headerKey(name)] = []string{value} }

// Del removes name.
func (h Header) Del(name string) { delete(h, headerKey(name)) }

// Has reports whether name is present.
func (h Header) Has(name string) bool { return len(h[headerKey(name)]) > 0 }

// Clone returns a deep copy.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, vs := range h {
		out[k] = slices.Clone(vs)
	}

	return out
}

var fieldSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

// write serializes the fields in a stable order with canonical names.
func (h Header) write(w io.Writer) error {
	keys := lo.Keys(h)
	slices.Sort(keys)

	for _, k := range keys {
		if !httpguts.ValidHeaderFieldName(k) {
			continue
		}

		name := textproto.CanonicalMIMEHeaderKey(k)
		for _, v := range h[k] {
			if _, err := io.WriteString(w, name+": "+fieldSanitizer.Replace(v)+"\r\n"); err != nil {
				return err
			}
		}
	}

	return nil
}
