package bserve

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Response accumulates the status, headers and body of a single response. Nothing
// reaches the connection until every handler has run, so a later handler or the
// server may still rewrite it completely with [Response.Reset].
type Response struct {
	status  int
	header  Header
	body    bytes.Buffer
	hasBody bool
}

// NewResponse inits an empty 200 OK response.
func NewResponse() *Response {
	return &Response{status: http.StatusOK, header: Header{}}
}

// Status returns the status code.
func (w *Response) Status() int { return w.status }

// SetStatus sets the status code.
func (w *Response) SetStatus(code int) { w.status = code }

// Header returns the mutable response header.
func (w *Response) Header() Header { return w.header }

// HasBody reports whether a body was set. Once it is, dispatching stops.
func (w *Response) HasBody() bool { return w.hasBody }

// Write appends to the body and marks the response as having one.
func (w *Response) Write(p []byte) (int, error) {
	w.hasBody = true
	return w.body.Write(p)
}

// Send replaces the body.
func (w *Response) Send(b []byte) {
	w.body.Reset()
	_, _ = w.Write(b)
}

// SendString replaces the body with s.
func (w *Response) SendString(s string) {
	w.body.Reset()
	w.hasBody = true
	w.body.WriteString(s)
}

// Body returns the body bytes accumulated so far.
func (w *Response) Body() []byte { return w.body.Bytes() }

// Reset clears status, headers and body.
func (w *Response) Reset() {
	w.status = http.StatusOK
	w.header = Header{}
	w.body.Reset()
	w.hasBody = false
}

// Bytes serializes the response as it would be written for a request of the
// given version and method.
func (w *Response) Bytes(v Version, m Method) []byte {
	var buf bytes.Buffer
	_, _ = w.writeTo(&buf, v, m)
	return buf.Bytes()
}

// writeTo serializes the response into a single contiguous write.
func (w *Response) writeTo(dst io.Writer, v Version, m Method) (int64, error) {
	if v == VersionUnknown {
		v = HTTP11
	}

	text := http.StatusText(w.status)
	if text == "" {
		text = "Status " + strconv.Itoa(w.status)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %d %s\r\n", v, w.status, text)

	hdr := w.header.Clone()
	if bodyAllowed(w.status) {
		hdr.Set("content-length", strconv.Itoa(w.body.Len()))
	} else {
		hdr.Del("content-length")
	}

	if err := hdr.write(&buf); err != nil {
		return 0, err
	}
	buf.WriteString("\r\n")

	if m != MethodHead && bodyAllowed(w.status) {
		buf.Write(w.body.Bytes())
	}

	return buf.WriteTo(dst)
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	default:
		return true
	}
}
