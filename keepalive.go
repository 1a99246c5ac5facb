package bserve

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"
)

// KeepAlive holds the parameters of a Keep-Alive header. Zero means absent.
type KeepAlive struct {
	Timeout time.Duration
	Max     int
}

// ParseKeepAlive parses a header value such as "timeout=5, max=100". Unknown
// or malformed parameters are ignored.
func ParseKeepAlive(s string) KeepAlive {
	var ka KeepAlive
	for _, param := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || n < 0 {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "timeout":
			ka.Timeout = time.Duration(n) * time.Second
		case "max":
			ka.Max = n
		}
	}

	return ka
}

// persistence decides whether the connection stays open after answering r and
// how long to wait for the next request. HTTP/1.1 connections persist unless
// the client asks to close; HTTP/1.0 connections only when the client asks
// for keep-alive, in which case its timeout parameter wins over the default.
func persistence(r *Request, def time.Duration) (bool, time.Duration) {
	conn := r.Header.Values("connection")

	switch r.Version {
	case HTTP11:
		if httpguts.HeaderValuesContainsToken(conn, "close") {
			return false, 0
		}
		return true, def
	case HTTP10:
		if !httpguts.HeaderValuesContainsToken(conn, "keep-alive") {
			return false, 0
		}
		if ka := ParseKeepAlive(r.Header.Get("keep-alive")); ka.Timeout > 0 {
			return true, ka.Timeout
		}
		return true, def
	default:
		return false, 0
	}
}
