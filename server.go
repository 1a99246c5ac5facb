package bserve

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/advdv/bserve/internal/wire"
	"github.com/cockroachdb/errors"
)

// ErrServerClosed is returned by [Server.Serve] after [Server.Shutdown] was called.
var ErrServerClosed = errors.New("bserve: server closed")

// Observer is informed about every request that reaches dispatching. The
// returned context is passed to the handlers, done is called with the final
// response right before it is written.
type Observer interface {
	ObserveRequest(ctx context.Context, r *Request) (_ context.Context, done func(w *Response))
}

// ServerConfig configures a [Server]. Zero values take the defaults.
type ServerConfig struct {
	// KeepAlive is how long a persistent connection may stay idle between
	// requests. Zero waits indefinitely.
	KeepAlive time.Duration
	// ReadChunkBytes is the size of each read while assembling the head.
	ReadChunkBytes int
	// MaxHeadBytes bounds the request head, larger heads are answered with 400.
	MaxHeadBytes int
	// MaxBodyBytes bounds the declared body length, larger bodies are answered with 413.
	MaxBodyBytes int64
	// Static maps url prefixes to directories that are served when no handler
	// produced a body.
	Static *StaticDirs
	// Files opens static files, it defaults to [DirSource].
	Files FileSource
	// Errors renders error responses, it defaults to [ErrorPages].
	Errors ErrorRenderer
	// Observers see every dispatched request in order.
	Observers []Observer
}

// Server accepts connections and answers every request on them with a router.
type Server struct {
	router *Router
	cfg    ServerConfig
	logs   Logger

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	cancel  context.CancelFunc
	closing atomic.Bool
	wg      sync.WaitGroup
}

// NewServer inits a server with default configuration that logs to the standard logger.
func NewServer(rt *Router) *Server {
	return NewServerWith(rt, ServerConfig{}, NewStdLogger(nil))
}

// NewServerWith inits a server with the given configuration and logger.
func NewServerWith(rt *Router, cfg ServerConfig, logs Logger) *Server {
	if cfg.Files == nil {
		cfg.Files = DirSource{}
	}
	if cfg.Errors == nil {
		cfg.Errors = ErrorPages{Files: cfg.Files}
	}

	return &Server{router: rt, cfg: cfg, logs: logs, conns: map[net.Conn]struct{}{}}
}

// ListenAndServe listens on the tcp address and serves connections.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}

	return s.Serve(ln)
}

// Serve accepts connections on ln and serves each of them on its own
// goroutine. It freezes the router and blocks until the listener fails or the
// server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	s.router.Freeze()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.ln, s.cancel = ln, cancel
	s.mu.Unlock()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}

			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				s.logs.LogConnError(errors.Wrapf(err, "accept, retrying in %s", backoff))
				time.Sleep(backoff)
				continue
			}

			return errors.Wrap(err, "accept")
		}
		backoff = 0

		if !s.track(conn, true) {
			_ = conn.Close()
			return ErrServerClosed
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)

			s.ServeConn(ctx, conn)
		}()
	}
}

// Addr returns the address of the listener, or nil if the server is not serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections and interrupts connections that are
// waiting for their next request. Requests that are already being handled are
// answered before their connection closes. If ctx ends first the remaining
// connections are closed forcefully and the context error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	s.mu.Lock()
	var lnErr error
	if s.ln != nil {
		lnErr = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()

		return errors.Wrap(ctx.Err(), "shutdown")
	}

	if lnErr != nil && !errors.Is(lnErr, net.ErrClosed) {
		return errors.Wrap(lnErr, "close listener")
	}

	return nil
}

func (s *Server) track(c net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if add {
		if s.closing.Load() {
			return false
		}
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}

	return true
}

// ServeConn answers requests on conn until the connection should no longer
// persist, then closes it.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for cycle := 0; ; cycle++ {
		persist, idle, err := s.serveCycle(ctx, conn, cycle)
		if err != nil {
			s.logs.LogConnError(errors.Wrapf(err, "serve %s", conn.RemoteAddr()))
			return
		}

		if !persist || s.closing.Load() || ctx.Err() != nil {
			return
		}

		var deadline time.Time
		if idle > 0 {
			deadline = time.Now().Add(idle)
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			s.logs.LogConnError(errors.Wrap(err, "set read deadline"))
			return
		}

		// shutdown may have interrupted reads before the deadline was reset
		if s.closing.Load() {
			return
		}
	}
}

// serveCycle reads and answers one request. It returns whether the connection
// persists and for how long it may stay idle. A returned error means the
// connection itself failed.
func (s *Server) serveCycle(ctx context.Context, conn net.Conn, cycle int) (bool, time.Duration, error) {
	asm := wire.NewAssembler(conn, wire.Config{
		ChunkSize:    s.cfg.ReadChunkBytes,
		MaxHeadBytes: s.cfg.MaxHeadBytes,
		MaxBodyBytes: s.cfg.MaxBodyBytes,
	})

	msg, err := asm.Assemble()
	if err != nil {
		return false, 0, s.failAssembly(ctx, conn, asm, cycle, err)
	}

	// the idle deadline only bounds the wait for a request
	_ = conn.SetReadDeadline(time.Time{})

	req, err := NewRequest(msg)
	if err != nil {
		s.logs.LogProtocolError(err)

		version, _ := ParseVersion(msg.RequestLine.Version)
		return false, 0, s.writeError(ctx, conn, nil, version, CodeOf(err))
	}

	persist, idle := persistence(req, s.cfg.KeepAlive)

	w := NewResponse()
	s.handle(ctx, w, req)

	switch {
	case !persist:
		w.Header().Set("connection", "close")
	case req.Version == HTTP10:
		w.Header().Set("connection", "keep-alive")
	}

	if _, err := w.writeTo(conn, req.Version, req.Method); err != nil {
		return false, 0, errors.Wrap(err, "write response")
	}

	return persist, idle, nil
}

// failAssembly answers a request that could not be assembled. Malformed input
// gets an error response, a peer that went away does not.
func (s *Server) failAssembly(ctx context.Context, conn net.Conn, asm *wire.Assembler, cycle int, err error) error {
	var nerr net.Error
	switch {
	case asm.Received() == 0 && errors.As(err, &nerr) && nerr.Timeout():
		return nil
	case cycle > 0 && asm.Received() == 0 && errors.Is(err, wire.ErrConnClosed):
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return nil
	case errors.Is(err, wire.ErrBodyTooLarge):
		s.logs.LogProtocolError(err)
		return s.writeError(ctx, conn, nil, HTTP11, CodeRequestEntityTooLarge)
	case errors.Is(err, wire.ErrConnClosed),
		errors.Is(err, wire.ErrMalformedHead),
		errors.Is(err, wire.ErrHeadTooLarge):
		s.logs.LogProtocolError(err)
		return s.writeError(ctx, conn, nil, HTTP11, CodeBadRequest)
	default:
		return err
	}
}

func (s *Server) writeError(ctx context.Context, conn io.Writer, r *Request, v Version, code Code) error {
	w := NewResponse()
	s.cfg.Errors.RenderError(ctx, w, r, code)
	w.Header().Set("connection", "close")

	if _, err := w.writeTo(conn, v, MethodGet); err != nil {
		return errors.Wrap(err, "write error response")
	}

	return nil
}

// handle produces the response for a constructed request: dispatching first,
// then static files, then the not found page.
func (s *Server) handle(ctx context.Context, w *Response, r *Request) {
	var dones []func(*Response)
	for _, o := range s.cfg.Observers {
		var done func(*Response)
		ctx, done = o.ObserveRequest(ctx, r)
		if done != nil {
			dones = append(dones, done)
		}
	}

	defer func() {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](w)
		}
	}()

	if _, err := s.router.Dispatch(ctx, w, r); err != nil {
		s.logs.LogHandlerPanic(err)
		s.cfg.Errors.RenderError(ctx, w, r, CodeOf(err))
		return
	}

	if w.HasBody() {
		return
	}

	matched, err := s.cfg.Static.Serve(ctx, s.cfg.Files, w, r)
	switch {
	case matched && errors.Is(err, ErrFileNotFound):
		s.cfg.Errors.RenderError(ctx, w, r, CodeNotFound)
		return
	case matched && err != nil:
		s.logs.LogConnError(errors.Wrap(err, "serve static file"))
		s.cfg.Errors.RenderError(ctx, w, r, CodeInternalServerError)
		return
	case matched:
		return
	}

	s.cfg.Errors.RenderError(ctx, w, r, CodeNotFound)
}
