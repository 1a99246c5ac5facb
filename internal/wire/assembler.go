// Package wire assembles HTTP/1.x request messages from a byte stream.
package wire

import (
	"bytes"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultChunkSize is the size of every bounded read while looking for the end of the head.
	DefaultChunkSize = 4096
	// DefaultMaxHeadBytes bounds the head size.
	DefaultMaxHeadBytes = 1 << 20
	// DefaultMaxBodyBytes bounds the declared content length.
	DefaultMaxBodyBytes = 32 << 20
)

var headEnd = []byte("\r\n\r\n")

var (
	// ErrConnClosed is returned when the stream ends before the head is complete.
	ErrConnClosed = errors.New("connection closed before end of head")
	// ErrMalformedHead is returned when the head cannot be decoded or parsed.
	ErrMalformedHead = errors.New("malformed request head")
	// ErrHeadTooLarge is returned when no end of head is found within the limit.
	ErrHeadTooLarge = errors.New("request head too large")
	// ErrBodyTooLarge is returned when the declared content length exceeds the limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// State of an Assembler.
type State uint8

const (
	ReadingHead State = iota
	ReadingBody
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case ReadingHead:
		return "reading-head"
	case ReadingBody:
		return "reading-body"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Message is a fully assembled request.
type Message struct {
	RequestLine RequestLine
	Fields      Fields
	Body        []byte
}

// Config for an Assembler. Zero fields take their defaults.
type Config struct {
	ChunkSize    int
	MaxHeadBytes int
	MaxBodyBytes int64
}

// Assembler reads exactly one request from r. Read-call boundaries are
// irrelevant: the head may arrive in any number of chunks.
type Assembler struct {
	r        io.Reader
	cfg      Config
	state    State
	received int
}

// NewAssembler inits an assembler for a single request.
func NewAssembler(r io.Reader, cfg Config) *Assembler {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxHeadBytes <= 0 {
		cfg.MaxHeadBytes = DefaultMaxHeadBytes
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return &Assembler{r: r, cfg: cfg}
}

// State returns the current state.
func (a *Assembler) State() State { return a.state }

// Received returns how many bytes were read from the stream so far.
func (a *Assembler) Received() int { return a.received }

// Assemble runs the state machine until Done or Failed. Errors that are not one
// of this package's sentinels originate from the underlying reader.
func (a *Assembler) Assemble() (*Message, error) {
	if a.state != ReadingHead {
		return nil, errors.Newf("assembler used in state %s", a.state)
	}

	msg, err := a.assemble()
	if err != nil {
		a.state = Failed
		return nil, err
	}

	a.state = Done
	return msg, nil
}

func (a *Assembler) assemble() (*Message, error) {
	head, remainder, err := a.readHead()
	if err != nil {
		return nil, err
	}

	line, fields, err := ParseHead(head)
	if err != nil {
		return nil, err
	}

	a.state = ReadingBody
	body, err := a.readBody(fields, remainder)
	if err != nil {
		return nil, err
	}

	return &Message{RequestLine: line, Fields: fields, Body: body}, nil
}

func (a *Assembler) readHead() (head, remainder []byte, err error) {
	var (
		data []byte
		buf  = make([]byte, a.cfg.ChunkSize)
	)

	for {
		n, rerr := a.r.Read(buf)
		if n > 0 {
			from := max(0, len(data)-len(headEnd)+1)
			data = append(data, buf[:n]...)
			a.received += n

			if i := bytes.Index(data[from:], headEnd); i >= 0 {
				i += from
				return data[:i], data[i+len(headEnd):], nil
			}

			if len(data) > a.cfg.MaxHeadBytes {
				return nil, nil, errors.Wrapf(ErrHeadTooLarge, "read %d bytes", len(data))
			}
		}

		switch {
		case rerr != nil && !errors.Is(rerr, io.EOF):
			return nil, nil, errors.Wrap(rerr, "read head")
		case n == 0:
			return nil, nil, errors.Wrapf(ErrConnClosed, "after %d bytes", len(data))
		}
	}
}

func (a *Assembler) readBody(fields Fields, remainder []byte) ([]byte, error) {
	want := ContentLength(fields)
	if want > a.cfg.MaxBodyBytes {
		return nil, errors.Wrapf(ErrBodyTooLarge, "content-length %d exceeds %d", want, a.cfg.MaxBodyBytes)
	}

	if want == 0 {
		return []byte{}, nil
	}

	if int64(len(remainder)) >= want {
		return remainder[:want], nil
	}

	missing := make([]byte, want-int64(len(remainder)))
	n, err := io.ReadFull(a.r, missing)
	a.received += n
	if err != nil {
		return nil, errors.Wrapf(err, "read %d missing body bytes", len(missing))
	}

	body := make([]byte, 0, want)
	body = append(body, remainder...)
	return append(body, missing...), nil
}

// ContentLength returns the declared body length. An absent or unparsable
// header counts as zero.
func ContentLength(fields Fields) int64 {
	v, ok := fields.Get("content-length")
	if !ok {
		return 0
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}

	return n
}
