// Package arena implements the caller-supplied, fixed-size memory regions
// every other package borrows for the duration of a connection, request,
// or response: no internal growth, no reallocation, overflow is a typed
// error. Each arena wraps a slice the caller already owns; the library
// never allocates on the hot path.
package arena

import (
	"github.com/foehnlabs/embedhttps/pkg/constants"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
)

// Fixed strings whose lengths feed the minimum-size constants below.
// These mirror the strings InitializeRequest emits, with the path taken as
// "/" and the host value left empty (longer paths and any host are
// variable-length and are not part of the minimum). The request line is
// sized against "CONNECT", the longest standard HTTP method name, so
// RequestMin holds regardless of which method a caller actually sends.
const (
	requestLineSkeleton = "CONNECT / HTTP/1.1\r\n"
	userAgentSkeleton   = "User-Agent: " + constants.DefaultUserAgent + "\r\n"
	hostSkeleton        = "Host: \r\n"
)

// Control sizes. A systems-language implementation lays these out as the
// struct header at the arena's offset 0; in Go there is no pointer
// arithmetic to replicate, so these are accounting constants only, kept
// so each minimum is still computed as control size plus fixed text.
const (
	connectionControlSize = 96
	requestControlSize    = 80
	responseControlSize   = 96
)

// Minimum arena sizes: each is the fixed control-block size plus, for the
// request arena, the library's own skeleton bytes (request line,
// User-Agent/Host headers).
const (
	ConnectionMin = connectionControlSize

	RequestMin = requestControlSize + len(requestLineSkeleton) + len(userAgentSkeleton) + len(hostSkeleton)

	ResponseMin = responseControlSize
)

// textArena is a caller-owned byte region with a monotonic write cursor.
// start <= cur <= end holds after every operation; Start/Cur/End are
// offsets into Bytes, standing in for the original's pointer-triple
// layout over raw memory.
type textArena struct {
	buf   []byte
	start int
	cur   int
	end   int
}

func newTextArena(buf []byte) *textArena {
	return &textArena{buf: buf, start: 0, cur: 0, end: len(buf)}
}

// Bytes returns the written prefix [start, cur).
func (a *textArena) Bytes() []byte {
	return a.buf[a.start:a.cur]
}

// Remaining returns the unwritten suffix [cur, end).
func (a *textArena) Remaining() []byte {
	return a.buf[a.cur:a.end]
}

func (a *textArena) Len() int {
	return a.cur - a.start
}

func (a *textArena) Cap() int {
	return a.end - a.start
}

func (a *textArena) Avail() int {
	return a.end - a.cur
}

func (a *textArena) Cur() int { return a.cur }
func (a *textArena) End() int { return a.end }

// Reset rewinds the cursor to the start, leaving the underlying bytes
// untouched until the next write overwrites them.
func (a *textArena) Reset() {
	a.cur = a.start
}

// Write appends p starting at cur, failing INSUFFICIENT-MEMORY without
// mutating the arena if it would overrun end. op names the caller-facing
// operation for error reporting.
func (a *textArena) Write(op string, p []byte) error {
	if a.cur+len(p) > a.end {
		return ehErrors.NewInsufficientMemory(op, "arena too small for write")
	}
	copy(a.buf[a.cur:a.cur+len(p)], p)
	a.cur += len(p)
	return nil
}

// Advance bumps the cursor by n bytes without copying, for callers that
// wrote directly into Remaining() themselves (e.g. a transport.Receive
// call landing bytes straight into the arena).
func (a *textArena) Advance(n int) {
	a.cur += n
}

// ConnectionArena is control-only; it has no text region. It exists so
// connect() can validate the caller's buffer size uniformly with the other
// two arena shapes.
type ConnectionArena struct {
	buf []byte
}

// NewConnectionArena validates buf against ConnectionMin and wraps it.
func NewConnectionArena(buf []byte) (*ConnectionArena, error) {
	if len(buf) < ConnectionMin {
		return nil, ehErrors.NewInsufficientMemory("connect", "connection arena smaller than connection-min")
	}
	return &ConnectionArena{buf: buf}, nil
}

// RequestArena accumulates the request line and header block.
type RequestArena struct {
	*textArena
}

// NewRequestArena validates buf against RequestMin and wraps it.
func NewRequestArena(buf []byte) (*RequestArena, error) {
	if len(buf) < RequestMin {
		return nil, ehErrors.NewInsufficientMemory("initialize-request", "request arena smaller than request-min")
	}
	return &RequestArena{textArena: newTextArena(buf)}, nil
}

// ResponseArena accumulates response header bytes in one region and,
// optionally, response body bytes in a second, independently sized region.
// bodyBuf may be nil, meaning the caller supplied no body region.
type ResponseArena struct {
	Headers *textArena
	Body    *textArena // nil if the caller supplied no body region
}

// NewResponseArena validates headerBuf against ResponseMin and wraps both
// regions. bodyBuf may be nil or empty to mean "expect no body region".
func NewResponseArena(headerBuf, bodyBuf []byte) (*ResponseArena, error) {
	if len(headerBuf) < ResponseMin {
		return nil, ehErrors.NewInsufficientMemory("initialize-request", "response arena smaller than response-min")
	}
	ra := &ResponseArena{Headers: newTextArena(headerBuf)}
	if len(bodyBuf) > 0 {
		ra.Body = newTextArena(bodyBuf)
	}
	return ra, nil
}

// Reset rewinds both regions so the response can be reused for the next
// request on the same arena: a response is populated during send-sync and
// queryable until the caller reuses its arena.
func (ra *ResponseArena) Reset() {
	ra.Headers.Reset()
	if ra.Body != nil {
		ra.Body.Reset()
	}
}
