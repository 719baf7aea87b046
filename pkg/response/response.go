// Package response implements the response control: the header and body
// arenas, the embedded incremental parser, and the read-* lookup
// operations that re-walk the stored header bytes.
package response

import (
	"github.com/foehnlabs/embedhttps/pkg/arena"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
	"github.com/foehnlabs/embedhttps/pkg/httpparser"
)

// Response is the paired response control created as a side effect of
// initialize-request and populated during send-sync.
type Response struct {
	Arena  *arena.ResponseArena
	Parser httpparser.Parser
	Method string

	// BoundConnection is set by send-sync once a connection is chosen.
	BoundConnection any
}

// New wires a fresh response control to resArena, clearing status, content
// length, parser state, processing mode, and the lookup scratch.
func New(resArena *arena.ResponseArena, method string) *Response {
	r := &Response{Arena: resArena, Method: method}
	r.Parser.Reset(method)
	return r
}

// ReadResponseStatus returns the decoded status code or NOT-FOUND if the
// parser never observed a status line.
func (r *Response) ReadResponseStatus() (uint16, error) {
	code := r.Parser.StatusCode()
	if code == 0 {
		return 0, ehErrors.NewNotFound("read-response-status", "status line not observed")
	}
	return code, nil
}

// ReadContentLength returns the decoded Content-Length or NOT-FOUND if it
// is zero (absent header, chunked transfer, or an explicit zero).
func (r *Response) ReadContentLength() (uint32, error) {
	length := r.Parser.ContentLength()
	if length == 0 {
		return 0, ehErrors.NewNotFound("read-content-length", "content-length not observed")
	}
	return length, nil
}

// ReadHeader re-feeds the stored header bytes through the parser in
// search mode to locate name. Name matching is exact-length (see
// DESIGN.md), so "Content" will not match a stored "Content-Type" header.
func (r *Response) ReadHeader(name string, out []byte) (int, error) {
	savedMode := r.Parser.Mode()
	r.Parser.StartHeaderSearch(name)

	if _, err := r.Parser.Feed(r.Arena.Headers.Bytes()); err != nil {
		r.Parser.SetMode(savedMode)
		return 0, err
	}
	r.Parser.SetMode(savedMode)

	if !r.Parser.SearchFound() {
		return 0, ehErrors.NewNotFound("read-header", "header not found")
	}

	value := r.Parser.SearchValue()
	if len(value) > len(out) {
		return 0, ehErrors.NewInsufficientMemory("read-header", "out buffer shorter than header value")
	}
	copy(out, value)
	return len(value), nil
}
