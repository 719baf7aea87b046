// Package request builds HTTP/1.1 requests into a caller-supplied request
// arena: the request line, the two fixed headers the library emits on the
// caller's behalf, and any further caller-appended headers.
package request

import (
	"fmt"
	"strings"

	"github.com/foehnlabs/embedhttps/pkg/arena"
	"github.com/foehnlabs/embedhttps/pkg/constants"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
	"github.com/foehnlabs/embedhttps/pkg/response"
)

// reservedHeaders is the set of header names the library emits itself and
// refuses via AddHeader.
var reservedHeaders = []string{"Connection", "User-Agent", "Host", "Content-Length"}

// ConnectionInfo describes how to reach a server for an implicit connect
// triggered by SendSync. It is opaque to the request builder beyond being
// carried through to the connection package.
type ConnectionInfo interface{}

// Info describes a request to initialize: method, path, host, the
// optional body, and the connection info used for an implicit connect.
type Info struct {
	Method         string // "GET" or "HEAD"
	Path           string
	Host           string
	Body           []byte
	ConnectionInfo ConnectionInfo
}

// Request is the initialized request control: the arena holding the
// request line and header block, the paired response control, and the
// fields send-sync needs.
type Request struct {
	Arena          *arena.RequestArena
	Method         string
	Body           []byte
	ConnectionInfo ConnectionInfo

	// PairedResponse is wired up by InitializeRequest: it wires the paired
	// response control into the response arena.
	PairedResponse *response.Response

	// BoundConnection is set by send-sync once a connection is chosen.
	BoundConnection any
}

// InitializeRequest takes arenas already checked against their minimums by
// arena.NewRequestArena/NewResponseArena (it rejects only nil arenas),
// writes the request line and the User-Agent/Host headers, and wires the
// paired response control into respArena.
func InitializeRequest(info Info, reqArena *arena.RequestArena, respArena *arena.ResponseArena) (*Request, error) {
	if reqArena == nil || respArena == nil {
		return nil, ehErrors.NewInvalidParameter("initialize-request", "nil request or response arena")
	}
	if info.Method != "GET" && info.Method != "HEAD" {
		return nil, ehErrors.NewInvalidParameter("initialize-request", "method must be GET or HEAD")
	}
	if info.Path == "" || info.Host == "" {
		return nil, ehErrors.NewInvalidParameter("initialize-request", "path and host are required")
	}
	if len(info.Host) > constants.MaxHostNameLength {
		return nil, ehErrors.NewInvalidParameter("initialize-request", "host name too long")
	}
	if len(info.Body) > constants.MaxContentLength {
		return nil, ehErrors.NewInvalidParameter("initialize-request", "request body exceeds max content length")
	}

	requestLine := fmt.Sprintf("%s %s HTTP/1.1\r\n", info.Method, info.Path)
	if err := reqArena.Write("initialize-request", []byte(requestLine)); err != nil {
		return nil, err
	}

	if err := appendHeader(reqArena, "User-Agent", constants.DefaultUserAgent); err != nil {
		return nil, err
	}
	if err := appendHeader(reqArena, "Host", info.Host); err != nil {
		return nil, err
	}

	return &Request{
		Arena:          reqArena,
		Method:         info.Method,
		Body:           info.Body,
		ConnectionInfo: info.ConnectionInfo,
		PairedResponse: response.New(respArena, info.Method),
	}, nil
}

// AddHeader appends "<name>: <value>\r\n" to the request's header block.
// Reserved names are rejected with INVALID-PARAMETER regardless of case; a
// longer name that merely shares a reserved prefix is not reserved.
func (r *Request) AddHeader(name, value string) error {
	if name == "" {
		return ehErrors.NewInvalidParameter("add-header", "empty header name")
	}
	if isReserved(name) {
		return ehErrors.NewInvalidParameter("add-header", fmt.Sprintf("%q is a reserved header", name))
	}
	return appendHeader(r.Arena, name, value)
}

// isReserved compares name against each reserved name using the maximum
// of the two lengths as the effective compare length: this is exact,
// case-insensitive equality, so "host" is reserved while a longer header
// that only shares a reserved prefix (e.g. "Host-Override") is not.
func isReserved(name string) bool {
	for _, reserved := range reservedHeaders {
		if len(name) == len(reserved) && strings.EqualFold(name, reserved) {
			return true
		}
	}
	return false
}

// appendHeader is the header-append primitive: computes needed capacity,
// reserves room for the terminating empty line, writes the header, and
// advances the cursor by exactly the bytes written.
func appendHeader(a *arena.RequestArena, name, value string) error {
	line := fmt.Sprintf("%s: %s\r\n", name, value)
	needed := len(line) + len("\r\n")
	if a.Avail() < needed {
		return ehErrors.NewInsufficientMemory("add-header", "not enough room for header plus terminator")
	}
	return a.Write("add-header", []byte(line))
}
