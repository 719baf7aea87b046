// Package embedhttps is the public facade for the embedded HTTPS client
// library: a thin, one-import wrapper over the subpackages that do the
// actual work (pkg/arena, pkg/xconn, pkg/request, pkg/response,
// pkg/client, pkg/transport), re-exporting their types under one name as
// an arena-based synchronous HTTPS client facade.
package embedhttps

import (
	"context"
	"sync"

	"github.com/foehnlabs/embedhttps/pkg/arena"
	"github.com/foehnlabs/embedhttps/pkg/client"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
	"github.com/foehnlabs/embedhttps/pkg/request"
	"github.com/foehnlabs/embedhttps/pkg/response"
	"github.com/foehnlabs/embedhttps/pkg/transport"
	"github.com/foehnlabs/embedhttps/pkg/xconn"
)

// Re-export subpackage types so callers need only this one import.
type (
	Connection     = xconn.Connection
	ConnectionInfo = xconn.Info
	Logger         = xconn.Logger

	Request     = request.Request
	RequestInfo = request.Info

	Response = response.Response

	Credentials = transport.Credentials
	ProxyConfig = transport.ProxyConfig
	ServerInfo  = transport.ServerInfo
	Transport   = transport.Transport
	Instance    = transport.Instance

	// ConnectInfo is the concrete type a caller stores in RequestInfo's
	// ConnectionInfo field to enable SendSync's implicit-connect path.
	ConnectInfo = client.ConnectInfo
)

// Minimum arena sizes for the three caller-supplied buffers.
const (
	RequestMin    = arena.RequestMin
	ResponseMin   = arena.ResponseMin
	ConnectionMin = arena.ConnectionMin
)

var (
	initMu      sync.Mutex
	initialized bool
)

// Init marks the library initialized. The parser dispatches on each
// response's processing mode, so there is no process-wide callback table
// and Init installs no shared state. One-shot and not thread-safe: call it
// once, before any other entry point, from a single goroutine. Calling it
// twice without an intervening Deinit is a programmer error and returns
// INTERNAL-ERROR.
func Init() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		return ehErrors.NewInternalError("init", "already initialized")
	}
	initialized = true
	return nil
}

// Deinit clears the initialized mark Init set. Not thread-safe; the caller
// must disconnect every connection first.
func Deinit() error {
	initMu.Lock()
	defer initMu.Unlock()
	if !initialized {
		return ehErrors.NewInternalError("deinit", "not initialized")
	}
	initialized = false
	return nil
}

// Connect validates connArenaBuf against ConnectionMin, creates a
// transport instance via t (pass nil for the library's default TCP/TLS
// transport), and wires up the receive-ready rendezvous. See pkg/xconn.Connect.
func Connect(connArenaBuf []byte, t Transport, info ConnectionInfo) (*Connection, error) {
	if t == nil {
		t = transport.New()
	}
	return xconn.Connect(connArenaBuf, t, info)
}

// Disconnect closes conn's transport and marks it disconnected. Idempotent
// on an already-disconnected connection.
func Disconnect(conn *Connection) error {
	if conn == nil {
		return ehErrors.NewInvalidParameter("disconnect", "nil connection")
	}
	return conn.Disconnect()
}

// InitializeRequest composes the request line and the fixed User-Agent/
// Host headers into reqArenaBuf, and wires a paired Response into
// respHeaderBuf/respBodyBuf (respBodyBuf may be nil for a HEAD-only or
// headers-only request). See pkg/request.InitializeRequest.
func InitializeRequest(info RequestInfo, reqArenaBuf, respHeaderBuf, respBodyBuf []byte) (*Request, error) {
	reqArena, err := arena.NewRequestArena(reqArenaBuf)
	if err != nil {
		return nil, err
	}
	respArena, err := arena.NewResponseArena(respHeaderBuf, respBodyBuf)
	if err != nil {
		return nil, err
	}
	return request.InitializeRequest(info, reqArena, respArena)
}

// AddHeader appends "<name>: <value>\r\n" to req's header block. Rejects
// the reserved set {Connection, User-Agent, Host, Content-Length}.
func AddHeader(req *Request, name, value string) error {
	if req == nil {
		return ehErrors.NewInvalidParameter("add-header", "nil request")
	}
	return req.AddHeader(name, value)
}

// SendSync performs the full round-trip for req: optional implicit
// connect (when *connCell is empty or disconnected and req carries a
// ConnectInfo), acquire-send-await-receive-flush-release. See
// pkg/client.SendSync for the step-by-step contract.
func SendSync(ctx context.Context, connCell **Connection, req *Request) (*Response, error) {
	return client.SendSync(ctx, connCell, req)
}

// ReadResponseStatus returns resp's decoded status code, or NOT-FOUND if
// the parser never observed a status line.
func ReadResponseStatus(resp *Response) (uint16, error) {
	if resp == nil {
		return 0, ehErrors.NewInvalidParameter("read-response-status", "nil response")
	}
	return resp.ReadResponseStatus()
}

// ReadContentLength returns resp's decoded Content-Length, or NOT-FOUND if
// it is zero (absent header, chunked transfer, or an explicit zero).
func ReadContentLength(resp *Response) (uint32, error) {
	if resp == nil {
		return 0, ehErrors.NewInvalidParameter("read-content-length", "nil response")
	}
	return resp.ReadContentLength()
}

// ReadHeader re-walks resp's stored header bytes to find name, copying its
// value into out. Returns INSUFFICIENT-MEMORY if the value is longer than
// out, NOT-FOUND if name was never observed.
func ReadHeader(resp *Response, name string, out []byte) (int, error) {
	if resp == nil {
		return 0, ehErrors.NewInvalidParameter("read-header", "nil response")
	}
	return resp.ReadHeader(name, out)
}
