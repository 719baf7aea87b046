// Package constants collects the compile-time configuration knobs named
// throughout the library: default timeouts, size limits, and the fixed
// strings the request builder and finalization block depend on.
package constants

import "time"

// Wire-level fixed strings. Sizes derived from these feed the arena
// minimum-size constants in pkg/arena.
const (
	DefaultUserAgent = "embedhttps/1.0"

	ConnectionKeepAliveLine = "Connection: keep-alive\r\n"
	ConnectionCloseLine     = "Connection: close\r\n"
)

// Timeouts and waits.
const (
	// DefaultResponseWait bounds the rx-start wait in send-sync when the
	// caller didn't configure an explicit connection timeout.
	DefaultResponseWait = 10 * time.Second

	// MaxConnUsageWait bounds how long send-sync waits to acquire a
	// connection's usage semaphore before returning BUSY.
	MaxConnUsageWait = 5 * time.Second

	// DefaultConnectTimeout bounds transport.Create's dial+handshake.
	DefaultConnectTimeout = 10 * time.Second
)

// Size limits.
const (
	// MaxALPNLength bounds a single ALPN protocol string accepted into
	// Credentials.ALPNProtocols.
	MaxALPNLength = 255

	// MaxHostNameLength bounds the Host header value InitializeRequest
	// accepts.
	MaxHostNameLength = 253

	// MaxFlushBufferSize sizes the scratch buffer send-sync's cleanup step
	// uses to drain residual response bytes after the caller's arenas are
	// full or parsing has otherwise stopped short of BODY-COMPLETE.
	MaxFlushBufferSize = 1024

	// MaxChunkReadBufferSize sizes the scratch buffer send-sync's body
	// receive step uses to read raw, still chunk-encoded wire bytes off
	// the transport before decoding into the caller's body arena; it must
	// not be conflated with the arena itself, since chunk-size lines and
	// inter-chunk CRLFs never land there.
	MaxChunkReadBufferSize = 1024

	// MaxContentLength bounds a request body length this library will
	// frame with an explicit Content-Length header.
	MaxContentLength = 1024 * 1024 * 1024 // 1GB, generous for an embedded client
)
