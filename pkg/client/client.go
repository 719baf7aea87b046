// Package client implements the synchronous request driver: one blocking
// call that sends a request, waits for the receive-ready rendezvous,
// parses the response into the caller's arenas, and always runs its
// cleanup block regardless of where the request failed.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/foehnlabs/embedhttps/pkg/constants"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
	"github.com/foehnlabs/embedhttps/pkg/httpparser"
	"github.com/foehnlabs/embedhttps/pkg/request"
	"github.com/foehnlabs/embedhttps/pkg/response"
	"github.com/foehnlabs/embedhttps/pkg/transport"
	"github.com/foehnlabs/embedhttps/pkg/xconn"
)

// ConnectInfo is the concrete type a caller stores in request.Info's
// ConnectionInfo field to make the implicit-connect path (send-sync step 2)
// available: the connection arena and transport send-sync needs to run the
// connect sequence itself when handed an empty or disconnected connection
// cell. Transport may be left nil to use the library's default TCP/TLS
// transport.
type ConnectInfo struct {
	ConnArena []byte
	Transport transport.Transport
	Info      xconn.Info
}

// SendSync implements the full round-trip: optional implicit connect,
// binding the request/response to the chosen connection, acquiring the
// connection's usage semaphore, sending headers/finalization-block/body,
// awaiting the receive-ready rendezvous, receiving headers and body into
// the caller's arenas, and a cleanup block that always runs. Network and
// parser errors during send or receive jump straight to cleanup but
// preserve the first error seen, matching the source's failure semantics.
func SendSync(ctx context.Context, connCell **xconn.Connection, req *request.Request) (*response.Response, error) {
	if ctx == nil || connCell == nil || req == nil {
		return nil, ehErrors.NewInvalidParameter("send-sync", "nil context, connection cell, or request")
	}

	if *connCell == nil || !(*connCell).Connected {
		conn, err := implicitConnect(req)
		if err != nil {
			return nil, err
		}
		*connCell = conn
	}

	conn := *connCell
	resp := req.PairedResponse

	// Step 3: bind request and response to the chosen connection.
	req.BoundConnection = conn
	resp.BoundConnection = conn

	// Step 4: acquire usage. BUSY returns without attempting the request;
	// nothing was started, so there is no cleanup to run.
	if err := conn.AcquireUsage(); err != nil {
		return resp, err
	}

	var firstErr error
	setErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Step 5: send headers.
	if firstErr == nil {
		setErr(sendAll(conn, req.Arena.Bytes()))
	}

	// Step 6: send finalization block (Connection line, optional
	// Content-Length, terminating blank line).
	if firstErr == nil {
		setErr(sendAll(conn, buildFinalizationBlock(conn.NonPersistent, len(req.Body))))
	}

	// Step 7: send body, if any.
	if firstErr == nil && len(req.Body) > 0 {
		setErr(sendAll(conn, req.Body))
	}

	// Step 8: await the receive-ready rendezvous. The transport's pump
	// goroutine only yields the connection for reading once rx-start has
	// been observed, so every receive below - the residual flush included -
	// is gated on rxGranted.
	rxGranted := false
	if firstErr == nil {
		if err := conn.AwaitReceiveReady(); err != nil {
			setErr(err)
		} else {
			rxGranted = true
		}
	}

	// leftover carries wire bytes already read off the transport but not
	// yet consumed by the parser: body bytes resident past the header
	// terminator, or the tail of a read that outran the body arena. The
	// residual flush finishes parsing them before touching the network.
	var leftover []byte

	if rxGranted {
		resp.Parser.Reset(resp.Method)
		resp.Parser.SetMode(httpparser.ModeFillingHeaderArena)

		lo, err := receiveHeaders(ctx, conn, resp)
		leftover = lo
		setErr(err)

		if firstErr == nil && resp.Parser.State() >= httpparser.StateHeadersComplete {
			if resp.Arena.Body != nil && resp.Parser.State() < httpparser.StateBodyComplete {
				resp.Parser.SetMode(httpparser.ModeFillingBodyArena)
				lb, err := receiveBody(ctx, conn, resp)
				if len(lb) > 0 {
					leftover = lb
				}
				setErr(err)
			}
			if firstErr == nil && resp.Arena.Body != nil && resp.Parser.State() < httpparser.StateBodyComplete {
				setErr(ehErrors.NewMessageTooLarge("send-sync", "body arena filled before body-complete"))
			}
		}
	}

	// Step 13: cleanup, always executed.
	if rxGranted {
		if flushErr := flushResidual(ctx, conn, resp, leftover); flushErr != nil {
			conn.Logf("send-sync: residual flush failed: %v", flushErr)
			// A primary error, if any, is never masked by a flush-time
			// error; with no primary error the flush error becomes the
			// result.
			if firstErr == nil {
				firstErr = flushErr
			}
		}
	}

	if conn.NonPersistent {
		_ = conn.Disconnect()
	}

	resp.Parser.SetMode(httpparser.ModeFinished)
	if rxGranted {
		conn.SignalReceiveFinished()
	}
	conn.ReleaseUsage()

	return resp, firstErr
}

func implicitConnect(req *request.Request) (*xconn.Connection, error) {
	ci, ok := req.ConnectionInfo.(*ConnectInfo)
	if !ok || ci == nil {
		return nil, ehErrors.NewConnectionError("send-sync", "no connection and no connection info to connect implicitly", nil)
	}
	t := ci.Transport
	if t == nil {
		t = transport.New()
	}
	return xconn.Connect(ci.ConnArena, t, ci.Info)
}

// sendAll loops transport.Send until p is fully written, turning short
// writes into a loop.
func sendAll(conn *xconn.Connection, p []byte) error {
	for len(p) > 0 {
		n, err := conn.Instance().Send(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return ehErrors.NewNetworkError("send-sync", "transport send returned zero without error", nil)
		}
		p = p[n:]
	}
	return nil
}

// buildFinalizationBlock synthesizes the Connection header, the optional
// Content-Length header, and the blank line terminating the header block.
// Sized for the worst case (Connection line + Content-Length line +
// terminator); the source's unused 27-byte buffer is not reproduced, per
// the open question recorded in DESIGN.md.
func buildFinalizationBlock(nonPersistent bool, bodyLen int) []byte {
	buf := make([]byte, 0, 64)
	if nonPersistent {
		buf = append(buf, constants.ConnectionCloseLine...)
	} else {
		buf = append(buf, constants.ConnectionKeepAliveLine...)
	}
	if bodyLen > 0 {
		buf = append(buf, fmt.Sprintf("Content-Length: %d\r\n\r\n", bodyLen)...)
	} else {
		buf = append(buf, "\r\n"...)
	}
	return buf
}

// receiveHeaders implements step 9: read into the header arena's remaining
// capacity and feed the parser until headers complete, the arena fills, or
// the transport returns an error. Body bytes physically resident past the
// header terminator are relocated into the body arena, per the
// only-if-source-and-destination-differ body-copy rule. Bytes already off
// the wire but not consumed by the parser (no body arena, or the body
// arena filled mid-relocation) are returned for the residual flush to
// finish - feeding them before the body-arena-overflow verdict in step 12
// would let the drain disguise an oversized body as a completed one.
func receiveHeaders(ctx context.Context, conn *xconn.Connection, resp *response.Response) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, conn.ResponseWait)
	defer cancel()

	headers := resp.Arena.Headers
	var leftover []byte
	for headers.Avail() > 0 && resp.Parser.State() < httpparser.StateHeadersComplete {
		remaining := headers.Remaining()
		n, err := conn.Instance().Receive(rctx, remaining)
		if n > 0 {
			chunk := remaining[:n]
			result, perr := resp.Parser.Feed(chunk)
			if perr != nil {
				return leftover, perr
			}
			headers.Advance(result.Consumed)

			if len(result.Overflow) > 0 {
				if resp.Arena.Body != nil {
					resp.Parser.SetMode(httpparser.ModeFillingBodyArena)
					fr, perr := resp.Parser.FeedBody(result.Overflow, resp.Arena.Body.Remaining())
					if perr != nil {
						return leftover, perr
					}
					resp.Arena.Body.Advance(fr.BodyWritten)
					if fr.Consumed < len(result.Overflow) {
						leftover = result.Overflow[fr.Consumed:]
					}
				} else {
					leftover = result.Overflow
				}
			}
		}
		if err != nil {
			return leftover, err
		}
	}
	return leftover, nil
}

// receiveBody implements step 11: read into the body arena's remaining
// capacity and feed the parser until body-complete, the arena fills, or the
// transport returns an error. A clean close on an identity-encoded body
// with no declared length is the RFC-sanctioned end-of-body signal, not a
// failure.
//
// A chunked body cannot be read directly into the body arena's remaining
// capacity the way identity/content-length bodies are: the wire carries
// chunk-size lines and inter-chunk CRLFs interleaved with content, and that
// framing must never be copied into the arena. Chunked reads land in a
// scratch buffer instead; FeedBody decodes from there into the arena,
// reporting how many content bytes it actually wrote.
func receiveBody(ctx context.Context, conn *xconn.Connection, resp *response.Response) ([]byte, error) {
	rctx, cancel := context.WithTimeout(ctx, conn.ResponseWait)
	defer cancel()

	body := resp.Arena.Body

	if resp.Parser.IsChunked() {
		scratch := make([]byte, constants.MaxChunkReadBufferSize)
		for body.Avail() > 0 && resp.Parser.State() < httpparser.StateBodyComplete {
			n, err := conn.Instance().Receive(rctx, scratch)
			if n > 0 {
				result, perr := resp.Parser.FeedBody(scratch[:n], body.Remaining())
				if perr != nil {
					return nil, perr
				}
				body.Advance(result.BodyWritten)
				if result.Consumed < n {
					// The decode halted at the arena's capacity; the rest
					// of this read is residual for the flush to finish.
					return scratch[result.Consumed:n], nil
				}
			}
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	for body.Avail() > 0 && resp.Parser.State() < httpparser.StateBodyComplete {
		remaining := body.Remaining()
		n, err := conn.Instance().Receive(rctx, remaining)
		if n > 0 {
			chunk := remaining[:n]
			result, perr := resp.Parser.FeedBody(chunk, chunk)
			if perr != nil {
				return nil, perr
			}
			body.Advance(result.BodyWritten)
		}
		if err != nil {
			if isCleanClose(err) && !resp.Parser.HasLength() {
				resp.Parser.MarkBodyComplete()
				return nil, nil
			}
			return nil, err
		}
	}
	return nil, nil
}

// flushResidual implements step 13a: drain whatever the server still has
// to say after the caller's arenas stopped capturing it, so the connection
// is left in a clean state for reuse. leftover is wire bytes already read
// but not yet parsed; they are consumed first, before touching the network.
// Timeouts and clean closes during flush are swallowed; other errors are
// returned as the flush status.
func flushResidual(ctx context.Context, conn *xconn.Connection, resp *response.Response, leftover []byte) error {
	if resp.Parser.State() >= httpparser.StateBodyComplete {
		return nil
	}

	// drainBody walks body wire bytes through the decoder with the bytes
	// themselves as the destination: the decoded content is discarded, only
	// the parser's progress toward body-complete matters here.
	drainBody := func(p []byte) error {
		for len(p) > 0 && resp.Parser.State() < httpparser.StateBodyComplete {
			fr, perr := resp.Parser.FeedBody(p, p)
			if perr != nil {
				return perr
			}
			if fr.Consumed == 0 {
				return nil
			}
			p = p[fr.Consumed:]
		}
		return nil
	}

	if len(leftover) > 0 && resp.Parser.State() >= httpparser.StateHeadersComplete {
		resp.Parser.SetMode(httpparser.ModeFillingBodyArena)
		if err := drainBody(leftover); err != nil {
			return err
		}
	}

	rctx, cancel := context.WithTimeout(ctx, conn.ResponseWait)
	defer cancel()

	scratch := make([]byte, constants.MaxFlushBufferSize)
	for resp.Parser.State() < httpparser.StateBodyComplete {
		if resp.Parser.State() >= httpparser.StateHeadersComplete {
			resp.Parser.SetMode(httpparser.ModeFillingBodyArena)
		} else {
			resp.Parser.SetMode(httpparser.ModeFillingHeaderArena)
		}

		n, err := conn.Instance().Receive(rctx, scratch)
		if n > 0 {
			result, perr := resp.Parser.Feed(scratch[:n])
			if perr != nil {
				return perr
			}
			if len(result.Overflow) > 0 {
				// Headers finished mid-read; the rest of the read is body.
				resp.Parser.SetMode(httpparser.ModeFillingBodyArena)
				if perr := drainBody(result.Overflow); perr != nil {
					return perr
				}
			}
		}
		if err != nil {
			if isCleanClose(err) {
				resp.Parser.MarkBodyComplete()
				return nil
			}
			if ehErrors.IsTimeout(err) {
				// The server has nothing more to say; swallowed.
				return nil
			}
			return err
		}
	}
	return nil
}

func isCleanClose(err error) bool {
	return errors.Is(err, io.EOF)
}
