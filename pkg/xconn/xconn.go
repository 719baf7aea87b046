// Package xconn implements the Connection control block: the transport
// instance, the at-most-one-in-flight-request usage semaphore, and the
// two-semaphore receive-ready rendezvous between the transport's callback
// goroutine and the request-owning task.
//
// The binary semaphores are rendered as capacity-1 channels carrying a
// single token (see DESIGN.md).
package xconn

import (
	"context"
	"time"

	"github.com/foehnlabs/embedhttps/pkg/arena"
	"github.com/foehnlabs/embedhttps/pkg/constants"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
	"github.com/foehnlabs/embedhttps/pkg/transport"
)

// Logger is the optional collaborator the few "log but don't fail" spots
// in send-sync's cleanup step report through. Its default is a no-op.
type Logger interface {
	Logf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Logf(string, ...any) {}

// Info describes how to reach a server for an explicit or implicit
// connect.
type Info struct {
	Host          string
	Port          int
	IsTLS         bool
	NonPersistent bool
	ResponseWait  time.Duration
	Credentials   *transport.Credentials
}

// binarySemaphore is a single-slot token, built on a capacity-1 channel.
type binarySemaphore chan struct{}

func newBinarySemaphore(initial bool) binarySemaphore {
	ch := make(binarySemaphore, 1)
	if initial {
		ch <- struct{}{}
	}
	return ch
}

func (s binarySemaphore) post() {
	select {
	case s <- struct{}{}:
	default:
		// already posted; a binary semaphore has max count 1.
	}
}

func (s binarySemaphore) wait(ctx context.Context) error {
	select {
	case <-s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s binarySemaphore) waitTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.wait(ctx)
}

// Connection owns the transport instance and the three rendezvous
// primitives.
type Connection struct {
	arena *arena.ConnectionArena

	transportFactory transport.Transport
	instance         transport.Instance

	Connected     bool
	NonPersistent bool
	ResponseWait  time.Duration

	usage    binarySemaphore
	rxStart  binarySemaphore
	rxFinish binarySemaphore

	log Logger
}

// SetLogger installs a non-default logging collaborator.
func (c *Connection) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	c.log = l
}

// Logf reports through the installed logging collaborator; the send-sync
// cleanup path uses it for the log-but-don't-fail cases.
func (c *Connection) Logf(format string, args ...any) {
	c.log.Logf(format, args...)
}

// Connect validates the connection arena, creates the transport instance,
// installs the receive-ready callback, and creates the three semaphores.
// On any failure after a successful transport create, the transport is
// closed and no semaphores are left dangling.
func Connect(connArena []byte, t transport.Transport, info Info) (*Connection, error) {
	ca, err := arena.NewConnectionArena(connArena)
	if err != nil {
		return nil, err
	}

	responseWait := info.ResponseWait
	if responseWait <= 0 {
		responseWait = constants.DefaultResponseWait
	}

	server := transport.ServerInfo{Host: info.Host, Port: info.Port, IsTLS: info.IsTLS}
	instance, err := t.Create(context.Background(), server, info.Credentials)
	if err != nil {
		return nil, ehErrors.NewConnectionError("connect", "transport create failed", err)
	}

	c := &Connection{
		arena:            ca,
		transportFactory: t,
		instance:         instance,
		Connected:        true,
		NonPersistent:    info.NonPersistent,
		ResponseWait:     responseWait,
		usage:            newBinarySemaphore(true),
		rxStart:          newBinarySemaphore(false),
		rxFinish:         newBinarySemaphore(false),
		log:              noopLogger{},
	}

	if err := instance.SetReceiveCallback(c.onReceiveReady); err != nil {
		instance.Close()
		return nil, ehErrors.NewConnectionError("connect", "set-receive-callback failed", err)
	}

	return c, nil
}

// onReceiveReady is invoked by the transport's pump goroutine whenever
// bytes are available. It inverts control so the request-owning task,
// not the transport's own goroutine, performs the reads: post rx-start,
// then block on rx-finish until the request task is done reading.
func (c *Connection) onReceiveReady() {
	c.rxStart.post()
	_ = c.rxFinish.wait(context.Background())
}

// AcquireUsage blocks until the usage semaphore is free, bounded by
// MaxConnUsageWait, returning BUSY on timeout.
func (c *Connection) AcquireUsage() error {
	if err := c.usage.waitTimeout(constants.MaxConnUsageWait); err != nil {
		return ehErrors.NewBusy("send-sync", "timed out acquiring connection usage")
	}
	return nil
}

// ReleaseUsage releases the connection for the next request.
func (c *Connection) ReleaseUsage() {
	c.usage.post()
}

// AwaitReceiveReady blocks on rx-start bounded by the connection's
// response-wait timeout.
func (c *Connection) AwaitReceiveReady() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.ResponseWait)
	defer cancel()
	if err := c.rxStart.wait(ctx); err != nil {
		return ehErrors.NewTimeoutError("send-sync", "timed out waiting for rx-start")
	}
	return nil
}

// SignalReceiveFinished posts rx-finish, releasing the transport's
// pump goroutine to resume waiting for the next receive-ready event.
func (c *Connection) SignalReceiveFinished() {
	c.rxFinish.post()
}

func (c *Connection) Instance() transport.Instance {
	return c.instance
}

// Disconnect closes the transport and marks the connection disconnected.
// Idempotent: calling it on an already-disconnected connection returns
// nil.
func (c *Connection) Disconnect() error {
	if !c.Connected {
		return nil
	}
	c.Connected = false
	if err := c.instance.Close(); err != nil {
		c.log.Logf("disconnect: transport close failed: %v", err)
		return ehErrors.NewNetworkError("disconnect", "transport close failed", err)
	}
	return nil
}
