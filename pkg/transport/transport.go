// Package transport implements the pluggable byte-stream transport
// contract: create/set-receive-callback/send/receive/close. TCPTLS is
// the one concrete implementation this library ships: direct TCP
// optionally upgraded to TLS, optionally reached through a SOCKS5 proxy.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/foehnlabs/embedhttps/pkg/constants"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
	"github.com/foehnlabs/embedhttps/pkg/timing"
	"github.com/foehnlabs/embedhttps/pkg/tlsconfig"
	netproxy "golang.org/x/net/proxy"
)

// ServerInfo names the peer to connect to.
type ServerInfo struct {
	Host      string
	Port      int
	IsTLS     bool
	ConnectIP string // optional: bypass DNS resolution
}

// ProxyConfig configures an upstream SOCKS5 proxy (see DESIGN.md:
// HTTP-CONNECT and SOCKS4 are dropped as redundant).
type ProxyConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Credentials carries the fields a transport needs to establish TLS:
// root CA, client cert, private key, ALPN protocol list, SNI toggle,
// plus TLS version/cipher controls from pkg/tlsconfig and an optional
// SOCKS5 proxy.
type Credentials struct {
	RootCA        []byte
	ClientCert    []byte
	ClientCertKey []byte
	ALPNProtocols []string
	DisableSNI    bool
	SNI           string

	MinTLSVersion      uint16
	MaxTLSVersion      uint16
	CipherSuites       []uint16
	InsecureSkipVerify bool

	Proxy *ProxyConfig
}

// ConnectionMetadata is optional, ambient instrumentation surfaced
// alongside a connected Instance: connect-phase observability carried
// on every connection, independent of the request/response path.
type ConnectionMetadata struct {
	RemoteAddr     string
	TLSVersion     string
	TLSCipherSuite string
	NegotiatedALPN string
	Timing         timing.Metrics
}

// Instance is an opaque, connected transport endpoint.
type Instance interface {
	// SetReceiveCallback installs cb to be invoked from a dedicated
	// goroutine each time bytes are available to read, driving the
	// receive-ready rendezvous. Must be called at most once; cb is
	// expected to post rx-start and block on rx-finish, per pkg/xconn.
	SetReceiveCallback(cb func()) error

	// Send writes p in full or returns an error; net.Conn.Write already
	// has full-write-or-error semantics, so no short-write loop is needed
	// here.
	Send(p []byte) (int, error)

	// Receive returns whatever bytes are currently buffered, up to
	// len(p), blocking at most until ctx is done.
	Receive(ctx context.Context, p []byte) (int, error)

	Close() error

	Metadata() ConnectionMetadata
}

// Transport is the create() capability: the single entry point that turns
// a ServerInfo/Credentials pair into a connected Instance.
type Transport interface {
	Create(ctx context.Context, server ServerInfo, creds *Credentials) (Instance, error)
}

// TCPTLS is the production Transport: dial, optionally upgrade to TLS,
// optionally route through a SOCKS5 proxy. Connection pooling and the
// HTTP-CONNECT/SOCKS4 proxy paths are dropped (see DESIGN.md).
type TCPTLS struct {
	DialTimeout time.Duration
}

// New returns a TCPTLS transport using the library's default dial
// timeout.
func New() *TCPTLS {
	return &TCPTLS{DialTimeout: constants.DefaultConnectTimeout}
}

func (t *TCPTLS) Create(ctx context.Context, server ServerInfo, creds *Credentials) (Instance, error) {
	timer := timing.NewTimer()
	dialTimeout := t.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = constants.DefaultConnectTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	addr := net.JoinHostPort(server.Host, fmt.Sprintf("%d", server.Port))
	targetAddr := addr
	if server.ConnectIP != "" {
		targetAddr = net.JoinHostPort(server.ConnectIP, fmt.Sprintf("%d", server.Port))
	}

	timer.StartTCP()
	var conn net.Conn
	var err error
	if creds != nil && creds.Proxy != nil {
		conn, err = t.connectViaSOCKS5Proxy(creds.Proxy, targetAddr, dialTimeout)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(dialCtx, "tcp", targetAddr)
	}
	timer.EndTCP()
	if err != nil {
		return nil, ehErrors.NewConnectionError("create", "tcp dial failed", err)
	}

	metadata := ConnectionMetadata{RemoteAddr: addr}

	if server.IsTLS {
		timer.StartTLS()
		tlsConn, tlsErr := t.upgradeTLS(dialCtx, conn, server, creds, &metadata)
		timer.EndTLS()
		if tlsErr != nil {
			conn.Close()
			return nil, ehErrors.NewConnectionError("create", "tls handshake failed", tlsErr)
		}
		conn = tlsConn
	}

	metadata.Timing = timer.GetMetrics()

	return &tcpInstance{conn: conn, br: bufio.NewReader(conn), metadata: metadata}, nil
}

func (t *TCPTLS) connectViaSOCKS5Proxy(proxy *ProxyConfig, targetAddr string, timeout time.Duration) (net.Conn, error) {
	var auth *netproxy.Auth
	if proxy.Username != "" {
		auth = &netproxy.Auth{User: proxy.Username, Password: proxy.Password}
	}

	proxyAddr := net.JoinHostPort(proxy.Host, fmt.Sprintf("%d", proxy.Port))
	dialer, err := netproxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	conn, err := dialer.Dial("tcp", targetAddr)
	if err != nil {
		return nil, fmt.Errorf("SOCKS5 connection failed: %w", err)
	}
	return conn, nil
}

// upgradeTLS builds a tls.Config from creds and performs the handshake.
// Absent an explicit MinTLSVersion/CipherSuites override, it applies
// pkg/tlsconfig's ProfileSecure (TLS 1.2+) rather than hand-rolling the
// same min-version-to-cipher-suite mapping inline.
func (t *TCPTLS) upgradeTLS(ctx context.Context, conn net.Conn, server ServerInfo, creds *Credentials, metadata *ConnectionMetadata) (net.Conn, error) {
	tlsConfig := &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
	tlsconfig.ApplyVersionProfile(tlsConfig, tlsconfig.ProfileSecure)

	if creds != nil {
		tlsConfig.InsecureSkipVerify = creds.InsecureSkipVerify

		if len(creds.RootCA) > 0 {
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(creds.RootCA) {
				return nil, fmt.Errorf("failed to parse root CA certificate")
			}
			tlsConfig.RootCAs = pool
		}

		if len(creds.ALPNProtocols) > 0 {
			for _, proto := range creds.ALPNProtocols {
				if len(proto) == 0 || len(proto) > constants.MaxALPNLength {
					return nil, fmt.Errorf("invalid ALPN protocol name %q", proto)
				}
			}
			tlsConfig.NextProtos = creds.ALPNProtocols
		}

		ConfigureSNI(tlsConfig, creds.SNI, creds.DisableSNI, server.Host)

		if creds.MinTLSVersion > 0 {
			tlsConfig.MinVersion = creds.MinTLSVersion
		}
		if creds.MaxTLSVersion > 0 {
			tlsConfig.MaxVersion = creds.MaxTLSVersion
		}
		if len(creds.CipherSuites) > 0 {
			tlsConfig.CipherSuites = creds.CipherSuites
		} else {
			tlsconfig.ApplyCipherSuites(tlsConfig, tlsConfig.MinVersion)
		}

		clientCert, err := loadClientCertificate(creds)
		if err != nil {
			return nil, err
		}
		if clientCert != nil {
			tlsConfig.Certificates = append(tlsConfig.Certificates, *clientCert)
		}
	} else {
		tlsConfig.ServerName = server.Host
	}

	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}

	state := tlsConn.ConnectionState()
	metadata.TLSVersion = tlsconfig.GetVersionName(state.Version)
	metadata.TLSCipherSuite = tlsconfig.GetCipherSuiteName(state.CipherSuite)
	metadata.NegotiatedALPN = state.NegotiatedProtocol

	return tlsConn, nil
}

// loadClientCertificate builds a client certificate for mTLS from the PEM
// bytes carried on Credentials (values handed in by the caller, not file
// paths).
func loadClientCertificate(creds *Credentials) (*tls.Certificate, error) {
	if len(creds.ClientCert) == 0 || len(creds.ClientCertKey) == 0 {
		return nil, nil
	}
	cert, err := tls.X509KeyPair(creds.ClientCert, creds.ClientCertKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client certificate/key: %w", err)
	}
	return &cert, nil
}

// ConfigureSNI applies SNI configuration to a TLS config. Priority:
// explicit ServerName > DisableSNI > customSNI > fallbackHost.
func ConfigureSNI(tlsConfig *tls.Config, customSNI string, disableSNI bool, fallbackHost string) {
	if tlsConfig == nil || tlsConfig.ServerName != "" {
		return
	}
	if disableSNI {
		return
	}
	if customSNI != "" {
		tlsConfig.ServerName = customSNI
		return
	}
	tlsConfig.ServerName = fallbackHost
}

// tcpInstance is the production Instance: a live net.Conn plus the
// receive-ready callback goroutine. Reads go through a bufio.Reader so
// the pump goroutine can detect readability via Peek without consuming
// bytes the request-owning task still needs to read itself.
type tcpInstance struct {
	conn     net.Conn
	br       *bufio.Reader
	metadata ConnectionMetadata

	mu     sync.Mutex
	cb     func()
	closed bool
}

func (ti *tcpInstance) SetReceiveCallback(cb func()) error {
	ti.mu.Lock()
	if ti.cb != nil {
		ti.mu.Unlock()
		return ehErrors.NewInvalidParameter("set-receive-callback", "callback already installed")
	}
	ti.cb = cb
	ti.mu.Unlock()
	go ti.pump()
	return nil
}

// pump blocks on Peek(1) until at least one byte is buffered, then
// invokes the installed callback; the callback's own rx-start/rx-finish
// rendezvous (pkg/xconn) is what actually blocks this goroutine until the
// request-owning task has finished reading, keeping reads serialized.
func (ti *tcpInstance) pump() {
	for {
		ti.conn.SetReadDeadline(time.Time{})
		if _, err := ti.br.Peek(1); err != nil {
			return
		}
		ti.cb()
	}
}

func (ti *tcpInstance) Send(p []byte) (int, error) {
	n, err := ti.conn.Write(p)
	if err != nil {
		return n, ehErrors.NewNetworkError("send", "transport write failed", err)
	}
	return n, nil
}

func (ti *tcpInstance) Receive(ctx context.Context, p []byte) (int, error) {
	if deadline, ok := ctx.Deadline(); ok {
		ti.conn.SetReadDeadline(deadline)
	} else {
		ti.conn.SetReadDeadline(time.Time{})
	}
	n, err := ti.br.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ehErrors.NewTimeoutError("receive", "transport read timed out")
		}
		return n, ehErrors.NewNetworkError("receive", "transport read failed", err)
	}
	return n, nil
}

func (ti *tcpInstance) Close() error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.closed {
		return nil
	}
	ti.closed = true
	return ti.conn.Close()
}

func (ti *tcpInstance) Metadata() ConnectionMetadata {
	return ti.metadata
}
