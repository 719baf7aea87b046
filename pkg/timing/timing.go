// Package timing measures connection latencies: DNS resolution, TCP dial,
// TLS upgrade, and the wait for the first response byte once a request is
// in flight. pkg/transport marks only the TCP dial (name resolution
// included) and TLS upgrade phases; the DNS and first-byte spans of its
// metrics read as zero.
package timing

import (
	"fmt"
	"time"
)

// Metrics is the per-connection latency breakdown, snapshotted from a
// Timer once the transport instance is established.
type Metrics struct {
	DNSLookup    time.Duration `json:"dns_lookup"`
	TCPConnect   time.Duration `json:"tcp_connect"`
	TLSHandshake time.Duration `json:"tls_handshake"`
	FirstByte    time.Duration `json:"first_byte"`
	Total        time.Duration `json:"total"`
}

// SetupTime is the connection establishment portion: DNS + TCP + TLS.
func (m Metrics) SetupTime() time.Duration {
	return m.DNSLookup + m.TCPConnect + m.TLSHandshake
}

func (m Metrics) String() string {
	return fmt.Sprintf("dns=%v tcp=%v tls=%v first-byte=%v total=%v",
		m.DNSLookup, m.TCPConnect, m.TLSHandshake, m.FirstByte, m.Total)
}

// span is one measured phase; it reads as zero until both ends are marked.
type span struct {
	start time.Time
	end   time.Time
}

func (s span) elapsed() time.Duration {
	if s.start.IsZero() || s.end.IsZero() {
		return 0
	}
	return s.end.Sub(s.start)
}

// Timer accumulates phase marks for one connection attempt.
type Timer struct {
	created time.Time
	dns     span
	tcp     span
	tls     span
	first   span
}

func NewTimer() *Timer {
	return &Timer{created: time.Now()}
}

func (t *Timer) StartDNS() { t.dns.start = time.Now() }
func (t *Timer) EndDNS()   { t.dns.end = time.Now() }

func (t *Timer) StartTCP() { t.tcp.start = time.Now() }
func (t *Timer) EndTCP()   { t.tcp.end = time.Now() }

func (t *Timer) StartTLS() { t.tls.start = time.Now() }
func (t *Timer) EndTLS()   { t.tls.end = time.Now() }

func (t *Timer) StartFirstByte() { t.first.start = time.Now() }
func (t *Timer) EndFirstByte()   { t.first.end = time.Now() }

// GetMetrics snapshots the phases measured so far.
func (t *Timer) GetMetrics() Metrics {
	return Metrics{
		DNSLookup:    t.dns.elapsed(),
		TCPConnect:   t.tcp.elapsed(),
		TLSHandshake: t.tls.elapsed(),
		FirstByte:    t.first.elapsed(),
		Total:        time.Since(t.created),
	}
}
