// Package tlsconfig carries the TLS version profiles and cipher-suite
// tables applied to outgoing connections when the caller's credentials
// don't pin their own.
package tlsconfig

import "crypto/tls"

// Version aliases, so callers can configure credentials without importing
// crypto/tls alongside this package.
const (
	VersionTLS10 uint16 = tls.VersionTLS10
	VersionTLS11 uint16 = tls.VersionTLS11
	VersionTLS12 uint16 = tls.VersionTLS12
	VersionTLS13 uint16 = tls.VersionTLS13
)

// VersionProfile is a min/max version pair applied as one unit.
type VersionProfile struct {
	Min uint16
	Max uint16
}

var (
	// ProfileModern admits TLS 1.3 only.
	ProfileModern = VersionProfile{Min: VersionTLS13, Max: VersionTLS13}

	// ProfileSecure admits TLS 1.2 and 1.3. This is the default floor for
	// every connection this library opens.
	ProfileSecure = VersionProfile{Min: VersionTLS12, Max: VersionTLS13}

	// ProfileCompatible admits TLS 1.0 through 1.3, for devices still
	// talking to gateways that never moved past 1.0/1.1.
	ProfileCompatible = VersionProfile{Min: VersionTLS10, Max: VersionTLS13}
)

// ApplyVersionProfile sets both version bounds on config.
func ApplyVersionProfile(config *tls.Config, profile VersionProfile) {
	config.MinVersion = profile.Min
	config.MaxVersion = profile.Max
}

// IsVersionDeprecated reports whether version predates TLS 1.2.
func IsVersionDeprecated(version uint16) bool {
	return version < VersionTLS12
}

// CipherSuitesTLS12Secure is the ECDHE+AEAD set offered when the
// connection floor is TLS 1.2.
var CipherSuitesTLS12Secure = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

// CipherSuitesTLS12Compatible adds the ECDHE CBC suites for peers without
// AEAD support.
var CipherSuitesTLS12Compatible = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
}

// ApplyCipherSuites fills in config.CipherSuites for the given version
// floor. TLS 1.3 suites are fixed by crypto/tls and not configurable.
func ApplyCipherSuites(config *tls.Config, minVersion uint16) {
	switch {
	case minVersion >= VersionTLS13:
		config.CipherSuites = nil
	case minVersion >= VersionTLS12:
		config.CipherSuites = CipherSuitesTLS12Secure
	default:
		config.CipherSuites = CipherSuitesTLS12Compatible
	}
}

// GetVersionName returns the name of a TLS version number ("TLS 1.3"), or
// a hex rendering for values crypto/tls does not know.
func GetVersionName(version uint16) string {
	return tls.VersionName(version)
}

// GetCipherSuiteName returns the IANA name of a cipher suite number, or a
// hex rendering for values crypto/tls does not know.
func GetCipherSuiteName(suite uint16) string {
	return tls.CipherSuiteName(suite)
}
