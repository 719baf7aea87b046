package tlsconfig

import (
	"crypto/tls"
	"testing"
)

func TestApplyVersionProfileSetsBothBounds(t *testing.T) {
	cfg := &tls.Config{}
	ApplyVersionProfile(cfg, ProfileSecure)

	if cfg.MinVersion != VersionTLS12 {
		t.Errorf("MinVersion = 0x%04x, want TLS 1.2", cfg.MinVersion)
	}
	if cfg.MaxVersion != VersionTLS13 {
		t.Errorf("MaxVersion = 0x%04x, want TLS 1.3", cfg.MaxVersion)
	}
}

func TestApplyCipherSuitesByMinVersion(t *testing.T) {
	cases := []struct {
		name       string
		minVersion uint16
		wantNil    bool
		want       []uint16
	}{
		{"tls13 uses built-in suites", VersionTLS13, true, nil},
		{"tls12 uses secure suites", VersionTLS12, false, CipherSuitesTLS12Secure},
		{"tls10 uses compatible suites", VersionTLS10, false, CipherSuitesTLS12Compatible},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &tls.Config{}
			ApplyCipherSuites(cfg, tc.minVersion)
			if tc.wantNil {
				if cfg.CipherSuites != nil {
					t.Fatalf("expected nil CipherSuites for TLS 1.3, got %v", cfg.CipherSuites)
				}
				return
			}
			if len(cfg.CipherSuites) != len(tc.want) || cfg.CipherSuites[0] != tc.want[0] {
				t.Fatalf("CipherSuites = %v, want %v", cfg.CipherSuites, tc.want)
			}
		})
	}
}

func TestGetVersionNameKnownAndUnknown(t *testing.T) {
	if got := GetVersionName(VersionTLS13); got != "TLS 1.3" {
		t.Fatalf("GetVersionName(TLS13) = %q, want %q", got, "TLS 1.3")
	}
	if got := GetVersionName(0x9999); got != "0x9999" {
		t.Fatalf("GetVersionName(unknown) = %q, want hex rendering", got)
	}
}

func TestIsVersionDeprecated(t *testing.T) {
	if IsVersionDeprecated(VersionTLS12) {
		t.Fatalf("TLS 1.2 should not be reported deprecated")
	}
	if !IsVersionDeprecated(VersionTLS11) {
		t.Fatalf("TLS 1.1 should be reported deprecated")
	}
}

func TestGetCipherSuiteNameKnown(t *testing.T) {
	if got := GetCipherSuiteName(tls.TLS_AES_128_GCM_SHA256); got != "TLS_AES_128_GCM_SHA256" {
		t.Fatalf("GetCipherSuiteName = %q, want TLS_AES_128_GCM_SHA256", got)
	}
}
