package request

import (
	"strings"
	"testing"

	"github.com/foehnlabs/embedhttps/pkg/arena"
	"github.com/foehnlabs/embedhttps/pkg/constants"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
)

func newRequestArena(t *testing.T, extra int) *arena.RequestArena {
	t.Helper()
	ra, err := arena.NewRequestArena(make([]byte, arena.RequestMin+extra))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ra
}

func newResponseArena(t *testing.T) *arena.ResponseArena {
	t.Helper()
	ra, err := arena.NewResponseArena(make([]byte, arena.ResponseMin+256), make([]byte, 256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ra
}

func TestInitializeRequestWritesRequestLineAndFixedHeaders(t *testing.T) {
	ra := newRequestArena(t, 64)
	req, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: "example.com"}, ra, newResponseArena(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := string(ra.Bytes())
	if !strings.HasPrefix(got, "GET / HTTP/1.1\r\n") {
		t.Fatalf("request line missing, got %q", got)
	}
	if !strings.Contains(got, "User-Agent: ") {
		t.Fatalf("User-Agent header missing, got %q", got)
	}
	if !strings.Contains(got, "Host: example.com\r\n") {
		t.Fatalf("Host header missing, got %q", got)
	}
	if req.Method != "GET" {
		t.Fatalf("Method = %q, want GET", req.Method)
	}
}

func TestInitializeRequestRejectsEmptyHost(t *testing.T) {
	ra := newRequestArena(t, 0)
	if _, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: ""}, ra, newResponseArena(t)); err == nil {
		t.Fatalf("expected error for empty host")
	}
}

// TestInitializeRequestExactMinimumArenaFits exercises the boundary
// property a request-min-sized arena must satisfy: GET /, and a host the
// longest string that still fits, succeeds and leaves only the fixed
// headroom appendHeader always reserves behind the last header it writes
// (room for a hypothetical further terminator); one byte more overflows.
func TestInitializeRequestExactMinimumArenaFits(t *testing.T) {
	requestLine := "GET / HTTP/1.1\r\n"
	userAgentLine := "User-Agent: " + constants.DefaultUserAgent + "\r\n"
	fixed := len(requestLine) + len(userAgentLine) + len("Host: \r\n")
	const reservedTerminatorRoom = 2 // appendHeader's len(line)+len("\r\n") check
	hostLen := arena.RequestMin - fixed - reservedTerminatorRoom
	if hostLen <= 0 {
		t.Fatalf("RequestMin (%d) too small to host a positive-length Host value", arena.RequestMin)
	}
	host := strings.Repeat("h", hostLen)

	ra := newRequestArena(t, 0)
	req, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: host}, ra, newResponseArena(t))
	if err != nil {
		t.Fatalf("unexpected error with the longest host that fits (%d bytes): %v", hostLen, err)
	}
	if req.Arena.Avail() != reservedTerminatorRoom {
		t.Fatalf("avail after filling = %d, want %d", req.Arena.Avail(), reservedTerminatorRoom)
	}

	tooLong := strings.Repeat("h", hostLen+1)
	ra2 := newRequestArena(t, 0)
	if _, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: tooLong}, ra2, newResponseArena(t)); !ehErrors.Is(err, ehErrors.CodeInsufficientMemory) {
		t.Fatalf("expected INSUFFICIENT_MEMORY for a host one byte past the limit, got %v", err)
	}
}

func TestInitializeRequestRejectsOverlongHost(t *testing.T) {
	ra := newRequestArena(t, 4096)
	host := strings.Repeat("h", constants.MaxHostNameLength+1)
	_, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: host}, ra, newResponseArena(t))
	if !ehErrors.Is(err, ehErrors.CodeInvalidParameter) {
		t.Fatalf("expected INVALID_PARAMETER for a host past the name limit, got %v", err)
	}
}

func TestAddHeaderAppendsAndAdvancesCursor(t *testing.T) {
	ra := newRequestArena(t, 64)
	req, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: "example.com"}, ra, newResponseArena(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := ra.Len()
	if err := req.AddHeader("Accept", "*/*"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	added := "Accept: */*\r\n"
	if ra.Len()-before != len(added) {
		t.Fatalf("cursor advanced by %d, want %d", ra.Len()-before, len(added))
	}
}

func TestAddHeaderRejectsReservedNames(t *testing.T) {
	ra := newRequestArena(t, 64)
	req, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: "example.com"}, ra, newResponseArena(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := ra.Len()
	err = req.AddHeader("Content-Length", "42")
	if !ehErrors.Is(err, ehErrors.CodeInvalidParameter) {
		t.Fatalf("expected INVALID_PARAMETER, got %v", err)
	}
	if ra.Len() != before {
		t.Fatalf("arena cursor mutated on rejected header")
	}
}

func TestAddHeaderDoesNotRejectLongerNameSharingReservedPrefix(t *testing.T) {
	ra := newRequestArena(t, 64)
	req, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: "example.com"}, ra, newResponseArena(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "Host-Override" is not the reserved "Host" header: a longer name
	// sharing a reserved prefix must not be rejected.
	if err := req.AddHeader("Host-Override", "example.org"); err != nil {
		t.Fatalf("unexpected rejection of non-reserved header: %v", err)
	}
}

func TestAddHeaderInsufficientMemory(t *testing.T) {
	ra := newRequestArena(t, 0)
	req, err := InitializeRequest(Info{Method: "GET", Path: "/", Host: "h"}, ra, newResponseArena(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = req.AddHeader("X-Long", strings.Repeat("a", 4096))
	if !ehErrors.Is(err, ehErrors.CodeInsufficientMemory) {
		t.Fatalf("expected INSUFFICIENT_MEMORY, got %v", err)
	}
}
