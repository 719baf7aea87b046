package response

import (
	"testing"

	"github.com/foehnlabs/embedhttps/pkg/arena"
	ehErrors "github.com/foehnlabs/embedhttps/pkg/errors"
	"github.com/foehnlabs/embedhttps/pkg/httpparser"
)

func newResponse(t *testing.T, method string, headers string, bodyCap int) (*Response, *arena.ResponseArena) {
	t.Helper()
	var bodyBuf []byte
	if bodyCap > 0 {
		bodyBuf = make([]byte, bodyCap)
	}
	ra, err := arena.NewResponseArena(make([]byte, arena.ResponseMin+len(headers)), bodyBuf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := New(ra, method)

	// simulate send-sync having already received and parsed headers
	r.Parser.SetMode(httpparser.ModeFillingHeaderArena)
	if err := ra.Headers.Write("test", []byte(headers)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Parser.Feed(ra.Headers.Bytes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r, ra
}

func TestReadResponseStatusFound(t *testing.T) {
	r, _ := newResponse(t, "GET", "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n", 5)
	status, err := r.ReadResponseStatus()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
}

func TestReadResponseStatusNotFoundBeforeParsing(t *testing.T) {
	ra, err := arena.NewResponseArena(make([]byte, arena.ResponseMin), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := New(ra, "GET")
	_, err = r.ReadResponseStatus()
	if !ehErrors.Is(err, ehErrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestReadContentLengthFound(t *testing.T) {
	r, _ := newResponse(t, "GET", "HTTP/1.1 200 OK\r\nContent-Length: 1234\r\n\r\n", 0)
	length, err := r.ReadContentLength()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if length != 1234 {
		t.Fatalf("content-length = %d, want 1234", length)
	}
}

func TestReadHeaderFound(t *testing.T) {
	r, _ := newResponse(t, "GET", "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n", 0)
	out := make([]byte, 32)
	n, err := r.ReadHeader("Content-Type", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out[:n]) != "text/plain" {
		t.Fatalf("value = %q, want %q", out[:n], "text/plain")
	}
}

func TestReadHeaderInsufficientMemory(t *testing.T) {
	r, _ := newResponse(t, "GET", "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n", 0)
	out := make([]byte, 2)
	_, err := r.ReadHeader("Content-Type", out)
	if !ehErrors.Is(err, ehErrors.CodeInsufficientMemory) {
		t.Fatalf("expected INSUFFICIENT_MEMORY, got %v", err)
	}
}

func TestReadHeaderNotFound(t *testing.T) {
	r, _ := newResponse(t, "GET", "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n", 0)
	out := make([]byte, 32)
	_, err := r.ReadHeader("X-Missing", out)
	if !ehErrors.Is(err, ehErrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestReadHeaderPreservesModeAcrossLookup(t *testing.T) {
	r, _ := newResponse(t, "GET", "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\n\r\n", 0)
	modeBefore := r.Parser.Mode()
	out := make([]byte, 32)
	if _, err := r.ReadHeader("Content-Type", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Parser.Mode() != modeBefore {
		t.Fatalf("mode changed across ReadHeader: before=%v after=%v", modeBefore, r.Parser.Mode())
	}
}
