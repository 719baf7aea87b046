package errors

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewTimeoutError("send-sync", "rx-start wait timed out")
	b := New(CodeTimeoutError, "other-op", "different message")

	if !errors.Is(a, b) {
		t.Fatalf("expected errors with the same code to match via errors.Is")
	}

	c := NewBusy("send-sync", "usage wait timed out")
	if errors.Is(a, c) {
		t.Fatalf("expected errors with different codes not to match")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewInsufficientMemory("initialize-request", "request arena too small")
	code, ok := CodeOf(err)
	if !ok || code != CodeInsufficientMemory {
		t.Fatalf("CodeOf() = %v, %v, want %v, true", code, ok, CodeInsufficientMemory)
	}

	_, ok = CodeOf(errors.New("plain error"))
	if ok {
		t.Fatalf("CodeOf() on a plain error should report false")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewNetworkError("send-headers", "short write", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if errors.Unwrap(err) != cause {
		t.Fatalf("Unwrap() did not return the original cause")
	}
}

func TestIsTimeoutAndIsBusy(t *testing.T) {
	if !IsTimeout(NewTimeoutError("op", "msg")) {
		t.Fatalf("IsTimeout() should be true for a timeout error")
	}
	if IsTimeout(NewBusy("op", "msg")) {
		t.Fatalf("IsTimeout() should be false for a busy error")
	}
	if !IsBusy(NewBusy("op", "msg")) {
		t.Fatalf("IsBusy() should be true for a busy error")
	}
}
