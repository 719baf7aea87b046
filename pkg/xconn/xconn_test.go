package xconn

import (
	"testing"
	"time"
)

func TestBinarySemaphorePostThenWaitSucceeds(t *testing.T) {
	s := newBinarySemaphore(false)
	s.post()
	if err := s.waitTimeout(100 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBinarySemaphoreWaitTimesOutWhenNotPosted(t *testing.T) {
	s := newBinarySemaphore(false)
	err := s.waitTimeout(20 * time.Millisecond)
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
}

func TestBinarySemaphorePostIsIdempotentAtCapacityOne(t *testing.T) {
	s := newBinarySemaphore(false)
	s.post()
	s.post() // must not block or panic; capacity is 1
	if err := s.waitTimeout(100 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// a second wait should now time out: only one token was ever queued.
	if err := s.waitTimeout(20 * time.Millisecond); err == nil {
		t.Fatalf("expected second wait to time out")
	}
}

func TestBinarySemaphoreInitialTrueStartsAvailable(t *testing.T) {
	s := newBinarySemaphore(true)
	if err := s.waitTimeout(100 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error acquiring initial token: %v", err)
	}
}
