package channels

import (
	"testing"
	"time"
)

func TestSenderRateLimiter_Disabled(t *testing.T) {
	l := NewSenderRateLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow("5511999998888") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
	var nilLimiter *SenderRateLimiter
	if !nilLimiter.Allow("x") {
		t.Fatal("nil limiter must allow")
	}
}

func TestSenderRateLimiter_PerKeyBurst(t *testing.T) {
	l := NewSenderRateLimiter(60, 2)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("third event within the same instant should be rejected")
	}
	if !l.Allow("b") {
		t.Fatal("other keys have their own bucket")
	}

	// One second later at 60 rpm one token is back.
	fixed = fixed.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("token should refill after 1s at 60 rpm")
	}
}
