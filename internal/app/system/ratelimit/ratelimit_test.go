package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("key") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("key") {
		t.Fatal("request over the limit should be blocked")
	}
	if l.Remaining("key") != 0 {
		t.Fatalf("Remaining: got %d, want 0", l.Remaining("key"))
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	if !l.Allow("a") {
		t.Fatal("first request for a should be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("first request for b should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("second request for a should be blocked")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)

	l.Allow("key")
	if l.Allow("key") {
		t.Fatal("should be blocked before reset")
	}
	l.Reset("key")
	if !l.Allow("key") {
		t.Fatal("should be allowed after reset")
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"remote addr with port", "10.0.0.1:4321", "", "", "10.0.0.1"},
		{"x-forwarded-for wins", "10.0.0.1:4321", "203.0.113.7, 10.0.0.2", "", "203.0.113.7"},
		{"x-real-ip fallback", "10.0.0.1:4321", "", "203.0.113.9", "203.0.113.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/invite", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xri != "" {
				req.Header.Set("X-Real-IP", tc.xri)
			}
			if got := ClientIP(req); got != tc.want {
				t.Fatalf("ClientIP: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestInviteLimiter_BlocksRepeatRecipient(t *testing.T) {
	il := NewInviteLimiterWithConfig(100, time.Minute, 1, time.Hour)

	req := httptest.NewRequest("POST", "/api/invite", nil)
	req.RemoteAddr = "10.0.0.1:4321"

	if ok, _ := il.Check(req, "friend@example.com"); !ok {
		t.Fatal("first invite should be allowed")
	}
	ok, reason := il.Check(req, "Friend@Example.com")
	if ok {
		t.Fatal("repeat invite to the same recipient should be blocked")
	}
	if reason == "" {
		t.Fatal("blocked invite should carry a reason")
	}
}

func TestInviteLimiter_BlocksBusyIP(t *testing.T) {
	il := NewInviteLimiterWithConfig(2, time.Minute, 100, time.Hour)

	req := httptest.NewRequest("POST", "/api/invite", nil)
	req.RemoteAddr = "10.0.0.1:4321"

	il.Check(req, "one@example.com")
	il.Check(req, "two@example.com")
	if ok, _ := il.Check(req, "three@example.com"); ok {
		t.Fatal("third invite from the same IP should be blocked")
	}

	other := httptest.NewRequest("POST", "/api/invite", nil)
	other.RemoteAddr = "10.0.0.2:4321"
	if ok, _ := il.Check(other, "four@example.com"); !ok {
		t.Fatal("invite from a different IP should be allowed")
	}
}
