package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestTokenVerifier(t *testing.T) {
	v := NewTokenVerifier("s3cret")
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantAdmin bool
	}{
		{
			name:      "admin token",
			raw:       signToken(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: future}, Role: "admin"}),
			wantAdmin: true,
		},
		{
			name: "student token",
			raw:  signToken(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: future}, Role: "student"}),
		},
		{
			name:    "wrong secret",
			raw:     signToken(t, "other", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: future}}),
			wantErr: true,
		},
		{
			name:    "expired",
			raw:     signToken(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: past}}),
			wantErr: true,
		},
		{
			name:    "no expiry",
			raw:     signToken(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}),
			wantErr: true,
		},
		{
			name:    "no subject",
			raw:     signToken(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
			wantErr: true,
		},
		{
			name:    "garbage",
			raw:     "not-a-token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && claims.IsAdmin() != tt.wantAdmin {
				t.Errorf("IsAdmin() = %v, want %v", claims.IsAdmin(), tt.wantAdmin)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer  xyz ", "xyz", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("a") {
		t.Error("third immediate request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}

	rl.evict(time.Now().Add(time.Hour))
	if len(rl.visitors) != 0 {
		t.Errorf("expected idle visitors to be evicted, %d left", len(rl.visitors))
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := GetClientIP(r); got != "10.0.0.1" {
		t.Errorf("GetClientIP() = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := GetClientIP(r); got != "203.0.113.9" {
		t.Errorf("GetClientIP() with XFF = %q", got)
	}
}
