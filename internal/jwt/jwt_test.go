package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	token, err := issuer.CreateToken(User{Id: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	claims, err := issuer.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims %#v", claims)
	}
	if claims.ExpiresAt.Before(time.Now()) {
		t.Fatalf("expected future expiry, got %v", claims.ExpiresAt)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	a, _ := NewIssuer("secret-a", time.Hour)
	b, _ := NewIssuer("secret-b", time.Hour)

	token, err := a.CreateToken(User{Id: "u1"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := b.ParseToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuer, _ := NewIssuer("test-secret", time.Minute)
	issuer.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })

	token, err := issuer.CreateToken(User{Id: "u1"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if _, err := issuer.ParseToken(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestIssuerValidation(t *testing.T) {
	if _, err := NewIssuer("", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}

	issuer, _ := NewIssuer("s", 0)
	if issuer.ttl != DefaultTokenTTL {
		t.Fatalf("expected default ttl, got %v", issuer.ttl)
	}
	if _, err := issuer.ParseToken(""); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !ValidatePassword(hash, "hunter2") {
		t.Fatal("expected password to validate")
	}
	if ValidatePassword(hash, "hunter3") {
		t.Fatal("expected wrong password to fail")
	}
}
