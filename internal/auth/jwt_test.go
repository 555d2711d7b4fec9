package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret")

	token, err := m.GenerateToken(42, "alice@example.com", "Alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "alice@example.com" || claims.Nickname != "Alice" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret")

	token, err := m.GenerateToken(1, "a@b.c", "A", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("err = %v, want ErrExpiredToken", err)
	}
}

func TestWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a")
	verifier := NewJWTManager("secret-b")

	token, err := issuer.GenerateToken(1, "a@b.c", "A", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestGarbageToken(t *testing.T) {
	m := NewJWTManager("test-secret")
	if _, err := m.ValidateAccessToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
