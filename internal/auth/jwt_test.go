package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWT_GenerateValidate(t *testing.T) {
	m := NewJWTManager("secret-key-for-tests", "lifeone", time.Hour)
	tok, err := m.Generate("phone", time.Now())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := m.Validate(tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "phone" || claims.Issuer != "lifeone" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWT_Rejects(t *testing.T) {
	m := NewJWTManager("secret-key-for-tests", "lifeone", time.Hour)

	if _, err := m.Validate(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty token: %v", err)
	}

	other := NewJWTManager("another-secret", "lifeone", time.Hour)
	tok, _ := other.Generate("phone", time.Now())
	if _, err := m.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key: %v", err)
	}

	expired, _ := m.Generate("phone", time.Now().Add(-2*time.Hour))
	if _, err := m.Validate(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: %v", err)
	}

	foreign := NewJWTManager("secret-key-for-tests", "someone-else", time.Hour)
	tok, _ = foreign.Generate("phone", time.Now())
	if _, err := m.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong issuer: %v", err)
	}
}

func TestJWT_NoExpiry(t *testing.T) {
	m := NewJWTManager("secret-key-for-tests", "", 0)
	tok, err := m.Generate("cli", time.Now().Add(-24*365*time.Hour))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := m.Validate(tok); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
