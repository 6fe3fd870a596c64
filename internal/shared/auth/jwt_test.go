package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-secret")

	token, err := SignJWT(Claims{Sub: "google:42", Email: "hunter@example.com"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims.Sub != "google:42" || claims.Email != "hunter@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Iss != tokenIssuer {
		t.Fatalf("expected issuer %q, got %q", tokenIssuer, claims.Iss)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-secret")

	token, err := SignJWT(Claims{Sub: "google:42"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	tampered := token[:strings.LastIndex(token, ".")+1] + "AAAA"
	if _, err := VerifyJWT(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first")
	token, err := SignJWT(Claims{Sub: "google:42"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	t.Setenv("JWT_SECRET", "second")
	if _, err := VerifyJWT(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-secret")

	past := time.Now().Add(-time.Hour).Unix()
	token, err := SignJWT(Claims{Sub: "google:42", Iat: past - 60, Exp: past})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	if _, err := VerifyJWT(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestSecretRequiredInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := SignJWT(Claims{Sub: "google:42"}); err == nil {
		t.Fatalf("expected error without secret in production")
	}
}
