package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuerIssuesBearerTokens(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "quill-auth",
		Audience:      "quill-api",
		TokenTTL:      30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, expiresIn, err := issuer.IssueToken(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}
	if expiresIn <= 0 {
		t.Fatalf("expected positive expiry seconds, got %d", expiresIn)
	}

	parser := jwt.Parser{}
	claims := &jwt.RegisteredClaims{}
	_, err = parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}

	if claims.Subject != "alice" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Issuer != "quill-auth" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "quill-api" {
		t.Fatalf("unexpected audience %#v", claims.Audience)
	}
}

func TestTokenIssuerRejectsMissingSecret(t *testing.T) {
	_, err := NewTokenIssuer(TokenIssuerConfig{
		Issuer:   "quill-auth",
		Audience: "quill-api",
	})
	if err == nil {
		t.Fatalf("expected constructor error for missing secret")
	}
}

func TestTokenIssuerValidatesIssuedTokens(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("another-secret"),
		Issuer:        "quill-auth",
		Audience:      "quill-api",
		TokenTTL:      15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := issuer.IssueToken(context.Background(), "bob")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	subject, err := issuer.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if subject != "bob" {
		t.Fatalf("unexpected subject %s", subject)
	}
}

func TestTokenIssuerRejectsExpiredTokens(t *testing.T) {
	current := time.Now()
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("expiring-secret"),
		Issuer:        "quill-auth",
		Audience:      "quill-api",
		TokenTTL:      time.Second,
		Clock:         func() time.Time { return current },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := issuer.IssueToken(context.Background(), "carol")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	if _, err := issuer.ValidateToken(tokenString); err != nil {
		t.Fatalf("token should be valid before expiry: %v", err)
	}

	current = current.Add(2 * time.Second)
	if _, err := issuer.ValidateToken(tokenString); err == nil {
		t.Fatalf("expected validation error after expiry")
	}
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("expected-secret"),
		Issuer:        "quill-auth",
		Audience:      "quill-api",
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "mallory",
		Issuer:    "quill-auth",
		Audience:  []string{"quill-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("failed to sign foreign token: %v", err)
	}

	if _, err := issuer.ValidateToken(signed); err == nil {
		t.Fatalf("expected validation error for foreign signature")
	}
}
