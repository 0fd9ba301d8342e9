package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// issueTestToken mints a token with an arbitrary TokenType, bypassing
// IssueAccessToken (which always mints TokenTypeAccess), so the access-
// token-only check in Authenticate can be exercised.
func issueTestToken(a *JWTAuthenticator, userID string, tokenType TokenType, ttl time.Duration) (string, error) {
	now := jwt.NewNumericDate(time.Now())
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  now,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Issuer:    "aurora",
			Subject:   userID,
		},
		UserID:    userID,
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func TestJWTAuthenticator_IssueAndAuthenticate(t *testing.T) {
	a, err := NewJWTAuthenticator(testSecret)
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error: %v", err)
	}

	token, err := a.IssueAccessToken("user-1", time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken() error: %v", err)
	}

	userID, err := a.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Authenticate() = %q, want user-1", userID)
	}
}

func TestJWTAuthenticator_RejectsExpiredToken(t *testing.T) {
	a, _ := NewJWTAuthenticator(testSecret)
	token, err := a.IssueAccessToken("user-1", -time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken() error: %v", err)
	}
	if _, err := a.Authenticate(context.Background(), token); err == nil {
		t.Fatal("Authenticate() should reject an expired token")
	}
}

func TestJWTAuthenticator_RejectsRefreshToken(t *testing.T) {
	a, _ := NewJWTAuthenticator(testSecret)
	refreshToken, err := issueTestToken(a, "user-1", TokenTypeRefresh, time.Minute)
	if err != nil {
		t.Fatalf("issueTestToken() error: %v", err)
	}
	if _, err := a.Authenticate(context.Background(), refreshToken); err == nil {
		t.Fatal("Authenticate() should reject a refresh token at Identify")
	}
}

func TestJWTAuthenticator_RejectsWrongSecret(t *testing.T) {
	a, _ := NewJWTAuthenticator(testSecret)
	token, _ := a.IssueAccessToken("user-1", time.Minute)

	other, _ := NewJWTAuthenticator("ffffffffffffffffffffffffffffffff")
	if _, err := other.Authenticate(context.Background(), token); err == nil {
		t.Fatal("Authenticate() should reject a token signed with a different secret")
	}
}

func TestNewJWTAuthenticator_RejectsShortSecret(t *testing.T) {
	if _, err := NewJWTAuthenticator("short"); err == nil {
		t.Fatal("NewJWTAuthenticator() should reject a secret shorter than 32 bytes")
	}
}
