// Package auth provides pluggable bearer-token authenticators — JWT and
// OIDC — each mapping a bearer token to an opaque user id. Either
// satisfies rpc.Authenticator by structural typing.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens; only access
// tokens are accepted at Identify.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the JWT claims minted and verified for Aurora access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
}

// JWTAuthenticator validates HS256-signed JWTs against a shared secret.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator builds a JWTAuthenticator over the given secret.
// The secret must be at least 32 bytes; config.Config.Validate already
// enforces this on JWT_SECRET.
func NewJWTAuthenticator(secret string) (*JWTAuthenticator, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth: jwt secret must be at least 32 characters")
	}
	return &JWTAuthenticator{secret: []byte(secret)}, nil
}

// Authenticate validates tokenString and returns the opaque user id
// carried in its claims. Expired, malformed, wrong-algorithm, or
// refresh-typed tokens are all rejected uniformly.
func (a *JWTAuthenticator) Authenticate(_ context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("auth: empty token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token")
	}
	if claims.TokenType != TokenTypeAccess {
		return "", errors.New("auth: not an access token")
	}
	if claims.UserID == "" {
		return "", errors.New("auth: token missing user id")
	}
	return claims.UserID, nil
}

// IssueAccessToken mints a short-lived access token for userID. Exposed
// for use by the external login surface (out of this core's scope per
// SPEC_FULL.md §1, but the core owns token verification, so it also owns
// the matching signing logic).
func (a *JWTAuthenticator) IssueAccessToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "aurora",
			Subject:   userID,
		},
		UserID:    userID,
		TokenType: TokenTypeAccess,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
