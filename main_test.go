package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rjsadow/aurora/internal/config"
)

type fakeAuthenticator struct {
	userID string
	err    error
}

func (f fakeAuthenticator) Authenticate(_ context.Context, _ string) (string, error) {
	return f.userID, f.err
}

func TestChainAuthenticator_FirstSucceeds(t *testing.T) {
	chain := chainAuthenticator{
		fakeAuthenticator{userID: "user-1"},
		fakeAuthenticator{err: errors.New("should not be reached")},
	}

	userID, err := chain.Authenticate(context.Background(), "token")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want user-1", userID)
	}
}

func TestChainAuthenticator_FallsThroughToSecond(t *testing.T) {
	chain := chainAuthenticator{
		fakeAuthenticator{err: errors.New("jwt rejected")},
		fakeAuthenticator{userID: "user-2"},
	}

	userID, err := chain.Authenticate(context.Background(), "token")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if userID != "user-2" {
		t.Errorf("userID = %q, want user-2", userID)
	}
}

func TestChainAuthenticator_AllFail(t *testing.T) {
	wantErr := errors.New("oidc rejected")
	chain := chainAuthenticator{
		fakeAuthenticator{err: errors.New("jwt rejected")},
		fakeAuthenticator{err: wantErr},
	}

	_, err := chain.Authenticate(context.Background(), "token")
	if !errors.Is(err, wantErr) {
		t.Errorf("Authenticate() error = %v, want %v", err, wantErr)
	}
}

func TestBuildAuthenticator_NoOIDCReturnsJWTOnly(t *testing.T) {
	cfg := &config.Config{JWTSecret: "this-is-a-test-secret-at-least-32-bytes-long"}

	authenticator, err := buildAuthenticator(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildAuthenticator() error = %v", err)
	}
	if _, ok := authenticator.(chainAuthenticator); ok {
		t.Error("expected a bare JWT authenticator when OIDC is not configured, got a chain")
	}
}

func TestBuildAuthenticator_ShortSecretRejected(t *testing.T) {
	cfg := &config.Config{JWTSecret: "too-short"}

	if _, err := buildAuthenticator(context.Background(), cfg); err == nil {
		t.Error("expected an error for a JWT secret under 32 characters")
	}
}
