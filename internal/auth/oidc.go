package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuthenticator verifies bearer tokens as OIDC ID tokens issued by a
// discovered provider, using the token's "sub" claim as the opaque user
// id. Unlike the teacher's OIDCAuthProvider, it does not drive the
// authorization-code redirect dance itself — that belongs to the external
// HTTP/REST login surface named out of scope in SPEC_FULL.md §1; this
// authenticator only has to answer "who is this bearer token for".
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator discovers the provider at issuerURL and builds a
// verifier scoped to clientID's audience.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, clientID string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("auth: discover oidc provider at %s: %w", issuerURL, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &OIDCAuthenticator{verifier: verifier}, nil
}

// Authenticate verifies tokenString as an ID token and returns its
// subject claim.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("auth: empty token")
	}
	idToken, err := a.verifier.Verify(ctx, tokenString)
	if err != nil {
		return "", fmt.Errorf("auth: verify id token: %w", err)
	}
	if idToken.Subject == "" {
		return "", fmt.Errorf("auth: id token missing subject")
	}
	return idToken.Subject, nil
}
