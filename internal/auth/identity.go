package auth

import (
	"context"
	"errors"
	"fmt"
)

// Provider names an external identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// ErrInvalidIdentityToken is the uniform failure for any provider token that cannot be trusted.
var ErrInvalidIdentityToken = errors.New("auth: invalid identity token")

var errUnsupportedProvider = errors.New("identity provider not supported")

// IdentityClaims exposes validated claim data required by the user directory.
// Email and Name may be empty.
type IdentityClaims struct {
	Provider Provider
	Subject  string
	Email    string
	Name     string
}

// TokenVerifier validates a single provider's identity tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (IdentityClaims, error)
}

// IdentityVerifier dispatches identity tokens to the verifier of their provider.
type IdentityVerifier struct {
	verifiers map[Provider]TokenVerifier
}

// NewIdentityVerifier wires provider verifiers; nil verifiers leave the provider unsupported.
func NewIdentityVerifier(google, apple TokenVerifier) *IdentityVerifier {
	verifiers := make(map[Provider]TokenVerifier, 2)
	if google != nil {
		verifiers[ProviderGoogle] = google
	}
	if apple != nil {
		verifiers[ProviderApple] = apple
	}
	return &IdentityVerifier{verifiers: verifiers}
}

// Verify validates rawToken for provider. Every failure satisfies errors.Is(err, ErrInvalidIdentityToken).
func (v *IdentityVerifier) Verify(ctx context.Context, provider Provider, rawToken string) (IdentityClaims, error) {
	verifier, ok := v.verifiers[provider]
	if !ok {
		return IdentityClaims{}, invalidIdentity(provider, errUnsupportedProvider)
	}
	claims, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		if errors.Is(err, ErrInvalidIdentityToken) {
			return IdentityClaims{}, err
		}
		return IdentityClaims{}, invalidIdentity(provider, err)
	}
	return claims, nil
}

func invalidIdentity(provider Provider, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidIdentityToken, provider, cause)
}
