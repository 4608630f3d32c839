package auth

import (
	"errors"
	"net/http"
	"strings"
)

const bearerScheme = "bearer"

var (
	ErrMissingSessionResolver = errors.New("session validator: resolver required")
	ErrMissingBearerToken     = errors.New("session validator: bearer token required")
)

// SessionResolver maps a bearer token onto the user id it was issued for.
type SessionResolver interface {
	Resolve(token string) (string, error)
}

// SessionValidator authenticates inbound requests carrying an Authorization bearer token.
type SessionValidator struct {
	resolver SessionResolver
}

// NewSessionValidator constructs a validator backed by resolver.
func NewSessionValidator(resolver SessionResolver) (*SessionValidator, error) {
	if resolver == nil {
		return nil, ErrMissingSessionResolver
	}
	return &SessionValidator{resolver: resolver}, nil
}

// ValidateToken resolves a raw bearer token.
func (v *SessionValidator) ValidateToken(token string) (string, error) {
	return v.resolver.Resolve(token)
}

// ValidateRequest extracts the bearer token from r and resolves the caller's user id.
func (v *SessionValidator) ValidateRequest(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrMissingBearerToken
	}
	token, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", err
	}
	return v.resolver.Resolve(token)
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, credential, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrMissingBearerToken
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", ErrMissingBearerToken
	}
	return credential, nil
}
