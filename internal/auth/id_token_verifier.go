package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken          = errors.New("id token must not be empty")
	errMissingKeyIdentifier  = errors.New("token missing key identifier")
	errUntrustedIssuer       = errors.New("token issuer not allowed")
	errMissingAudienceConfig = errors.New("audience configuration required")
	errNoAllowedIssuers      = errors.New("no allowed issuers configured")
)

// providerTokenClaims carries the registered claims plus the profile fields both providers emit.
type providerTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// idTokenVerifier checks RS256 identity tokens against a provider JWKS.
type idTokenVerifier struct {
	provider Provider
	audience string
	issuers  map[string]struct{}
	keys     *keySource
	clock    func() time.Time
}

func newIDTokenVerifier(provider Provider, audience string, issuers []string, keys *keySource, clock func() time.Time) (*idTokenVerifier, error) {
	allowed := make(map[string]struct{}, len(issuers))
	for _, issuer := range issuers {
		normalized := strings.TrimSpace(issuer)
		if normalized == "" {
			continue
		}
		allowed[normalized] = struct{}{}
	}
	if len(allowed) == 0 {
		return nil, errNoAllowedIssuers
	}
	if clock == nil {
		clock = time.Now
	}
	return &idTokenVerifier{
		provider: provider,
		audience: strings.TrimSpace(audience),
		issuers:  allowed,
		keys:     keys,
		clock:    clock,
	}, nil
}

func (v *idTokenVerifier) verify(ctx context.Context, rawToken string) (IdentityClaims, error) {
	if v.audience == "" {
		return IdentityClaims{}, invalidIdentity(v.provider, errMissingAudienceConfig)
	}
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return IdentityClaims{}, invalidIdentity(v.provider, errMissingToken)
	}

	claims := &providerTokenClaims{}
	token, err := jwt.ParseWithClaims(
		rawToken,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			keyID, _ := token.Header["kid"].(string)
			if keyID == "" {
				return nil, errMissingKeyIdentifier
			}
			return v.keys.lookup(ctx, keyID)
		},
		jwt.WithAudience(v.audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock),
	)
	if err != nil {
		return IdentityClaims{}, invalidIdentity(v.provider, err)
	}
	if !token.Valid {
		return IdentityClaims{}, invalidIdentity(v.provider, errors.New("token signature invalid"))
	}
	if _, allowed := v.issuers[claims.Issuer]; !allowed {
		return IdentityClaims{}, invalidIdentity(v.provider, fmt.Errorf("%w: %q", errUntrustedIssuer, claims.Issuer))
	}

	return IdentityClaims{
		Provider: v.provider,
		Subject:  strings.TrimSpace(claims.Subject),
		Email:    strings.TrimSpace(claims.Email),
		Name:     strings.TrimSpace(claims.Name),
	}, nil
}
