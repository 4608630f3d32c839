package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultGoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	defaultIssuerGoogle  = "https://accounts.google.com"
	defaultIssuerAlt     = "accounts.google.com"
)

var ErrInvalidVerifierConfig = errors.New("auth: invalid verifier config")

// GoogleVerifierConfig bundles configuration required to instantiate a GoogleVerifier.
// An empty Audience is accepted; such a verifier rejects every token.
type GoogleVerifierConfig struct {
	Audience       string
	JWKSURL        string
	AllowedIssuers []string
	HTTPClient     *http.Client
	KeyCache       KeySetCache
	CacheTTL       time.Duration
	FetchTimeout   time.Duration
	Logger         *zap.Logger
	Clock          func() time.Time
}

// GoogleVerifier verifies Google ID tokens against Google's published keys.
type GoogleVerifier struct {
	verifier *idTokenVerifier
}

// NewGoogleVerifier constructs a verifier with validated configuration.
func NewGoogleVerifier(cfg GoogleVerifierConfig) (*GoogleVerifier, error) {
	jwksURL := strings.TrimSpace(cfg.JWKSURL)
	if jwksURL == "" {
		jwksURL = defaultGoogleJWKSURL
	}

	issuers := cfg.AllowedIssuers
	if issuers == nil {
		issuers = []string{defaultIssuerGoogle, defaultIssuerAlt}
	}

	keys := newKeySource(keySourceConfig{
		JWKSURL:      jwksURL,
		HTTPClient:   cfg.HTTPClient,
		Cache:        cfg.KeyCache,
		CacheTTL:     cfg.CacheTTL,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       cfg.Logger,
	})

	verifier, err := newIDTokenVerifier(ProviderGoogle, cfg.Audience, issuers, keys, cfg.Clock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifierConfig, err)
	}
	return &GoogleVerifier{verifier: verifier}, nil
}

// Configured reports whether a client id is present; without one every token is rejected.
func (v *GoogleVerifier) Configured() bool {
	return v.verifier.audience != ""
}

// Verify validates the provided ID token and returns its identity claims.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (IdentityClaims, error) {
	return v.verifier.verify(ctx, rawToken)
}
