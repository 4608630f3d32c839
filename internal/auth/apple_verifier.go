package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAppleJWKSURL  = "https://appleid.apple.com/auth/keys"
	defaultAppleIssuer   = "https://appleid.apple.com"
	DefaultAppleBundleID = "com.studyasist"
)

// AppleVerifierConfig configures Sign in with Apple identity token checks.
type AppleVerifierConfig struct {
	BundleID     string
	JWKSURL      string
	HTTPClient   *http.Client
	KeyCache     KeySetCache
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Logger       *zap.Logger
	Clock        func() time.Time
}

// AppleVerifier verifies Apple identity tokens. Apple omits email after the first
// authorization for a subject, so Email may be empty on success.
type AppleVerifier struct {
	verifier *idTokenVerifier
}

// NewAppleVerifier constructs an AppleVerifier, falling back to DefaultAppleBundleID.
func NewAppleVerifier(cfg AppleVerifierConfig) (*AppleVerifier, error) {
	bundleID := strings.TrimSpace(cfg.BundleID)
	if bundleID == "" {
		bundleID = DefaultAppleBundleID
	}
	jwksURL := strings.TrimSpace(cfg.JWKSURL)
	if jwksURL == "" {
		jwksURL = defaultAppleJWKSURL
	}

	keys := newKeySource(keySourceConfig{
		JWKSURL:      jwksURL,
		HTTPClient:   cfg.HTTPClient,
		Cache:        cfg.KeyCache,
		CacheTTL:     cfg.CacheTTL,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       cfg.Logger,
	})

	verifier, err := newIDTokenVerifier(ProviderApple, bundleID, []string{defaultAppleIssuer}, keys, cfg.Clock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifierConfig, err)
	}
	return &AppleVerifier{verifier: verifier}, nil
}

// Verify validates the provided identity token and returns its identity claims.
func (v *AppleVerifier) Verify(ctx context.Context, rawToken string) (IdentityClaims, error) {
	return v.verifier.verify(ctx, rawToken)
}
