package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAppleVerifierAcceptsTokenWithoutEmail(t *testing.T) {
	jwksServer := newTestJWKSServer(t)
	signedToken := jwksServer.sign(t, providerClaims("https://appleid.apple.com", "com.example.study", "001234.abcd", time.Now().UTC()))

	verifier, err := NewAppleVerifier(AppleVerifierConfig{
		BundleID:   "com.example.study",
		JWKSURL:    jwksServer.URL(),
		HTTPClient: jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	claims, err := verifier.Verify(context.Background(), signedToken)
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if claims.Provider != ProviderApple || claims.Subject != "001234.abcd" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Email != "" {
		t.Fatalf("expected empty email, got %q", claims.Email)
	}
}

func TestAppleVerifierDefaultsBundleID(t *testing.T) {
	jwksServer := newTestJWKSServer(t)
	claims := providerClaims("https://appleid.apple.com", DefaultAppleBundleID, "001234.abcd", time.Now().UTC())
	claims["email"] = "learner@privaterelay.appleid.com"
	signedToken := jwksServer.sign(t, claims)

	verifier, err := NewAppleVerifier(AppleVerifierConfig{
		JWKSURL:    jwksServer.URL(),
		HTTPClient: jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	verified, err := verifier.Verify(context.Background(), signedToken)
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if verified.Email != "learner@privaterelay.appleid.com" {
		t.Fatalf("unexpected email %q", verified.Email)
	}
}

func TestAppleVerifierRejectsGoogleIssuer(t *testing.T) {
	jwksServer := newTestJWKSServer(t)
	signedToken := jwksServer.sign(t, providerClaims("https://accounts.google.com", DefaultAppleBundleID, "001234.abcd", time.Now().UTC()))

	verifier, err := NewAppleVerifier(AppleVerifierConfig{
		JWKSURL:    jwksServer.URL(),
		HTTPClient: jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), signedToken); !errors.Is(err, ErrInvalidIdentityToken) {
		t.Fatalf("expected issuer mismatch to be rejected, got %v", err)
	}
}

func TestAppleVerifierRejectsWhenKeyFetchTimesOut(t *testing.T) {
	signer := newTestJWKSServer(t)
	signedToken := signer.sign(t, providerClaims("https://appleid.apple.com", DefaultAppleBundleID, "001234.abcd", time.Now().UTC()))

	release := make(chan struct{})
	slowServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slowServer.Close()
	defer close(release)

	verifier, err := NewAppleVerifier(AppleVerifierConfig{
		JWKSURL:      slowServer.URL,
		HTTPClient:   slowServer.Client(),
		FetchTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	started := time.Now()
	_, err = verifier.Verify(context.Background(), signedToken)
	if !errors.Is(err, ErrInvalidIdentityToken) {
		t.Fatalf("expected invalid identity token error, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("verification was not bounded by the fetch timeout: %s", elapsed)
	}
}

func TestAppleVerifierRejectsWhenKeyServerFails(t *testing.T) {
	signer := newTestJWKSServer(t)
	signedToken := signer.sign(t, providerClaims("https://appleid.apple.com", DefaultAppleBundleID, "001234.abcd", time.Now().UTC()))

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	verifier, err := NewAppleVerifier(AppleVerifierConfig{
		JWKSURL:    failing.URL,
		HTTPClient: failing.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), signedToken); !errors.Is(err, ErrInvalidIdentityToken) {
		t.Fatalf("expected key fetch failure to be reported as invalid token, got %v", err)
	}
}
