package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionValidatorValidateRequestUsesBearerHeader(t *testing.T) {
	issuer, err := NewSessionIssuer(SessionIssuerConfig{SigningSecret: []byte("secret")})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	validator, err := NewSessionValidator(issuer)
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	issued, err := issuer.Issue(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+issued.AccessToken)

	userID, err := validator.ValidateRequest(request)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestSessionValidatorRejectsMissingHeader(t *testing.T) {
	issuer, err := NewSessionIssuer(SessionIssuerConfig{SigningSecret: []byte("secret")})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	validator, err := NewSessionValidator(issuer)
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", http.NoBody)
	if _, err := validator.ValidateRequest(request); !errors.Is(err, ErrMissingBearerToken) {
		t.Fatalf("expected missing bearer token, got %v", err)
	}
}

func TestNewSessionValidatorRequiresResolver(t *testing.T) {
	if _, err := NewSessionValidator(nil); !errors.Is(err, ErrMissingSessionResolver) {
		t.Fatalf("expected missing resolver error, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{header: "bearer   abc", token: "abc", ok: true},
		{header: "Basic dXNlcjpwYXNz", ok: false},
		{header: "Bearer ", ok: false},
		{header: "abc.def.ghi", ok: false},
		{header: "", ok: false},
	}
	for _, testCase := range cases {
		token, err := BearerToken(testCase.header)
		if testCase.ok {
			if err != nil || token != testCase.token {
				t.Fatalf("BearerToken(%q) = %q, %v", testCase.header, token, err)
			}
			continue
		}
		if !errors.Is(err, ErrMissingBearerToken) {
			t.Fatalf("BearerToken(%q) expected error, got %q", testCase.header, token)
		}
	}
}
