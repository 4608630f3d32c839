package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testKeyID = "test-key"

type testJWKSServer struct {
	server     *httptest.Server
	privateKey *rsa.PrivateKey
	requests   atomic.Int64
}

func newTestJWKSServer(t *testing.T) *testJWKSServer {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := &testJWKSServer{privateKey: privateKey}
	jwksResponse := map[string]any{
		"keys": []any{
			map[string]string{
				"kty": "RSA",
				"alg": "RS256",
				"kid": testKeyID,
				"use": "sig",
				"n":   encodeBigInt(privateKey.PublicKey.N),
				"e":   encodeBigInt(privateKey.PublicKey.E),
			},
		},
	}
	jwksServer.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwksServer.requests.Add(1)
		_ = json.NewEncoder(w).Encode(jwksResponse)
	}))
	t.Cleanup(jwksServer.server.Close)
	return jwksServer
}

func (s *testJWKSServer) URL() string {
	return s.server.URL + "/keys"
}

func (s *testJWKSServer) Client() *http.Client {
	return s.server.Client()
}

func (s *testJWKSServer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func providerClaims(issuer, audience, subject string, now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"aud": audience,
		"iss": issuer,
		"sub": subject,
		"exp": now.Add(5 * time.Minute).Unix(),
		"iat": now.Unix(),
	}
}

func encodeBigInt(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		return base64.RawURLEncoding.EncodeToString(v.Bytes())
	case int:
		return encodeBigInt(int64(v))
	case int64:
		return base64.RawURLEncoding.EncodeToString(big.NewInt(v).Bytes())
	default:
		return ""
	}
}
