package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	require.NoError(t, err)

	require.Equal(t, defaultHTTPAddress, cfg.HTTPAddress)
	require.Equal(t, "/api", cfg.APIPrefix)
	require.Equal(t, defaultDatabaseURL, cfg.DatabaseURL)
	require.Equal(t, "HS256", cfg.TokenAlgorithm)
	require.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 5*time.Second, cfg.JWKSTimeout)
	require.Equal(t, "com.studyasist", cfg.AppleBundleID)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Empty(t, cfg.GoogleClientID)
	require.Empty(t, cfg.RedisURL)
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	_, err := Load(NewViper())
	require.Error(t, err)
	require.Contains(t, err.Error(), "auth.signing_secret")
}

func TestLoadRejectsUnsupportedAlgorithm(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("auth.algorithm", "RS256")

	_, err := Load(configViper)
	require.Error(t, err)
}

func TestLoadNormalizesOriginsPrefixAndBundle(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("auth.algorithm", "hs512")
	configViper.Set("http.api_prefix", "v1/")
	configViper.Set("apple.bundle_id", "  ")
	configViper.Set("cors.origins", "https://a.example.com, ,https://b.example.com")

	cfg, err := Load(configViper)
	require.NoError(t, err)
	require.Equal(t, "HS512", cfg.TokenAlgorithm)
	require.Equal(t, "/v1", cfg.APIPrefix)
	require.Equal(t, "com.studyasist", cfg.AppleBundleID)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("STUDYASIST_AUTH_SIGNING_SECRET", "env-secret")
	t.Setenv("STUDYASIST_GOOGLE_CLIENT_ID", "client.apps.googleusercontent.com")
	t.Setenv("STUDYASIST_AUTH_TOKEN_TTL_MINUTES", "30")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, "env-secret", cfg.SigningSecret)
	require.Equal(t, "client.apps.googleusercontent.com", cfg.GoogleClientID)
	require.Equal(t, 30*time.Minute, cfg.TokenTTL)
}
