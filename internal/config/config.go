package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                  = "STUDYASIST"
	defaultHTTPAddress         = "0.0.0.0:8000"
	defaultAPIPrefix           = "/api"
	defaultDatabaseURL         = "sqlite:///./studyasist.db"
	defaultLogLevel            = "info"
	defaultTokenAlgorithm      = "HS256"
	defaultTokenTTLMinutes     = 60 * 24 * 7
	defaultJWKSCacheTTLMinutes = 10
	defaultJWKSTimeoutSeconds  = 5
	defaultGoogleJWKSURL       = "https://www.googleapis.com/oauth2/v3/certs"
	defaultAppleBundleID       = "com.studyasist"
	defaultAppleJWKSURL        = "https://appleid.apple.com/auth/keys"
	defaultCORSOrigins         = "*"
)

var supportedAlgorithms = map[string]struct{}{
	"HS256": {},
	"HS384": {},
	"HS512": {},
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	APIPrefix      string
	DatabaseURL    string
	SigningSecret  string
	TokenAlgorithm string
	TokenTTL       time.Duration
	JWKSCacheTTL   time.Duration
	JWKSTimeout    time.Duration
	GoogleClientID string
	GoogleJWKSURL  string
	AppleBundleID  string
	AppleJWKSURL   string
	CORSOrigins    []string
	RedisURL       string
	LogLevel       string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.api_prefix", defaultAPIPrefix)
	configViper.SetDefault("database.url", defaultDatabaseURL)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.algorithm", defaultTokenAlgorithm)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("auth.jwks_cache_ttl_minutes", defaultJWKSCacheTTLMinutes)
	configViper.SetDefault("auth.jwks_timeout_seconds", defaultJWKSTimeoutSeconds)
	configViper.SetDefault("google.client_id", "")
	configViper.SetDefault("google.jwks_url", defaultGoogleJWKSURL)
	configViper.SetDefault("apple.bundle_id", defaultAppleBundleID)
	configViper.SetDefault("apple.jwks_url", defaultAppleJWKSURL)
	configViper.SetDefault("cors.origins", defaultCORSOrigins)
	configViper.SetDefault("redis.url", "")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	appleBundleID := strings.TrimSpace(configViper.GetString("apple.bundle_id"))
	if appleBundleID == "" {
		appleBundleID = defaultAppleBundleID
	}

	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		APIPrefix:      normalizePrefix(configViper.GetString("http.api_prefix")),
		DatabaseURL:    strings.TrimSpace(configViper.GetString("database.url")),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenAlgorithm: strings.ToUpper(strings.TrimSpace(configViper.GetString("auth.algorithm"))),
		TokenTTL:       time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		JWKSCacheTTL:   time.Duration(configViper.GetInt("auth.jwks_cache_ttl_minutes")) * time.Minute,
		JWKSTimeout:    time.Duration(configViper.GetInt("auth.jwks_timeout_seconds")) * time.Second,
		GoogleClientID: strings.TrimSpace(configViper.GetString("google.client_id")),
		GoogleJWKSURL:  strings.TrimSpace(configViper.GetString("google.jwks_url")),
		AppleBundleID:  appleBundleID,
		AppleJWKSURL:   strings.TrimSpace(configViper.GetString("apple.jwks_url")),
		CORSOrigins:    splitOrigins(configViper.GetString("cors.origins")),
		RedisURL:       strings.TrimSpace(configViper.GetString("redis.url")),
		LogLevel:       configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if _, ok := supportedAlgorithms[c.TokenAlgorithm]; !ok {
		return fmt.Errorf("auth.algorithm %q is not supported", c.TokenAlgorithm)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.GoogleJWKSURL == "" {
		return fmt.Errorf("google.jwks_url is required")
	}
	if c.AppleJWKSURL == "" {
		return fmt.Errorf("apple.jwks_url is required")
	}
	return nil
}

func normalizePrefix(value string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

func splitOrigins(value string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(value, ",") {
		normalized := strings.TrimSpace(origin)
		if normalized == "" {
			continue
		}
		origins = append(origins, normalized)
	}
	if len(origins) == 0 {
		return []string{defaultCORSOrigins}
	}
	return origins
}
