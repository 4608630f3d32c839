package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultJWKSCacheTTL     = 10 * time.Minute
	defaultJWKSFetchTimeout = 5 * time.Second
)

var (
	errKeyNotFound    = errors.New("signing key not found in JWKS")
	errNoUsableKeys   = errors.New("jwks document contained no usable keys")
	errMissingJWKSURL = errors.New("jwks url configuration required")
)

// KeySetCache stores parsed provider signing keys keyed by JWKS URL.
type KeySetCache interface {
	Get(ctx context.Context, jwksURL string) (map[string]*rsa.PublicKey, bool)
	Set(ctx context.Context, jwksURL string, keys map[string]*rsa.PublicKey, ttl time.Duration) error
}

type keySourceConfig struct {
	JWKSURL      string
	HTTPClient   *http.Client
	Cache        KeySetCache
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

// keySource resolves RSA signing keys by key id, refreshing the JWKS document on a miss.
type keySource struct {
	jwksURL      string
	httpClient   *http.Client
	cache        KeySetCache
	cacheTTL     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
}

func newKeySource(cfg keySourceConfig) *keySource {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultJWKSCacheTTL
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultJWKSFetchTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryKeySetCache(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &keySource{
		jwksURL:      cfg.JWKSURL,
		httpClient:   httpClient,
		cache:        cache,
		cacheTTL:     cacheTTL,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

func (s *keySource) lookup(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	if keys, ok := s.cache.Get(ctx, s.jwksURL); ok {
		if key := keys[keyID]; key != nil {
			return key, nil
		}
	}

	keys, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, s.jwksURL, keys, s.cacheTTL); err != nil {
		s.logger.Warn("jwks cache store failed", zap.String("jwks_url", s.jwksURL), zap.Error(err))
	}

	if key := keys[keyID]; key != nil {
		return key, nil
	}
	return nil, errKeyNotFound
}

func (s *keySource) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if s.jwksURL == "" {
		return nil, errMissingJWKSURL
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, s.jwksURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks request returned status %d", response.StatusCode)
	}

	var document jwksDocument
	if err := json.NewDecoder(response.Body).Decode(&document); err != nil {
		return nil, err
	}

	keyMap := document.publicKeys(s.logger)
	if len(keyMap) == 0 {
		return nil, errNoUsableKeys
	}
	return keyMap, nil
}

type memoryKeySetEntry struct {
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// MemoryKeySetCache keeps key sets in process memory.
type MemoryKeySetCache struct {
	mu      sync.RWMutex
	entries map[string]memoryKeySetEntry
	clock   func() time.Time
}

// NewMemoryKeySetCache constructs an in-process cache; a nil clock defaults to time.Now.
func NewMemoryKeySetCache(clock func() time.Time) *MemoryKeySetCache {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryKeySetCache{
		entries: make(map[string]memoryKeySetEntry),
		clock:   clock,
	}
}

func (c *MemoryKeySetCache) Get(_ context.Context, jwksURL string) (map[string]*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[jwksURL]
	if !ok || c.clock().After(entry.expiresAt) {
		return nil, false
	}
	return entry.keys, true
}

func (c *MemoryKeySetCache) Set(_ context.Context, jwksURL string, keys map[string]*rsa.PublicKey, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[jwksURL] = memoryKeySetEntry{
		keys:      keys,
		expiresAt: c.clock().Add(ttl),
	}
	return nil
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

func (d jwksDocument) publicKeys(logger *zap.Logger) map[string]*rsa.PublicKey {
	keyMap := make(map[string]*rsa.PublicKey, len(d.Keys))
	for _, key := range d.Keys {
		if key.KeyType != "RSA" || (key.Use != "" && key.Use != "sig") {
			continue
		}
		publicKey, err := key.toRSAPublicKey()
		if err != nil {
			logger.Debug("skipping jwk", zap.String("kid", key.KeyID), zap.Error(err))
			continue
		}
		keyMap[key.KeyID] = publicKey
	}
	return keyMap
}

type jwk struct {
	KeyType string `json:"kty"`
	Alg     string `json:"alg,omitempty"`
	KeyID   string `json:"kid"`
	Use     string `json:"use,omitempty"`
	Modulus string `json:"n"`
	Exp     string `json:"e"`
}

func jwkFromRSAPublicKey(keyID string, key *rsa.PublicKey) jwk {
	return jwk{
		KeyType: "RSA",
		Alg:     "RS256",
		KeyID:   keyID,
		Use:     "sig",
		Modulus: base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		Exp:     base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

func (k jwk) toRSAPublicKey() (*rsa.PublicKey, error) {
	modulusBytes, err := base64.RawURLEncoding.DecodeString(k.Modulus)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus encoding: %w", err)
	}
	exponentBytes, err := base64.RawURLEncoding.DecodeString(k.Exp)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent encoding: %w", err)
	}

	if len(modulusBytes) == 0 {
		return nil, errors.New("missing modulus bytes")
	}
	if len(exponentBytes) == 0 {
		return nil, errors.New("missing exponent bytes")
	}

	exponent := 0
	for _, b := range exponentBytes {
		exponent = exponent<<8 + int(b)
	}
	if exponent == 0 {
		return nil, errors.New("invalid exponent value")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulusBytes),
		E: exponent,
	}, nil
}
