package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisKeyPrefix = "studyasist:jwks:"

// RedisKeySetCache shares provider key sets between API instances.
type RedisKeySetCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisKeySetCache connects to the Redis instance described by redisURL.
func NewRedisKeySetCache(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisKeySetCache, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisKeySetCache{
		client: client,
		prefix: defaultRedisKeyPrefix,
		logger: logger,
	}, nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisKeySetCache) Close() error {
	return c.client.Close()
}

func (c *RedisKeySetCache) key(jwksURL string) string {
	return c.prefix + jwksURL
}

func (c *RedisKeySetCache) Get(ctx context.Context, jwksURL string) (map[string]*rsa.PublicKey, bool) {
	raw, err := c.client.Get(ctx, c.key(jwksURL)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("jwks cache read failed", zap.String("jwks_url", jwksURL), zap.Error(err))
		}
		return nil, false
	}

	var document jwksDocument
	if err := json.Unmarshal(raw, &document); err != nil {
		c.logger.Warn("jwks cache entry corrupt", zap.String("jwks_url", jwksURL), zap.Error(err))
		return nil, false
	}
	keys := document.publicKeys(c.logger)
	if len(keys) == 0 {
		return nil, false
	}
	return keys, true
}

func (c *RedisKeySetCache) Set(ctx context.Context, jwksURL string, keys map[string]*rsa.PublicKey, ttl time.Duration) error {
	document := jwksDocument{Keys: make([]jwk, 0, len(keys))}
	for keyID, key := range keys {
		document.Keys = append(document.Keys, jwkFromRSAPublicKey(keyID, key))
	}
	raw, err := json.Marshal(document)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(jwksURL), raw, ttl).Err()
}
