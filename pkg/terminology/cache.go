package terminology

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medguard-interaction-server/internal/domain"
)

// CacheConfig represents configuration for the distributed resolution cache.
type CacheConfig struct {
	RedisURL   string        `json:"redis_url"`
	DefaultTTL time.Duration `json:"default_ttl"`
	PoolSize   int           `json:"pool_size"`
	MaxRetries int           `json:"max_retries"`
}

// IdentityCache wraps a Redis client with caching for resolved drug
// identities shared across server instances. Entries are keyed by the
// normalized input name plus the dataset version, so a version bump
// invalidates every stale resolution.
type IdentityCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// cachedIdentity wraps the stored identity with expiry metadata.
type cachedIdentity struct {
	Data      *domain.DrugIdentity `json:"data"`
	CachedAt  time.Time            `json:"cached_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// NewIdentityCache creates a new distributed identity cache.
func NewIdentityCache(config CacheConfig) (*IdentityCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 24 * time.Hour
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &IdentityCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// GetIdentity retrieves a cached identity for a normalized name.
func (c *IdentityCache) GetIdentity(ctx context.Context, normalizedName, datasetVersion string) (*domain.DrugIdentity, bool, error) {
	key := c.identityKey(normalizedName, datasetVersion)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get identity cache: %w", err)
	}

	var cached cachedIdentity
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// SetIdentity caches a resolution outcome, resolved or not.
func (c *IdentityCache) SetIdentity(ctx context.Context, normalizedName, datasetVersion string, identity *domain.DrugIdentity, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	key := c.identityKey(normalizedName, datasetVersion)

	cached := cachedIdentity{
		Data:      identity,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal identity cache data: %w", err)
	}

	return c.redis.Set(ctx, key, jsonData, ttl).Err()
}

// InvalidateIdentity removes the cached resolution for a normalized name.
func (c *IdentityCache) InvalidateIdentity(ctx context.Context, normalizedName, datasetVersion string) error {
	return c.redis.Del(ctx, c.identityKey(normalizedName, datasetVersion)).Err()
}

// Ping checks if the Redis connection is alive.
func (c *IdentityCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *IdentityCache) Close() error {
	return c.redis.Close()
}

// identityKey creates a standardized cache key for a resolution.
func (c *IdentityCache) identityKey(normalizedName, datasetVersion string) string {
	hash := sha256.Sum256([]byte(normalizedName))
	return fmt.Sprintf("drug:identity:%s:%x", datasetVersion, hash[:8])
}
