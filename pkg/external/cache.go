package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neurosim-server/internal/domain"
)

// CacheClient wraps a Redis client with caching for prediction API responses.
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a Redis-backed prediction cache.
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

// CachedPrediction wraps a cached prediction with cache metadata.
type CachedPrediction struct {
	Data      *domain.TreatmentPrediction `json:"data"`
	CachedAt  time.Time                   `json:"cached_at"`
	ExpiresAt time.Time                   `json:"expires_at"`
}

// GetPrediction retrieves a cached prediction for the request. The second
// return reports whether the cache held a live entry.
func (c *CacheClient) GetPrediction(ctx context.Context, req *domain.PredictionRequest) (*domain.TreatmentPrediction, bool, error) {
	key := predictionCacheKey(req)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get prediction cache: %w", err)
	}

	var cached CachedPrediction
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

// SetPrediction caches a prediction response. A zero TTL selects the default.
func (c *CacheClient) SetPrediction(ctx context.Context, req *domain.PredictionRequest, data *domain.TreatmentPrediction, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := CachedPrediction{
		Data:      data,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction cache data: %w", err)
	}

	return c.redis.Set(ctx, predictionCacheKey(req), jsonData, ttl).Err()
}

// InvalidatePatient removes all cached predictions for one patient.
func (c *CacheClient) InvalidatePatient(ctx context.Context, patientID string) error {
	return c.InvalidatePattern(ctx, fmt.Sprintf("prediction:%s:*", patientID))
}

// InvalidatePattern removes all cached entries matching a key pattern.
func (c *CacheClient) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("failed to get keys for pattern %s: %w", pattern, err)
	}

	if len(keys) == 0 {
		return nil
	}

	return c.redis.Del(ctx, keys...).Err()
}

// Ping checks whether the Redis connection is alive.
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

// predictionCacheKey derives a stable cache key from the request. The patient
// stays visible in the key so per-patient invalidation can match on a prefix
// pattern; the rest of the request is hashed. json.Marshal emits map keys in
// sorted order, so equal requests always hash alike.
func predictionCacheKey(req *domain.PredictionRequest) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("prediction:%s:%x", req.PatientID, hash[:8])
}
