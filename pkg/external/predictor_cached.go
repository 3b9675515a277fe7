package external

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
)

// CachedPredictor layers two caches in front of a treatment-response
// predictor: an in-memory LRU for hot entries and an optional Redis tier for
// warm ones. Identical prediction requests within the TTL window never reach
// the external API twice.
type CachedPredictor struct {
	inner domain.TreatmentResponsePredictor

	memoryCache *lru.Cache   // Tier 1: in-memory LRU (hot data)
	redisCache  *CacheClient // Tier 2: Redis distributed cache (warm data)

	memoryCacheTTL time.Duration
	redisCacheTTL  time.Duration

	logger  *logrus.Logger
	stats   CacheStats
	statsMu sync.RWMutex
}

// CacheStats represents cache performance counters for the predictor.
type CacheStats struct {
	MemoryHits    int64     `json:"memory_hits"`
	MemoryMisses  int64     `json:"memory_misses"`
	RedisHits     int64     `json:"redis_hits"`
	RedisMisses   int64     `json:"redis_misses"`
	ExternalCalls int64     `json:"external_calls"`
	TotalRequests int64     `json:"total_requests"`
	ErrorCount    int64     `json:"error_count"`
	LastReset     time.Time `json:"last_reset"`
}

// CachedPredictorConfig tunes the caching tiers. Zero values select the
// defaults.
type CachedPredictorConfig struct {
	MemoryCacheTTL time.Duration `json:"memory_cache_ttl"`
	RedisCacheTTL  time.Duration `json:"redis_cache_ttl"`
	MaxMemorySize  int           `json:"max_memory_size"`
}

// NewCachedPredictor wraps a predictor with the two cache tiers. A nil Redis
// client disables the second tier.
func NewCachedPredictor(
	inner domain.TreatmentResponsePredictor,
	config CachedPredictorConfig,
	redisCache *CacheClient,
	logger *logrus.Logger,
) (*CachedPredictor, error) {
	if inner == nil {
		return nil, fmt.Errorf("cached predictor requires an inner predictor")
	}
	if config.MemoryCacheTTL == 0 {
		config.MemoryCacheTTL = 15 * time.Minute
	}
	if config.RedisCacheTTL == 0 {
		config.RedisCacheTTL = 24 * time.Hour
	}
	if config.MaxMemorySize == 0 {
		config.MaxMemorySize = 1000
	}
	if logger == nil {
		logger = logrus.New()
	}

	memoryCache, err := lru.New(config.MaxMemorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &CachedPredictor{
		inner:          inner,
		memoryCache:    memoryCache,
		redisCache:     redisCache,
		memoryCacheTTL: config.MemoryCacheTTL,
		redisCacheTTL:  config.RedisCacheTTL,
		logger:         logger,
		stats:          CacheStats{LastReset: time.Now()},
	}, nil
}

// PredictTreatmentResponse serves the prediction from the fastest tier that
// holds it, filling the tiers above on the way back out.
func (p *CachedPredictor) PredictTreatmentResponse(ctx context.Context, req *domain.PredictionRequest) (*domain.TreatmentPrediction, error) {
	p.incrementStat("total_requests")

	if req == nil {
		p.incrementStat("error_count")
		return nil, fmt.Errorf("prediction request cannot be nil")
	}

	key := predictionCacheKey(req)

	// Tier 1: memory
	if prediction := p.getFromMemoryCache(key); prediction != nil {
		p.incrementStat("memory_hits")
		p.logger.WithFields(logrus.Fields{
			"patient_id": req.PatientID,
			"cache_tier": "memory",
		}).Debug("Prediction cache hit")
		return prediction, nil
	}
	p.incrementStat("memory_misses")

	// Tier 2: Redis
	if prediction := p.getFromRedisCache(ctx, req); prediction != nil {
		p.incrementStat("redis_hits")
		p.logger.WithFields(logrus.Fields{
			"patient_id": req.PatientID,
			"cache_tier": "redis",
		}).Debug("Prediction cache hit")

		// Populate the memory tier for next time.
		p.setInMemoryCache(key, prediction)
		return prediction, nil
	}
	p.incrementStat("redis_misses")

	// Cache miss on both tiers; ask the external API.
	p.incrementStat("external_calls")
	prediction, err := p.inner.PredictTreatmentResponse(ctx, req)
	if err != nil {
		p.incrementStat("error_count")
		return nil, err
	}

	p.setInMemoryCache(key, prediction)
	p.setInRedisCache(ctx, req, prediction)

	return prediction, nil
}

// Invalidate drops every cached prediction for one patient from both tiers.
func (p *CachedPredictor) Invalidate(ctx context.Context, patientID string) error {
	prefix := fmt.Sprintf("prediction:%s:", patientID)
	for _, rawKey := range p.memoryCache.Keys() {
		if key, ok := rawKey.(string); ok && len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			p.memoryCache.Remove(key)
		}
	}

	if p.redisCache != nil {
		if err := p.redisCache.InvalidatePatient(ctx, patientID); err != nil {
			return fmt.Errorf("failed to invalidate Redis predictions: %w", err)
		}
	}

	return nil
}

// Stats returns a snapshot of the cache counters.
func (p *CachedPredictor) Stats() CacheStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func (p *CachedPredictor) getFromMemoryCache(key string) *domain.TreatmentPrediction {
	if value, ok := p.memoryCache.Get(key); ok {
		if entry, ok := value.(*predictionEntry); ok && !entry.isExpired() {
			return entry.prediction
		}
		// Remove expired entry
		p.memoryCache.Remove(key)
	}
	return nil
}

func (p *CachedPredictor) getFromRedisCache(ctx context.Context, req *domain.PredictionRequest) *domain.TreatmentPrediction {
	if p.redisCache == nil {
		return nil
	}

	prediction, found, err := p.redisCache.GetPrediction(ctx, req)
	if err != nil {
		p.logger.WithError(err).Debug("Redis prediction lookup failed")
		return nil
	}
	if !found {
		return nil
	}
	return prediction
}

func (p *CachedPredictor) setInMemoryCache(key string, prediction *domain.TreatmentPrediction) {
	p.memoryCache.Add(key, &predictionEntry{
		prediction: prediction,
		expiry:     time.Now().Add(p.memoryCacheTTL),
	})
}

func (p *CachedPredictor) setInRedisCache(ctx context.Context, req *domain.PredictionRequest, prediction *domain.TreatmentPrediction) {
	if p.redisCache == nil {
		return
	}
	if err := p.redisCache.SetPrediction(ctx, req, prediction, p.redisCacheTTL); err != nil {
		p.logger.WithError(err).Warn("Failed to cache prediction in Redis")
	}
}

func (p *CachedPredictor) incrementStat(statName string) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	switch statName {
	case "memory_hits":
		p.stats.MemoryHits++
	case "memory_misses":
		p.stats.MemoryMisses++
	case "redis_hits":
		p.stats.RedisHits++
	case "redis_misses":
		p.stats.RedisMisses++
	case "external_calls":
		p.stats.ExternalCalls++
	case "total_requests":
		p.stats.TotalRequests++
	case "error_count":
		p.stats.ErrorCount++
	}
}

type predictionEntry struct {
	prediction *domain.TreatmentPrediction
	expiry     time.Time
}

func (e *predictionEntry) isExpired() bool {
	return time.Now().After(e.expiry)
}
