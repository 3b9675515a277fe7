// Package cache provides in-process caching for derived simulation results.
//
// Pattern analyses are pure functions of their stored sequence, so a repeated
// analysis request for the same patient and site can be served from memory
// until the underlying sequence changes or the entry expires.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/neurosim-server/internal/domain"
)

const (
	defaultAnalysisCacheSize = 512
	defaultAnalysisCacheTTL  = 15 * time.Minute
)

// AnalysisStats tracks cache effectiveness counters.
type AnalysisStats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Evictions int64     `json:"evictions"`
	LastReset time.Time `json:"last_reset"`
}

// AnalysisCache is an expiring LRU of pattern analysis results keyed by
// patient, region and neurotransmitter. Entries invalidate as a group per
// patient when new data arrives for that patient.
type AnalysisCache struct {
	lru    *expirable.LRU[string, *domain.PatternAnalysis]
	logger *logrus.Logger

	statsMu sync.RWMutex
	stats   AnalysisStats
}

// NewAnalysisCache creates an analysis cache. Zero size or TTL select the
// defaults.
func NewAnalysisCache(size int, ttl time.Duration, logger *logrus.Logger) *AnalysisCache {
	if size <= 0 {
		size = defaultAnalysisCacheSize
	}
	if ttl <= 0 {
		ttl = defaultAnalysisCacheTTL
	}
	if logger == nil {
		logger = logrus.New()
	}

	c := &AnalysisCache{
		logger: logger,
		stats:  AnalysisStats{LastReset: time.Now()},
	}
	c.lru = expirable.NewLRU[string, *domain.PatternAnalysis](size, func(key string, _ *domain.PatternAnalysis) {
		c.statsMu.Lock()
		c.stats.Evictions++
		c.statsMu.Unlock()
	}, ttl)

	return c
}

func analysisKey(patientID string, region domain.BrainRegion, nt domain.Neurotransmitter) string {
	return fmt.Sprintf("%s|%s|%s", patientID, region, nt)
}

// Get returns a cached analysis, or nil on miss.
func (c *AnalysisCache) Get(patientID string, region domain.BrainRegion, nt domain.Neurotransmitter) *domain.PatternAnalysis {
	analysis, ok := c.lru.Get(analysisKey(patientID, region, nt))

	c.statsMu.Lock()
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.statsMu.Unlock()

	if !ok {
		return nil
	}
	return analysis
}

// Put stores an analysis result under the requested coordinates. The key is
// the caller's lookup triple, which may name a different region than the
// sequence the analysis was computed from.
func (c *AnalysisCache) Put(patientID string, region domain.BrainRegion, nt domain.Neurotransmitter, analysis *domain.PatternAnalysis) {
	if analysis == nil {
		return
	}
	c.lru.Add(analysisKey(patientID, region, nt), analysis)

	c.logger.WithFields(logrus.Fields{
		"patient_id":       patientID,
		"region":           region,
		"neurotransmitter": nt,
	}).Debug("Cached pattern analysis")
}

// InvalidatePatient drops every cached analysis for one patient. Called when
// new sequences or treatments land for that patient.
func (c *AnalysisCache) InvalidatePatient(patientID string) int {
	prefix := patientID + "|"
	removed := 0
	for _, key := range c.lru.Keys() {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			c.lru.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"removed":    removed,
		}).Debug("Invalidated cached analyses")
	}
	return removed
}

// Purge empties the cache.
func (c *AnalysisCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *AnalysisCache) Len() int {
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *AnalysisCache) Stats() AnalysisStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}
