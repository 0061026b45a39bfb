package worker

import (
	"context"
	"time"

	"github.com/crewbuild/sitesync/internal/cachestore"
	"github.com/crewbuild/sitesync/internal/logger"
	"github.com/crewbuild/sitesync/internal/metrics"
)

// EvictionJob removes cached rows older than the configured age. Eviction is
// an age-based safety valve: a row refreshed by any sync pass gets a new
// timestamp and survives.
type EvictionJob struct {
	cache  *cachestore.Manager
	maxAge time.Duration
}

// NewEvictionJob creates an eviction job. A zero maxAge falls back to the
// cache manager's default.
func NewEvictionJob(cache *cachestore.Manager, maxAge time.Duration) *EvictionJob {
	return &EvictionJob{
		cache:  cache,
		maxAge: maxAge,
	}
}

// Process runs one eviction pass
func (j *EvictionJob) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Debug(LogMsgCacheEvictionStarting, "max_age", j.maxAge)

	evicted, err := j.cache.EvictOlderThan(ctx, j.maxAge)
	if err != nil {
		log.Error(LogMsgCacheEvictionFailed, "error", err)
		return err
	}

	if evicted > 0 {
		metrics.CacheEvictions.Add(float64(evicted))
	}

	log.Info(LogMsgCacheEvictionCompleted, "evicted", evicted)
	return nil
}
