package prediction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/COF-H2-Predictor/internal/domain/descriptor"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/prometheus"
)

const (
	descriptorCacheName = "descriptors"
	descriptorKeyPrefix = "desc:"
)

// DescriptorCache is the part of the Redis cache the extractor needs.
type DescriptorCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// CachedExtractor memoises descriptor rows. Rows are only reproducible with a
// fixed conformer seed, so with seed 0 every call goes to the inner
// extractor.
type CachedExtractor struct {
	inner   descriptor.Extractor
	cache   DescriptorCache
	seed    int64
	ttl     time.Duration
	schema  string
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

var _ descriptor.Extractor = (*CachedExtractor)(nil)

// NewCachedExtractor wraps inner. A zero ttl uses the cache default.
func NewCachedExtractor(inner descriptor.Extractor, cache DescriptorCache, seed int64, ttl time.Duration,
	log logging.Logger, metrics *prometheus.AppMetrics) *CachedExtractor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	sum := sha256.Sum256([]byte(strings.Join(inner.Columns(), "\x00")))
	return &CachedExtractor{
		inner:   inner,
		cache:   cache,
		seed:    seed,
		ttl:     ttl,
		schema:  hex.EncodeToString(sum[:8]),
		logger:  log,
		metrics: metrics,
	}
}

// Active reports whether lookups go through the cache.
func (c *CachedExtractor) Active() bool { return c.cache != nil && c.seed != 0 }

// Columns implements descriptor.Extractor.
func (c *CachedExtractor) Columns() []string { return c.inner.Columns() }

// Extract implements descriptor.Extractor.
func (c *CachedExtractor) Extract(ctx context.Context, smiles string) (*frame.Table, error) {
	if !c.Active() {
		return c.inner.Extract(ctx, smiles)
	}

	key := c.key(smiles)
	loaded := false
	var tbl frame.Table
	err := c.cache.GetOrSet(ctx, key, &tbl, c.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return c.inner.Extract(ctx, smiles)
	})
	if err != nil {
		if loaded {
			return nil, err
		}
		c.logger.Warn("descriptor cache unavailable", logging.String("key", key), logging.Err(err))
		prometheus.RecordCacheAccess(c.metrics, descriptorCacheName, false)
		return c.inner.Extract(ctx, smiles)
	}
	prometheus.RecordCacheAccess(c.metrics, descriptorCacheName, !loaded)
	if len(tbl.Rows) == 0 {
		return frame.Empty(), nil
	}
	return &tbl, nil
}

// Purge drops every cached descriptor row, whatever its column schema or
// seed, and returns the number of entries removed.
func (c *CachedExtractor) Purge(ctx context.Context) (int64, error) {
	if c.cache == nil {
		return 0, nil
	}
	n, err := c.cache.DeleteByPrefix(ctx, descriptorKeyPrefix)
	if err != nil {
		return n, err
	}
	c.logger.Info("descriptor cache purged", logging.Int64("entries", n))
	return n, nil
}

// key is stable across processes for one column schema and seed.
func (c *CachedExtractor) key(smiles string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(smiles)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(c.seed, 10)))
	return descriptorKeyPrefix + c.schema + ":" + hex.EncodeToString(h.Sum(nil))
}

//Personal.AI order the ending
