// Package cache adds a Redis read-through cache for barcode lookups in front of a repository.Store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/barcode-pricing/internal/metrics"
	"github.com/iyhunko/barcode-pricing/internal/model"
	"github.com/iyhunko/barcode-pricing/internal/repository"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "product:"

// Client is the subset of the redis client used by the cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store decorates a repository.Store with a cache of products keyed by barcode.
//
// Only FindByBarcode outside of a transaction reads from the cache. Writes evict the
// barcode they touched, after commit when they run inside WithinTransaction. A load
// that overlaps an eviction of its barcode is not written back. Cache failures are
// logged and never fail the underlying operation.
type Store struct {
	next        repository.Store
	client      Client
	ttl         time.Duration
	group       *singleflight.Group
	generations *generations

	// evictions is set on stores bound to a transaction.
	evictions *evictionSet
}

// NewStore wraps next with a cache backed by client.
func NewStore(next repository.Store, client Client, ttl time.Duration) *Store {
	return &Store{
		next:        next,
		client:      client,
		ttl:         ttl,
		group:       &singleflight.Group{},
		generations: &generations{values: make(map[string]uint64)},
	}
}

// Products returns the cached product repository.
func (s *Store) Products() repository.ProductRepository {
	return &productRepository{next: s.next.Products(), store: s}
}

// Events returns the event repository of the wrapped store.
func (s *Store) Events() repository.EventRepository {
	return s.next.Events()
}

// WithinTransaction runs fn in a transaction of the wrapped store and evicts the
// touched barcodes once it returns.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.evictions != nil {
		return s.next.WithinTransaction(ctx, func(tx repository.Store) error {
			return fn(s.bind(tx, s.evictions))
		})
	}

	evictions := &evictionSet{}
	err := s.next.WithinTransaction(ctx, func(tx repository.Store) error {
		return fn(s.bind(tx, evictions))
	})
	s.evict(ctx, evictions.drain()...)
	return err
}

func (s *Store) bind(tx repository.Store, evictions *evictionSet) *Store {
	return &Store{
		next:        tx,
		client:      s.client,
		ttl:         s.ttl,
		group:       s.group,
		generations: s.generations,
		evictions:   evictions,
	}
}

func (s *Store) invalidate(ctx context.Context, barcode string) {
	if s.evictions != nil {
		s.evictions.add(barcode)
		return
	}
	s.evict(ctx, barcode)
}

func (s *Store) evict(ctx context.Context, barcodes ...string) {
	if len(barcodes) == 0 {
		return
	}
	keys := make([]string, 0, len(barcodes))
	for _, barcode := range barcodes {
		keys = append(keys, cacheKey(barcode))
	}
	s.generations.bump(barcodes...)
	if err := s.client.Del(context.WithoutCancel(ctx), keys...).Err(); err != nil {
		slog.Warn("failed to evict cached products", slog.Any("keys", keys), slog.Any("err", err))
	}
}

func (s *Store) load(ctx context.Context, barcode string) (*model.Product, bool) {
	data, err := s.client.Get(ctx, cacheKey(barcode)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		slog.Warn("cache lookup failed", slog.String("barcode", barcode), slog.Any("err", err))
		return nil, false
	}

	var product model.Product
	if err := json.Unmarshal(data, &product); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		slog.Warn("failed to decode cached product", slog.String("barcode", barcode), slog.Any("err", err))
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &product, true
}

// save caches product unless its barcode was evicted after generation was read.
func (s *Store) save(ctx context.Context, product *model.Product, generation uint64) {
	data, err := json.Marshal(product)
	if err != nil {
		slog.Warn("failed to encode product for cache", slog.String("barcode", product.Barcode), slog.Any("err", err))
		return
	}

	// held across Set so an eviction either sees the value or invalidates the write
	s.generations.mu.Lock()
	defer s.generations.mu.Unlock()
	if s.generations.values[product.Barcode] != generation {
		slog.Debug("skipping cache fill of evicted product", slog.String("barcode", product.Barcode))
		return
	}
	if err := s.client.Set(ctx, cacheKey(product.Barcode), data, s.ttl).Err(); err != nil {
		slog.Warn("failed to cache product", slog.String("barcode", product.Barcode), slog.Any("err", err))
	}
}

func cacheKey(barcode string) string {
	return keyPrefix + barcode
}

type evictionSet struct {
	mu       sync.Mutex
	barcodes []string
}

func (e *evictionSet) add(barcode string) {
	e.mu.Lock()
	e.barcodes = append(e.barcodes, barcode)
	e.mu.Unlock()
}

func (e *evictionSet) drain() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	barcodes := e.barcodes
	e.barcodes = nil
	return barcodes
}

// generations counts evictions per barcode within this process.
type generations struct {
	mu     sync.Mutex
	values map[string]uint64
}

func (g *generations) current(barcode string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.values[barcode]
}

func (g *generations) bump(barcodes ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, barcode := range barcodes {
		g.values[barcode]++
	}
}
