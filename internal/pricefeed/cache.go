package pricefeed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no quote is stored for a symbol.
var ErrCacheMiss = errors.New("pricefeed: cache miss")

// Cache stores the last good quote per symbol.
type Cache interface {
	Get(ctx context.Context, symbol string) (Quote, error)
	Set(ctx context.Context, q Quote) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{quotes: make(map[string]Quote)}
}

func (c *MemoryCache) Get(_ context.Context, symbol string) (Quote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	if !ok {
		return Quote{}, ErrCacheMiss
	}
	return q, nil
}

func (c *MemoryCache) Set(_ context.Context, q Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[q.Symbol] = q
	return nil
}

// RedisConfig holds connection parameters for RedisCache.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
	TTL        time.Duration
}

// RedisCache stores quotes as hashes at "spot:{SYMBOL}" with fields
// "price", "source" and "ts" (unix nanoseconds).
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newRedisCache(rdb, cfg.TTL), nil
}

func newRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func spotKey(symbol string) string { return "spot:" + symbol }

// Set stores q and refreshes the key TTL.
func (c *RedisCache) Set(ctx context.Context, q Quote) error {
	key := spotKey(q.Symbol)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"price":  strconv.FormatFloat(q.Price, 'f', -1, 64),
		"source": q.Source,
		"ts":     strconv.FormatInt(q.At.UnixNano(), 10),
	})
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set spot %s: %w", q.Symbol, err)
	}
	return nil
}

// Get returns the stored quote, or ErrCacheMiss when the hash or one of its
// price and ts fields is absent.
func (c *RedisCache) Get(ctx context.Context, symbol string) (Quote, error) {
	vals, err := c.rdb.HGetAll(ctx, spotKey(symbol)).Result()
	if err != nil {
		return Quote{}, fmt.Errorf("redis: get spot %s: %w", symbol, err)
	}
	priceStr, ok := vals["price"]
	if !ok {
		return Quote{}, ErrCacheMiss
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return Quote{}, ErrCacheMiss
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Quote{}, fmt.Errorf("redis: parse ts %s: %w", symbol, err)
	}
	return Quote{
		Symbol: symbol,
		Price:  price,
		Source: vals["source"],
		At:     time.Unix(0, tsNano),
	}, nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
