package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheService holds the last published directory document in Redis so public page
// views do not each spend a call against the store's rate limit.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// DocumentEntry is a cached copy of a stored file and the version it was read at.
type DocumentEntry struct {
	Data  []byte `json:"data"`
	Token string `json:"token"`
}

func NewCacheService(cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   1,
		DialTimeout:  constants.RedisConfig.DialTimeout,
		ReadTimeout:  constants.RedisConfig.IOTimeout,
		WriteTimeout: constants.RedisConfig.IOTimeout,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.RedisConfig.ReadyTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return NewCacheServiceWithClient(client, cfg.TTL, logger), nil
}

// NewCacheServiceWithClient wraps an existing client without pinging it.
func NewCacheServiceWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheService {
	if ttl <= 0 {
		ttl = constants.CacheTTL.PublicDocument
	}
	return &CacheService{client: client, ttl: ttl, logger: logger}
}

func documentKey(path string) string {
	return constants.RedisConfig.KeyPrefix + "document:" + path
}

// Get decodes the JSON value at key into dest. A missing key reports found=false.
func (c *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.logger.Warn("Cache get failed", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(value, dest); err != nil {
		c.logger.Warn("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Warn("Cache set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *CacheService) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Cache delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache del %s: %w", key, err)
	}
	return nil
}

// GetDocument returns the cached copy of path. Cache failures count as misses.
func (c *CacheService) GetDocument(ctx context.Context, path string) (*DocumentEntry, bool) {
	var entry DocumentEntry
	found, err := c.Get(ctx, documentKey(path), &entry)
	if err != nil || !found {
		return nil, false
	}
	return &entry, true
}

// SetDocument caches data for path with the service TTL. Failures are logged only.
func (c *CacheService) SetDocument(ctx context.Context, path string, entry DocumentEntry) {
	if err := c.Set(ctx, documentKey(path), entry, c.ttl); err != nil {
		c.logger.Warn("Failed to cache document", zap.String("path", path), zap.Error(err))
	}
}

func (c *CacheService) InvalidateDocument(ctx context.Context, path string) {
	if err := c.Del(ctx, documentKey(path)); err != nil {
		c.logger.Warn("Failed to invalidate cached document", zap.String("path", path), zap.Error(err))
	}
}

func (c *CacheService) IsConnected(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
