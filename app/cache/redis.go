package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the Redis client. It stores generated feed XML so repeated
// requests between refresh cycles skip the database, and raw platform lookup
// responses used during discovery.
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

var _ CacheInterface = (*Cache)(nil)

func NewCache(addr string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Debug("Connected to Redis", "addr", addr)

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// Get retrieves a value. A missing key returns "" with no error.
func (c *Cache) Get(key string) (string, error) {
	val, err := c.client.Get(c.ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value with a TTL. Non-string values are JSON-encoded.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	var data []byte
	var err error

	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		data, err = json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
		}
	}

	if err := c.client.Set(c.ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	return nil
}

func (c *Cache) Delete(key string) error {
	if err := c.client.Del(c.ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GenerateFeedKey generates a consistent cache key for a feed name.
func (c *Cache) GenerateFeedKey(feedName string) string {
	hash := sha256.Sum256([]byte(feedName))
	return fmt.Sprintf("feed:%x", hash[:8])
}

// SetGeneratedFeed stores generated feed XML.
func (c *Cache) SetGeneratedFeed(feedName, rssContent string, ttl time.Duration) error {
	return c.Set(c.GenerateFeedKey(feedName), rssContent, ttl)
}

// GetGeneratedFeed retrieves generated feed XML, reporting whether it was a
// cache hit.
func (c *Cache) GetGeneratedFeed(feedName string) (string, bool, error) {
	content, err := c.Get(c.GenerateFeedKey(feedName))
	if err != nil {
		return "", false, err
	}
	if content == "" {
		return "", false, nil
	}
	return content, true, nil
}

// InvalidateGeneratedFeed drops the cached XML for a feed, used after
// refilter and reload operations so clients see changes immediately.
func (c *Cache) InvalidateGeneratedFeed(feedName string) error {
	return c.Delete(c.GenerateFeedKey(feedName))
}

func (c *Cache) Health() map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"type":   "redis",
	}

	if err := c.client.Ping(c.ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	if dbSize, err := c.client.DBSize(c.ctx).Result(); err == nil {
		health["key_count"] = dbSize
	}

	return health
}

func (c *Cache) Close() error {
	return c.client.Close()
}
