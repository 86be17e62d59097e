package cache

import "time"

// CacheInterface defines the interface for cache operations
type CacheInterface interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, ttl time.Duration) error
	Delete(key string) error
	GenerateFeedKey(feedName string) string
	SetGeneratedFeed(feedName, rssContent string, ttl time.Duration) error
	GetGeneratedFeed(feedName string) (string, bool, error)
	InvalidateGeneratedFeed(feedName string) error
	Health() map[string]interface{}
	Close() error
}
