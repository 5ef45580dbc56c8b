package config

import "time"

type CacheConfig interface {
	GetCacheTTL() time.Duration
	GetCacheMaxItems() int
}

type Cache struct{}

var _ CacheConfig = Cache{}

func (Cache) GetCacheTTL() time.Duration {
	return 5 * time.Minute
}

func (Cache) GetCacheMaxItems() int {
	return 100
}
