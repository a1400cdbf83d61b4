package cache

import (
	"fmt"
	"time"

	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/lru"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/memory"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/models"
)

// Cache holds short-lived counters keyed by string. Counters are
// best-effort: they may be evicted early and are lost on restart.
type Cache interface {
	// Increment adds one to key. A missing or expired counter starts a new
	// window that ends after window.
	Increment(key string, window time.Duration) (models.Counter, error)
	Read(key string) (models.Counter, bool)
	Expire(key string)
}

func NewCache(conf config.Cache) (Cache, error) {
	switch conf.Type {
	case "memory", "":
		return memory.NewStorage(conf.Settings)
	case "lru":
		return lru.NewStorage(conf.Settings)
	}

	return nil, fmt.Errorf("unsupported cache type: %q", conf.Type)
}
