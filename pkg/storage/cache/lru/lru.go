package lru

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/models"
	"github.com/scratchdata/sharelinks/pkg/util"
)

type Settings struct {
	Size int `mapstructure:"size"`
	// Upper bound on how long any counter is retained. Keep it at least as
	// long as the rate limit window or counters reset early.
	TTL time.Duration `mapstructure:"ttl"`
}

// Storage keeps counters in a size-bounded LRU so that a flood of distinct
// sources cannot grow memory without limit. The least recently used
// counters are evicted first.
type Storage struct {
	mu    sync.Mutex
	items *expirable.LRU[string, models.Counter]
	now   func() time.Time
}

func NewStorage(settings map[string]any) (*Storage, error) {
	s, err := util.ConfigToStruct[Settings](settings)
	if err != nil {
		return nil, err
	}
	if s.Size <= 0 {
		s.Size = 10_000
	}
	if s.TTL <= 0 {
		s.TTL = 10 * time.Minute
	}

	rc := &Storage{
		items: expirable.NewLRU[string, models.Counter](s.Size, nil, s.TTL),
		now:   time.Now,
	}
	return rc, nil
}

func (s *Storage) Increment(key string, window time.Duration) (models.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	counter, ok := s.items.Get(key)
	if !ok || !now.Before(counter.ExpiresAt) {
		counter = models.Counter{ExpiresAt: now.Add(window)}
	}
	counter.Count++
	s.items.Add(key, counter)

	return counter, nil
}

func (s *Storage) Read(key string) (models.Counter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.items.Get(key)
	if !ok || !s.now().Before(counter.ExpiresAt) {
		return models.Counter{}, false
	}
	return counter, true
}

func (s *Storage) Expire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Remove(key)
}
