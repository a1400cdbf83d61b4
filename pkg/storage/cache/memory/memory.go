package memory

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/models"
	"github.com/scratchdata/sharelinks/pkg/util"
)

type Settings struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Storage keeps counters in a process-local go-cache instance.
type Storage struct {
	mu    sync.Mutex
	items *gocache.Cache
}

func NewStorage(settings map[string]any) (*Storage, error) {
	s, err := util.ConfigToStruct[Settings](settings)
	if err != nil {
		return nil, err
	}
	if s.CleanupInterval <= 0 {
		s.CleanupInterval = time.Minute
	}

	rc := &Storage{
		items: gocache.New(gocache.NoExpiration, s.CleanupInterval),
	}
	return rc, nil
}

func (s *Storage) Increment(key string, window time.Duration) (models.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.items.Add(key, int64(1), window); err == nil {
		return models.Counter{Count: 1, ExpiresAt: time.Now().Add(window)}, nil
	}

	count, err := s.items.IncrementInt64(key, 1)
	if err != nil {
		// expired between Add and IncrementInt64
		s.items.Set(key, int64(1), window)
		return models.Counter{Count: 1, ExpiresAt: time.Now().Add(window)}, nil
	}

	_, expiresAt, _ := s.items.GetWithExpiration(key)
	return models.Counter{Count: count, ExpiresAt: expiresAt}, nil
}

func (s *Storage) Read(key string) (models.Counter, bool) {
	value, expiresAt, ok := s.items.GetWithExpiration(key)
	if !ok {
		return models.Counter{}, false
	}
	count, ok := value.(int64)
	if !ok {
		return models.Counter{}, false
	}
	return models.Counter{Count: count, ExpiresAt: expiresAt}, true
}

func (s *Storage) Expire(key string) {
	s.items.Delete(key)
}
