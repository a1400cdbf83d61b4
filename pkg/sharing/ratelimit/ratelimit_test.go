package ratelimit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scratchdata/sharelinks/pkg/storage/cache/lru"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/memory"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Increment(string, time.Duration) (models.Counter, error) {
	return models.Counter{}, errors.New("cache down")
}
func (failingStore) Read(string) (models.Counter, bool) { return models.Counter{}, false }
func (failingStore) Expire(string)                      {}

func TestCheck(t *testing.T) {
	for name, newStore := range map[string]func() (Store, error){
		"memory": func() (Store, error) { return memory.NewStorage(nil) },
		"lru":    func() (Store, error) { return lru.NewStorage(nil) },
	} {
		t.Run(name, func(t *testing.T) {
			store, err := newStore()
			require.NoError(t, err)
			l := New(store, 3, time.Minute)

			for i := 0; i < 3; i++ {
				assert.True(t, l.Check("tok", "10.0.0.1").Allowed)
			}

			res := l.Check("tok", "10.0.0.1")
			assert.False(t, res.Allowed)
			assert.Equal(t, int64(4), res.Count)
			assert.Greater(t, res.RetryAfter, time.Duration(0))
			assert.LessOrEqual(t, res.RetryAfter, time.Minute)

			// other sources and other tokens have their own budget
			assert.True(t, l.Check("tok", "10.0.0.2").Allowed)
			assert.True(t, l.Check("other", "10.0.0.1").Allowed)

			assert.Equal(t, int64(4), l.Attempts("tok", "10.0.0.1"))
			l.Reset("tok", "10.0.0.1")
			assert.Equal(t, int64(0), l.Attempts("tok", "10.0.0.1"))
			assert.True(t, l.Check("tok", "10.0.0.1").Allowed)
		})
	}
}

func TestWindowExpiry(t *testing.T) {
	store, err := memory.NewStorage(nil)
	require.NoError(t, err)
	l := New(store, 1, 40*time.Millisecond)

	assert.True(t, l.Check("tok", "src").Allowed)
	assert.False(t, l.Check("tok", "src").Allowed)

	time.Sleep(80 * time.Millisecond)
	assert.True(t, l.Check("tok", "src").Allowed)
}

func TestFailsOpen(t *testing.T) {
	l := New(failingStore{}, 1, time.Minute)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Check("tok", "src").Allowed)
	}
}

func TestKeyDoesNotContainToken(t *testing.T) {
	k := key("super-secret-token", "10.0.0.1")
	assert.False(t, strings.Contains(k, "super-secret-token"))
	assert.True(t, strings.HasSuffix(k, "|10.0.0.1"))
	assert.Equal(t, k, key("super-secret-token", "10.0.0.1"))
}
