package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrement(t *testing.T) {
	s, err := NewStorage(nil)
	require.NoError(t, err)

	for i := int64(1); i <= 3; i++ {
		c, err := s.Increment("k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, c.Count)
		assert.True(t, c.ExpiresAt.After(time.Now()))
	}

	c, ok := s.Read("k")
	require.True(t, ok)
	assert.Equal(t, int64(3), c.Count)

	s.Expire("k")
	_, ok = s.Read("k")
	assert.False(t, ok)
}

func TestIncrementWindowResets(t *testing.T) {
	s, err := NewStorage(map[string]any{"cleanup_interval": "10ms"})
	require.NoError(t, err)

	_, err = s.Increment("k", 30*time.Millisecond)
	require.NoError(t, err)
	_, err = s.Increment("k", 30*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, ok := s.Read("k")
	assert.False(t, ok)

	c, err := s.Increment("k", 30*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Count)
}

func TestIncrementConcurrent(t *testing.T) {
	s, err := NewStorage(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increment("k", time.Minute)
		}()
	}
	wg.Wait()

	c, ok := s.Read("k")
	require.True(t, ok)
	assert.Equal(t, int64(50), c.Count)
}
