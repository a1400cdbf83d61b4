package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settings struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	Window       time.Duration `mapstructure:"window"`
}

func TestConfigToStruct(t *testing.T) {
	s, err := ConfigToStruct[settings](map[string]any{
		"dsn":            "file::memory:",
		"max_open_conns": "4",
		"window":         "30s",
	})
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", s.DSN)
	assert.Equal(t, 4, s.MaxOpenConns)
	assert.Equal(t, 30*time.Second, s.Window)
}

func TestConfigToStructNil(t *testing.T) {
	s, err := ConfigToStruct[settings](nil)
	require.NoError(t, err)
	assert.Equal(t, settings{}, *s)
}

func TestConfigToStructBadValue(t *testing.T) {
	_, err := ConfigToStruct[settings](map[string]any{"max_open_conns": "many"})
	assert.Error(t, err)
}

func TestFreeDiskSpace(t *testing.T) {
	free, err := FreeDiskSpace(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))

	_, err = FreeDiskSpace("/does/not/exist")
	assert.Error(t, err)
}
