package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionValid(t *testing.T) {
	assert.False(t, Permission(0).Valid())
	assert.True(t, ReadOnly.Valid())
	assert.True(t, (AllowCopy | AllowDownload).Valid())
	assert.False(t, Permission(8).Valid())
	assert.False(t, (ReadOnly | Permission(16)).Valid())
}

func TestPermissionJSON(t *testing.T) {
	b, err := json.Marshal(AllowCopy | ReadOnly)
	require.NoError(t, err)
	assert.JSONEq(t, `["read_only","allow_copy"]`, string(b))

	var p Permission
	require.NoError(t, json.Unmarshal([]byte(`["allow_download"]`), &p))
	assert.Equal(t, AllowDownload, p)
	assert.True(t, p.Has(AllowDownload))
	assert.False(t, p.Has(AllowCopy))

	assert.Error(t, json.Unmarshal([]byte(`["allow_everything"]`), &p))
}

func TestParsePermissionEmpty(t *testing.T) {
	p, err := ParsePermission(nil)
	require.NoError(t, err)
	assert.False(t, p.Valid())
}
