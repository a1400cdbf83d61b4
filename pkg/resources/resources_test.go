package resources

import (
	"context"
	"testing"

	"github.com/scratchdata/sharelinks/pkg/storage/database"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeDB map[string]models.Snippet

func (f fakeDB) GetSnippet(_ context.Context, id string) (models.Snippet, error) {
	s, ok := f[id]
	if !ok {
		return models.Snippet{}, database.ErrNotFound
	}
	return s, nil
}

func testStore() *SnippetStore {
	return NewSnippetStore(fakeDB{
		"snip-1": {
			ID:       "snip-1",
			OwnerID:  "u1",
			Title:    "hello.go",
			Language: "go",
			Content:  "package main",
			History:  []models.SnippetRevision{{ID: 1, SnippetID: "snip-1", Content: "package old"}},
		},
	})
}

func TestGetResourceOwner(t *testing.T) {
	s := testStore()

	owner, err := s.GetResourceOwner(context.Background(), "snip-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	_, err = s.GetResourceOwner(context.Background(), "snip-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetResourceForShare(t *testing.T) {
	s := testStore()

	doc, err := s.GetResourceForShare(context.Background(), "snip-1", models.ReadOnly)
	require.NoError(t, err)

	assert.Equal(t, "hello.go", gjson.GetBytes(doc, "title").String())
	assert.Equal(t, "package main", gjson.GetBytes(doc, "content").String())
	assert.False(t, gjson.GetBytes(doc, "owner_id").Exists())
	assert.False(t, gjson.GetBytes(doc, "history").Exists())
	assert.False(t, gjson.GetBytes(doc, "permissions.copy").Bool())
	assert.False(t, gjson.GetBytes(doc, "permissions.download").Bool())

	doc, err = s.GetResourceForShare(context.Background(), "snip-1", models.AllowCopy|models.AllowDownload)
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(doc, "permissions.copy").Bool())
	assert.True(t, gjson.GetBytes(doc, "permissions.download").Bool())

	_, err = s.GetResourceForShare(context.Background(), "missing", models.ReadOnly)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilterMissingFields(t *testing.T) {
	doc, err := Filter([]byte(`{"title":"x"}`), models.AllowCopy)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x","permissions":{"copy":true,"download":false}}`, string(doc))
}
