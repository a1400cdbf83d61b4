// Package resources is the boundary to the documents that share links
// point at. Share links only ever need to know who owns a resource and how
// to render it for a given permission set.
package resources

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/scratchdata/sharelinks/pkg/storage/database"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
	"github.com/tidwall/sjson"
)

var ErrNotFound = errors.New("resource not found")

type Store interface {
	GetResourceOwner(ctx context.Context, resourceID string) (string, error)
	// GetResourceForShare renders the resource as JSON with every field the
	// permission does not allow removed.
	GetResourceForShare(ctx context.Context, resourceID string, permission models.Permission) (json.RawMessage, error)
}

type SnippetDatabase interface {
	GetSnippet(ctx context.Context, id string) (models.Snippet, error)
}

type SnippetStore struct {
	db SnippetDatabase
}

func NewSnippetStore(db SnippetDatabase) *SnippetStore {
	return &SnippetStore{db: db}
}

func (s *SnippetStore) GetResourceOwner(ctx context.Context, resourceID string) (string, error) {
	snippet, err := s.getSnippet(ctx, resourceID)
	if err != nil {
		return "", err
	}
	return snippet.OwnerID, nil
}

func (s *SnippetStore) GetResourceForShare(ctx context.Context, resourceID string, permission models.Permission) (json.RawMessage, error) {
	snippet, err := s.getSnippet(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(snippet)
	if err != nil {
		return nil, err
	}
	return Filter(doc, permission)
}

func (s *SnippetStore) getSnippet(ctx context.Context, id string) (models.Snippet, error) {
	snippet, err := s.db.GetSnippet(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Snippet{}, ErrNotFound
	}
	return snippet, err
}

// Fields that never leave through a share link.
var privateFields = []string{"owner_id", "history"}

// Filter strips private fields from a rendered resource and annotates it
// with what the holder may do with it.
func Filter(doc []byte, permission models.Permission) (json.RawMessage, error) {
	var err error
	for _, path := range privateFields {
		if doc, err = sjson.DeleteBytes(doc, path); err != nil {
			return nil, err
		}
	}

	if doc, err = sjson.SetBytes(doc, "permissions.copy", permission.Has(models.AllowCopy)); err != nil {
		return nil, err
	}
	if doc, err = sjson.SetBytes(doc, "permissions.download", permission.Has(models.AllowDownload)); err != nil {
		return nil, err
	}
	return doc, nil
}
