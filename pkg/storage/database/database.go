package database

import (
	"context"
	"fmt"

	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/scratchdata/sharelinks/pkg/storage/database/gorm"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

var (
	ErrNotFound       = gorm.ErrNotFound
	ErrDuplicateToken = gorm.ErrDuplicateToken
	ErrGrantRejected  = gorm.ErrGrantRejected
)

// Database is the persistence capability behind share links. A single
// implementation is chosen at startup by NewConnection.
type Database interface {
	CreateShareLink(ctx context.Context, link *models.ShareLink) error
	GetShareLink(ctx context.Context, id string) (models.ShareLink, error)
	GetShareLinkByToken(ctx context.Context, token string) (models.ShareLink, error)
	ListShareLinks(ctx context.Context, ownerID string, resourceID string) ([]models.ShareLink, error)
	RevokeShareLink(ctx context.Context, id string) error
	DeleteShareLink(ctx context.Context, id string) error

	// RecordGrant increments the access counter only while the link is
	// still grantable and appends the success entry in the same
	// transaction. ErrGrantRejected means nothing was written.
	RecordGrant(ctx context.Context, linkID string, entry *models.AccessLogEntry) error
	AppendAccessLog(ctx context.Context, entry *models.AccessLogEntry) error
	ListAccessLog(ctx context.Context, linkID string) ([]models.AccessLogEntry, error)

	CreateSnippet(ctx context.Context, snippet *models.Snippet) error
	GetSnippet(ctx context.Context, id string) (models.Snippet, error)
	UpdateSnippet(ctx context.Context, id string, title string, content string) error
	DeleteSnippet(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

func NewConnection(conf config.Database) (Database, error) {
	switch conf.Type {
	case "memory", "sqlite", "postgres":
		return gorm.NewGorm(conf)
	}

	return nil, fmt.Errorf("unknown database type: %q", conf.Type)
}
