package storage

import (
	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/scratchdata/sharelinks/pkg/storage/cache"
	"github.com/scratchdata/sharelinks/pkg/storage/database"
)

type Services struct {
	Database database.Database
	Cache    cache.Cache
}

func New(c config.ShareLinksConfig) (*Services, error) {
	rc := &Services{}

	var err error
	if rc.Cache, err = cache.NewCache(c.Cache); err != nil {
		return nil, err
	}

	if rc.Database, err = database.NewConnection(c.Database); err != nil {
		return nil, err
	}

	return rc, nil
}

func (s *Services) Close() error {
	if s.Database == nil {
		return nil
	}
	return s.Database.Close()
}
