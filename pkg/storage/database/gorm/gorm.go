package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
	"github.com/scratchdata/sharelinks/pkg/util"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateToken = errors.New("share link token already exists")
	ErrGrantRejected  = errors.New("share link no longer grantable")
)

type Gorm struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// Snowflake node for snippet revision ids, unique per process.
	NodeID int64 `mapstructure:"node_id"`

	db   *gorm.DB
	snow *snowflake.Node
}

func NewGorm(conf config.Database) (*Gorm, error) {
	rc, err := util.ConfigToStruct[Gorm](conf.Settings)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var db *gorm.DB
	switch conf.Type {
	case "memory":
		// Each instance gets its own named in-memory database so that
		// separate connections in one process never share state.
		dsn := fmt.Sprintf("file:sharelinks-%s?mode=memory&cache=shared", uuid.NewString())
		db, err = gorm.Open(sqlite.Open(sqliteDSN(dsn)), gormConfig)
		rc.MaxOpenConns = 1
	case "sqlite":
		if rc.DSN == "" {
			return nil, errors.New("sqlite database requires settings.dsn")
		}
		db, err = gorm.Open(sqlite.Open(sqliteDSN(rc.DSN)), gormConfig)
		rc.MaxOpenConns = 1
	case "postgres":
		if rc.DSN == "" {
			return nil, errors.New("postgres database requires settings.dsn")
		}
		db, err = gorm.Open(postgres.Open(rc.DSN), gormConfig)
	default:
		return nil, fmt.Errorf("unknown database type: %s", conf.Type)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if rc.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(rc.MaxOpenConns)
		sqlDB.SetMaxIdleConns(rc.MaxOpenConns)
	}
	// An in-memory sqlite database disappears with its last connection.
	if conf.Type != "memory" && rc.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(rc.ConnMaxLifetime)
	}

	rc.db = db

	rc.snow, err = snowflake.NewNode(rc.NodeID)
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.Snippet{},
		&models.SnippetRevision{},
		&models.ShareLink{},
		&models.AccessLogEntry{},
	)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("type", conf.Type).Msg("Connected to database")

	return rc, nil
}

func sqliteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		params = append(params, "_foreign_keys=1")
	}
	if !strings.Contains(dsn, "_busy_timeout") && !strings.Contains(dsn, "_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (s *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Gorm) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
