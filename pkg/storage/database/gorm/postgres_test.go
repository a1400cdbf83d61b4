package gorm

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/scratchdata/sharelinks/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRecordGrant(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	database := "sharelinks"
	username := "testuser"
	password := "testpass"

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Create pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Docker unavailable: %s", err)
	}

	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: "postgres",
			Tag:        "16-alpine",
			Env: []string{
				"POSTGRES_DB=" + database,
				"POSTGRES_USER=" + username,
				"POSTGRES_PASSWORD=" + password,
			},
		},
		func(config *docker.HostConfig) {
			// set AutoRemove to true so that stopped container goes away by itself
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		t.Fatalf("Run container: %s", err)
	}
	t.Cleanup(func() { pool.Purge(resource) })

	pool.MaxWait = 2 * time.Minute
	resource.Expire(3 * 60)

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		username, password, resource.GetHostPort("5432/tcp"), database,
	)

	var db *Gorm
	err = pool.Retry(func() error {
		db, err = NewGorm(config.Database{
			Type:     "postgres",
			Settings: map[string]any{"dsn": dsn, "max_open_conns": 8},
		})
		return err
	})
	if err != nil {
		t.Fatalf("Cannot open database: %s", err)
	}
	defer db.Close()

	ctx := context.Background()
	link := newLink("pg-popular", 3)
	require.NoError(t, db.CreateShareLink(ctx, link))
	assert.ErrorIs(t, db.CreateShareLink(ctx, newLink("pg-popular", 0)), ErrDuplicateToken)

	// Without any in-process lock the conditional update alone must hold.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db.RecordGrant(ctx, link.ID, successEntry(link.ID))
		}()
	}
	wg.Wait()

	stored, err := db.GetShareLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.AccessCount)

	entries, err := db.ListAccessLog(ctx, link.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
