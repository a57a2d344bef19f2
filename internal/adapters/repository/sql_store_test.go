package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinereview/core/internal/domain/entities"
	"github.com/cinereview/core/internal/infrastructure/config"
	"github.com/cinereview/core/internal/infrastructure/database"
)

func newTestSQLStore(t *testing.T, lockTimeout time.Duration) *SQLStore {
	t.Helper()
	db, err := database.NewSQLite(config.StorageConfig{SQLitePath: filepath.Join(t.TempDir(), "reviews.db")})
	require.NoError(t, err)
	require.NoError(t, db.MigrateUp())
	s := NewSQLStore(db, lockTimeout, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStoreAppendHonoursLockTimeout(t *testing.T) {
	s := newTestSQLStore(t, 50*time.Millisecond)
	id := mustMovieID(t, "contended")

	unlock, err := s.locks.Lock(context.Background(), id.String())
	require.NoError(t, err)
	defer unlock()

	start := time.Now()
	_, err = s.Append(context.Background(), id, mustReview(t, "Alice", "text"))
	require.ErrorIs(t, err, entities.ErrStorageUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)

	reviews, err := s.List(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestSQLStoreStats(t *testing.T) {
	s := newTestSQLStore(t, time.Second)

	stats := Instrument(s, config.BackendSQLite, nil, nil).Stats()
	require.NotNil(t, stats)
	assert.Equal(t, database.DriverSQLite, stats["driver"])
	assert.Equal(t, 1, stats["max_open_connections"])
}
