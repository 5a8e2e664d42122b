package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	require.NoError(t, repo.Store(TablePriceHistory, "old", []testPoint{}, -30*24*time.Hour))
	require.NoError(t, repo.Store(TablePriceHistory, "stale-but-kept", []testPoint{}, -time.Hour))
	require.NoError(t, repo.Store(TablePriceHistory, "fresh", []testPoint{}, time.Hour))

	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM price_history").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestCleanupJobRun_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	assert.NoError(t, NewCleanupJob(NewRepository(db), zerolog.Nop()).Run())
}
