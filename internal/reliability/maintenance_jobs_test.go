package reliability

import (
	"errors"
	"strings"
	"testing"

	"github.com/aristath/riskdash/internal/database"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyMaintenanceJob(t *testing.T) {
	dir := t.TempDir()
	job := NewDailyMaintenanceJob(openTestDatabases(t, dir), dir, zerolog.Nop())
	job.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 10 * MinFreeDiskBytes, UsedPercent: 12.5}, nil
	}

	assert.Equal(t, "daily_maintenance", job.Name())
	require.NoError(t, job.Run())
}

func TestDailyMaintenanceJob_VacuumsFragmentedDatabase(t *testing.T) {
	dir := t.TempDir()
	dbs := openTestDatabases(t, dir)
	history := dbs[database.NameHistory]

	padding := strings.Repeat("x", 512)
	for i := 0; i < 500; i++ {
		_, err := history.Conn().Exec(
			"INSERT INTO observations (asset_class, identifier, date, value) VALUES (?, ?, ?, ?)",
			"equity", padding, i, 1.0)
		require.NoError(t, err)
	}
	_, err := history.Conn().Exec("DELETE FROM observations")
	require.NoError(t, err)

	before, err := history.GetStats()
	require.NoError(t, err)
	require.Greater(t, before.FreelistCount, int64(0))

	job := NewDailyMaintenanceJob(dbs, dir, zerolog.Nop())
	job.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 10 * MinFreeDiskBytes}, nil
	}
	require.NoError(t, job.Run())

	after, err := history.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), after.FreelistCount)
	assert.Less(t, after.PageCount, before.PageCount)
}

func TestDailyMaintenanceJob_LowDisk(t *testing.T) {
	dir := t.TempDir()
	job := NewDailyMaintenanceJob(openTestDatabases(t, dir), dir, zerolog.Nop())
	job.usage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 1024}, nil
	}

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MB free")
}

func TestDailyMaintenanceJob_DiskStatFailure(t *testing.T) {
	dir := t.TempDir()
	job := NewDailyMaintenanceJob(nil, dir, zerolog.Nop())
	job.usage = func(string) (*disk.UsageStat, error) {
		return nil, errors.New("no such filesystem")
	}

	assert.Error(t, job.Run())
}

func TestBackupJob(t *testing.T) {
	dir := t.TempDir()
	store := newMemStore()
	svc := NewBackupService(store, openTestDatabases(t, dir), dir, "", nil, zerolog.Nop())
	job := NewBackupJob(svc, 30, zerolog.Nop())

	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.objects, 1)

	store.uploadErr = errors.New("down")
	assert.Error(t, job.Run())
}
