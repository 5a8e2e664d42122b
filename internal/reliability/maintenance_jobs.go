package reliability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/riskdash/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// MinFreeDiskBytes is the free space below which maintenance reports a failure.
const MinFreeDiskBytes = 500 * 1024 * 1024

// vacuumFreelistRatio: vacuum when free pages reach 1/vacuumFreelistRatio of the file.
const vacuumFreelistRatio = 10

// BackupJob uploads a fresh backup and rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates a backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	// A failed rotation leaves extra backups behind, which is harmless
	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// DailyMaintenanceJob checkpoints WAL files, checks database integrity
// and verifies there is enough free disk space under the data directory.
type DailyMaintenanceJob struct {
	databases map[string]*database.DB
	dataDir   string
	minFree   uint64
	usage     func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		minFree:   MinFreeDiskBytes,
		usage:     disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		db := j.databases[name]

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Not critical: the next checkpoint catches up
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}

		if db.Profile() != database.ProfileCache {
			j.reclaimSpace(name, db)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.HealthCheck(ctx)
		cancel()
		if err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Database integrity check failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		errs = append(errs, err)
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Int("problems", len(errs)).
		Msg("Daily maintenance completed")

	return errors.Join(errs...)
}

// reclaimSpace vacuums a database once free pages exceed a tenth of it.
// Cache databases use auto_vacuum(FULL) and never need this.
func (j *DailyMaintenanceJob) reclaimSpace(name string, db *database.DB) {
	stats, err := db.GetStats()
	if err != nil {
		j.log.Warn().Err(err).Str("database", name).Msg("Failed to read database stats")
		return
	}
	if stats.FreelistCount == 0 || stats.FreelistCount*vacuumFreelistRatio < stats.PageCount {
		return
	}

	if err := db.Vacuum(); err != nil {
		j.log.Warn().Err(err).Str("database", name).Msg("Vacuum failed")
		return
	}
	j.log.Info().
		Str("database", name).
		Int64("freed_pages", stats.FreelistCount).
		Msg("Database vacuumed")
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	j.log.Debug().
		Uint64("free_bytes", usage.Free).
		Float64("used_percent", usage.UsedPercent).
		Msg("Disk space check")

	if usage.Free < j.minFree {
		j.log.Error().Uint64("free_bytes", usage.Free).Msg("Insufficient disk space")
		return fmt.Errorf("only %d MB free under %s", usage.Free/1024/1024, j.dataDir)
	}
	return nil
}
