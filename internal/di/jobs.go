package di

import (
	"fmt"

	"github.com/aristath/riskdash/internal/clientdata"
	"github.com/aristath/riskdash/internal/config"
	"github.com/aristath/riskdash/internal/reliability"
	"github.com/aristath/riskdash/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed schedules (seconds field first)
const (
	cacheCleanupSchedule     = "@hourly"
	dailyMaintenanceSchedule = "0 0 3 * * *"
)

// RegisterJobs registers every background job with the container's scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Risk.EvaluationSchedule, scheduler.NewRiskEvaluationJob(container.HoldingsRepo, container.RiskService, log)},
		{cacheCleanupSchedule, clientdata.NewCleanupJob(container.ClientDataRepo, log)},
		{dailyMaintenanceSchedule, reliability.NewDailyMaintenanceJob(container.Databases(), cfg.DataDir, log)},
	}
	if container.BackupService != nil {
		jobs = append(jobs, struct {
			schedule string
			job      scheduler.Job
		}{cfg.Backup.Schedule, reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)})
	}

	for _, j := range jobs {
		if err := container.Scheduler.AddJob(j.schedule, j.job); err != nil {
			return fmt.Errorf("failed to register %s: %w", j.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(jobs)).Msg("Jobs registered")
	return nil
}
