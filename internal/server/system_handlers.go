package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/riskdash/internal/database"
	"github.com/aristath/riskdash/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// JobRunner exposes registered jobs for inspection and manual triggering
type JobRunner interface {
	Jobs() []scheduler.JobStatus
	RunNow(name string) error
}

// SystemHandlers serves process, database and job status
type SystemHandlers struct {
	log       zerolog.Logger
	databases map[string]*database.DB
	jobs      JobRunner
	startTime time.Time
	sample    func() (cpuPercent, memPercent, memUsedMB float64)
}

// NewSystemHandlers creates system handlers. jobs may be nil.
func NewSystemHandlers(databases map[string]*database.DB, jobs JobRunner, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		databases: databases,
		jobs:      jobs,
		startTime: time.Now(),
	}
	h.sample = h.getSystemStats
	return h
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string                     `json:"status"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Goroutines    int                        `json:"goroutines"`
	CPUPercent    float64                    `json:"cpu_percent"`
	MemoryPercent float64                    `json:"memory_percent"`
	MemoryUsedMB  float64                    `json:"memory_used_mb"`
	Databases     map[string]*database.Stats `json:"databases"`
	Jobs          []scheduler.JobStatus      `json:"jobs"`
	LastChecked   string                     `json:"last_checked"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent, memUsedMB := h.sample()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		MemoryUsedMB:  memUsedMB,
		Databases:     h.databaseStats(),
		Jobs:          []scheduler.JobStatus{},
		LastChecked:   time.Now().Format(time.RFC3339),
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.Jobs()
		for _, job := range resp.Jobs {
			if job.LastError != "" {
				resp.Status = "degraded"
			}
		}
	}
	if len(resp.Databases) < len(h.databases) {
		resp.Status = "degraded"
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases":    h.databaseStats(),
		"last_checked": time.Now().Format(time.RFC3339),
	})
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Jobs()
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}/run
// The job runs in the background; its outcome shows up in the jobs status.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil || !h.hasJob(name) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
		return
	}

	go func() {
		if err := h.jobs.RunNow(name); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "triggered",
		"message": name + " started",
	})
}

func (h *SystemHandlers) hasJob(name string) bool {
	for _, job := range h.jobs.Jobs() {
		if job.Name == name {
			return true
		}
	}
	return false
}

func (h *SystemHandlers) databaseStats() map[string]*database.Stats {
	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make(map[string]*database.Stats, len(names))
	for _, name := range names {
		s, err := h.databases[name].GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}
		stats[name] = s
	}
	return stats
}

// getSystemStats samples CPU over 100ms so status calls stay fast
func (h *SystemHandlers) getSystemStats() (float64, float64, float64) {
	cpuAvg := 0.0
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0, 0
	}

	return cpuAvg, memStat.UsedPercent, float64(memStat.Used) / 1024 / 1024
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
