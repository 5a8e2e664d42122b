// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/riskdash/internal/events"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Publisher emits domain events
type Publisher interface {
	Emit(module, userID string, data events.EventData)
}

// JobStatus is the last known state of a registered job
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run"`
}

type entry struct {
	job      Job
	schedule string
	id       cron.EntryID
	running  bool
	lastRun  time.Time
	lastErr  error
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	bus  Publisher
	log  zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*entry
}

// New creates a new scheduler. bus may be nil.
func New(bus Publisher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		bus:  bus,
		log:  log.With().Str("component", "scheduler").Logger(),
		jobs: make(map[string]*entry),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 9 * * MON-FRI"  - 9 AM weekdays
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}

	e := &entry{job: job, schedule: schedule}
	id, err := s.cron.AddFunc(schedule, func() { _ = s.execute(e) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	e.id = id
	s.jobs[job.Name()] = e

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a registered job immediately (outside schedule)
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job: %s", name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.execute(e)
}

// Jobs returns the status of every registered job, sorted by name
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, e := range s.jobs {
		st := JobStatus{
			Name:     name,
			Schedule: e.schedule,
			Running:  e.running,
			LastRun:  e.lastRun,
			NextRun:  s.cron.Entry(e.id).Next,
		}
		if e.lastErr != nil {
			st.LastError = e.lastErr.Error()
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// execute runs a job unless a previous run is still in progress
func (s *Scheduler) execute(e *entry) error {
	name := e.job.Name()

	s.mu.Lock()
	if e.running {
		s.mu.Unlock()
		s.log.Warn().Str("job", name).Msg("Job still running, skipping")
		return nil
	}
	e.running = true
	s.mu.Unlock()

	s.log.Debug().Str("job", name).Msg("Running job")
	start := time.Now()
	err := s.safeRun(e.job)

	s.mu.Lock()
	e.running = false
	e.lastRun = start
	e.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Dur("duration_ms", time.Since(start)).
			Msg("Job failed")
		if s.bus != nil {
			s.bus.Emit("scheduler", "", &events.JobFailedData{Job: name, Error: err.Error()})
		}
		return err
	}

	s.log.Debug().
		Str("job", name).
		Dur("duration_ms", time.Since(start)).
		Msg("Job completed")
	return nil
}

func (s *Scheduler) safeRun(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run()
}
