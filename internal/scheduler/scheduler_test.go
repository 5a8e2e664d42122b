package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/riskdash/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
	block chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	if j.panic {
		panic("boom")
	}
	return j.err
}

type recordingBus struct {
	emitted []events.EventData
}

func (b *recordingBus) Emit(_, _ string, data events.EventData) {
	b.emitted = append(b.emitted, data)
}

func TestAddJob(t *testing.T) {
	s := New(nil, zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "a"}))
	assert.Error(t, s.AddJob("@every 1h", &countingJob{name: "a"}), "duplicate name")
	assert.Error(t, s.AddJob("not a schedule", &countingJob{name: "b"}))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "@every 1h", jobs[0].Schedule)
}

func TestRunNow(t *testing.T) {
	bus := &recordingBus{}
	s := New(bus, zerolog.Nop())

	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("upstream down")}
	require.NoError(t, s.AddJob("@daily", ok))
	require.NoError(t, s.AddJob("@daily", failing))

	require.NoError(t, s.RunNow("ok"))
	assert.Equal(t, int32(1), ok.runs.Load())

	err := s.RunNow("failing")
	require.Error(t, err)
	require.Len(t, bus.emitted, 1)
	failed := bus.emitted[0].(*events.JobFailedData)
	assert.Equal(t, "failing", failed.Job)
	assert.Equal(t, "upstream down", failed.Error)

	jobs := s.Jobs()
	assert.Equal(t, "upstream down", jobs[0].LastError)
	assert.False(t, jobs[1].LastRun.IsZero())
	assert.Empty(t, jobs[1].LastError)

	assert.Error(t, s.RunNow("missing"))
}

func TestRunNow_RecoversPanic(t *testing.T) {
	s := New(nil, zerolog.Nop())
	require.NoError(t, s.AddJob("@daily", &countingJob{name: "p", panic: true}))

	err := s.RunNow("p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestExecute_SkipsOverlappingRuns(t *testing.T) {
	s := New(nil, zerolog.Nop())
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob("@daily", job))

	done := make(chan error, 1)
	go func() { done <- s.RunNow("slow") }()

	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, s.Jobs()[0].Running)

	// Second run is skipped while the first blocks
	require.NoError(t, s.RunNow("slow"))
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	require.NoError(t, <-done)
	assert.False(t, s.Jobs()[0].Running)
}

func TestStartStop(t *testing.T) {
	s := New(nil, zerolog.Nop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()
}
