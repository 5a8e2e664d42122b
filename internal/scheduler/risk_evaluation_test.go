package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	ids []string
	err error
}

func (f fakeUsers) UserIDs() ([]string, error) { return f.ids, f.err }

type fakeAnalyzer struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeAnalyzer) AnalyzeUser(_ context.Context, userID string) (*risk.Result, error) {
	f.calls = append(f.calls, userID)
	if f.fail[userID] {
		return nil, errors.New("evaluation failed")
	}
	return &risk.Result{Alerts: []string{"alert"}}, nil
}

func TestRiskEvaluationJob_EvaluatesEveryUser(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	job := NewRiskEvaluationJob(fakeUsers{ids: []string{"u1", "u2"}}, analyzer, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, []string{"u1", "u2"}, analyzer.calls)
	assert.Equal(t, "risk_evaluation", job.Name())
}

func TestRiskEvaluationJob_ContinuesAfterFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{fail: map[string]bool{"u1": true}}
	job := NewRiskEvaluationJob(fakeUsers{ids: []string{"u1", "u2", "u3"}}, analyzer, zerolog.Nop())

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user u1")
	assert.Equal(t, []string{"u1", "u2", "u3"}, analyzer.calls)
}

func TestRiskEvaluationJob_UserListFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	job := NewRiskEvaluationJob(fakeUsers{err: errors.New("db locked")}, analyzer, zerolog.Nop())

	assert.Error(t, job.Run())
	assert.Empty(t, analyzer.calls)
}
