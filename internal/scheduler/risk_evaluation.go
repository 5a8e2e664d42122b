package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/riskdash/internal/modules/risk"
	"github.com/aristath/riskdash/internal/utils"
	"github.com/rs/zerolog"
)

// UserLister lists users that have stored holdings
type UserLister interface {
	UserIDs() ([]string, error)
}

// Analyzer evaluates a user's stored portfolio and records the outcome
type Analyzer interface {
	AnalyzeUser(ctx context.Context, userID string) (*risk.Result, error)
}

// RiskEvaluationJob re-evaluates every stored portfolio so alerts and
// stream subscribers stay current without a client asking.
type RiskEvaluationJob struct {
	users       UserLister
	analyzer    Analyzer
	userTimeout time.Duration
	log         zerolog.Logger
}

// NewRiskEvaluationJob creates a new risk evaluation job
func NewRiskEvaluationJob(users UserLister, analyzer Analyzer, log zerolog.Logger) *RiskEvaluationJob {
	return &RiskEvaluationJob{
		users:       users,
		analyzer:    analyzer,
		userTimeout: 5 * time.Minute,
		log:         log.With().Str("job", "risk_evaluation").Logger(),
	}
}

// Name returns the job name
func (j *RiskEvaluationJob) Name() string {
	return "risk_evaluation"
}

// Run evaluates each user in turn. One user failing does not stop the others.
func (j *RiskEvaluationJob) Run() error {
	defer utils.OperationTimer("risk_evaluation", j.log)()

	userIDs, err := j.users.UserIDs()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var (
		errs       []error
		alertCount int
	)
	for _, userID := range userIDs {
		ctx, cancel := context.WithTimeout(context.Background(), j.userTimeout)
		result, err := j.analyzer.AnalyzeUser(ctx, userID)
		cancel()
		if err != nil {
			j.log.Error().Err(err).Str("user_id", userID).Msg("Risk evaluation failed")
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		alertCount += len(result.Alerts)
	}

	j.log.Info().
		Int("users", len(userIDs)).
		Int("failed", len(errs)).
		Int("alerts", alertCount).
		Msg("Risk evaluation run completed")

	return errors.Join(errs...)
}
