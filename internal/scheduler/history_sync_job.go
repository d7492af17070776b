package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

// Runner performs one complete pass: load, aggregate, report and sync.
type Runner interface {
	Run(ctx context.Context) error
}

// HistorySyncJob re-runs the portfolio pass on a schedule so price caches
// stay current.
type HistorySyncJob struct {
	ctx    context.Context
	runner Runner
	log    zerolog.Logger
}

// NewHistorySyncJob creates the job. ctx bounds every run; once it is
// cancelled runs fail fast.
func NewHistorySyncJob(ctx context.Context, runner Runner, log zerolog.Logger) *HistorySyncJob {
	return &HistorySyncJob{
		ctx:    ctx,
		runner: runner,
		log:    log.With().Str("job", "history_sync").Logger(),
	}
}

// Name returns the job name
func (j *HistorySyncJob) Name() string {
	return "history_sync"
}

// Run executes one pass
func (j *HistorySyncJob) Run() error {
	if err := j.ctx.Err(); err != nil {
		j.log.Debug().Msg("Context cancelled, skipping run")
		return err
	}
	return j.runner.Run(j.ctx)
}
