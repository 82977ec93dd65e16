package worker

import (
	"context"
	"log/slog"
	"time"

	"iglivez/worker/features/job"
	"iglivez/worker/internal/middleware"
)

// JobClaimer is the slice of the job repository the loop needs.
type JobClaimer interface {
	ClaimNext(ctx context.Context, excluded []job.Type) (*job.Job, error)
	Finish(ctx context.Context, jobID int64, success bool, currentRetries int) error
	ResetStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}

// JobDispatcher runs one claimed job.
type JobDispatcher interface {
	Dispatch(ctx context.Context, j *job.Job) Result
}

// AutoTrigger is the periodic auto-broadcast check.
type AutoTrigger interface {
	CheckAutoTrigger(ctx context.Context) error
}

type Config struct {
	PollInterval     time.Duration
	SlowThreshold    time.Duration
	StuckAge         time.Duration
	PeriodicInterval time.Duration
	RunOnce          bool
}

// Worker is the claim-dispatch-finish loop.
type Worker struct {
	repo       JobClaimer
	dispatcher JobDispatcher
	trigger    AutoTrigger
	cfg        Config
	logger     *slog.Logger

	// send_to_groups jobs belong to the external group sender.
	excluded []job.Type

	// run-once mode polls this often while waiting for a job, and gives
	// up after maxEmptyPolls misses.
	emptyPollInterval time.Duration
	maxEmptyPolls     int
}

func New(repo JobClaimer, dispatcher JobDispatcher, trigger AutoTrigger, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		repo:              repo,
		dispatcher:        dispatcher,
		trigger:           trigger,
		cfg:               cfg,
		logger:            logger,
		excluded:          []job.Type{job.TypeSendToGroups},
		emptyPollInterval: time.Second,
		maxEmptyPolls:     3,
	}
}

// Run polls for jobs until the context is cancelled. In run-once mode it
// processes at most one job, waiting through a bounded number of empty
// polls, then exits. Errors in a single cycle are logged and backed off,
// never fatal.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker started",
		"poll_interval", w.cfg.PollInterval, "run_once", w.cfg.RunOnce)

	var lastPeriodic time.Time
	emptyPolls := 0

	for {
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "worker stopping", "reason", ctx.Err())
			return nil
		}

		if time.Since(lastPeriodic) > w.cfg.PeriodicInterval {
			w.runPeriodic(ctx)
			lastPeriodic = time.Now()
		}

		j, err := w.repo.ClaimNext(ctx, w.excluded)
		if err != nil {
			w.logger.ErrorContext(ctx, "claim failed", "error", err)
			if !w.sleep(ctx, 2*w.cfg.PollInterval) {
				return nil
			}
			continue
		}

		if j == nil {
			if w.cfg.RunOnce {
				emptyPolls++
				if emptyPolls >= w.maxEmptyPolls {
					w.logger.InfoContext(ctx, "no pending jobs, exiting", "empty_polls", emptyPolls)
					return nil
				}
				if !w.sleep(ctx, w.emptyPollInterval) {
					return nil
				}
				continue
			}
			if !w.sleep(ctx, w.cfg.PollInterval) {
				return nil
			}
			continue
		}
		emptyPolls = 0

		w.process(ctx, j)

		if w.cfg.RunOnce {
			w.logger.InfoContext(ctx, "job processed, exiting", "job_id", j.ID)
			return nil
		}
	}
}

func (w *Worker) process(ctx context.Context, j *job.Job) {
	jctx := middleware.WithNewCorrelationID(ctx)

	w.logger.InfoContext(jctx, "job claimed", "job_id", j.ID, "job_type", j.Type, "retries", j.Retries)

	start := time.Now()
	result := w.dispatcher.Dispatch(jctx, j)
	elapsed := time.Since(start)

	if elapsed > w.cfg.SlowThreshold {
		w.logger.WarnContext(jctx, "slow job",
			"job_id", j.ID, "job_type", j.Type, "duration", elapsed, "threshold", w.cfg.SlowThreshold)
	}

	success := result != ResultRetryable
	if err := w.repo.Finish(jctx, j.ID, success, j.Retries); err != nil {
		w.logger.ErrorContext(jctx, "failed to finish job", "job_id", j.ID, "error", err)
		w.sleep(ctx, 2*w.cfg.PollInterval)
		return
	}

	w.logger.InfoContext(jctx, "job finished",
		"job_id", j.ID, "job_type", j.Type, "result", result.String(), "duration", elapsed)
}

func (w *Worker) runPeriodic(ctx context.Context) {
	if w.trigger != nil {
		if err := w.trigger.CheckAutoTrigger(ctx); err != nil {
			w.logger.ErrorContext(ctx, "auto broadcast check failed", "error", err)
		}
	}

	if w.cfg.StuckAge > 0 {
		n, err := w.repo.ResetStuck(ctx, w.cfg.StuckAge)
		if err != nil {
			w.logger.ErrorContext(ctx, "stuck job reset failed", "error", err)
		} else if n > 0 {
			w.logger.WarnContext(ctx, "requeued stuck jobs", "count", n, "older_than", w.cfg.StuckAge)
		}
	}
}

// sleep waits for d or context cancellation, reporting false on cancel.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
