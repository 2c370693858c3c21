// Package jobs runs the storefront's scheduled background work.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const (
	payoutLockKey = "roorq:jobs:payouts"
	payoutTimeout = 10 * time.Minute
)

var payoutRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roorq_payout_job_runs_total",
	Help: "Scheduled payout runs by result.",
}, []string{"result"})

// PayoutGenerator creates payouts for every eligible vendor.
type PayoutGenerator interface {
	GenerateAll(ctx context.Context) (int, error)
}

// Scheduler runs the payout job on a cron schedule. When a Redis client is
// set, a lock keeps replicas from running the same tick twice.
type Scheduler struct {
	cron    *cron.Cron
	payouts PayoutGenerator
	lock    redis.Cmdable
	logger  *slog.Logger
}

// NewScheduler creates a scheduler. lock may be nil.
func NewScheduler(payouts PayoutGenerator, lock redis.Cmdable, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		payouts: payouts,
		lock:    lock,
		logger:  logger,
	}
}

// Start registers the payout job under a standard five-field spec and starts
// the cron loop.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runPayouts); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("job scheduler started", slog.String("payout_schedule", spec))
	return nil
}

// Stop stops scheduling and waits for a running job until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runPayouts() {
	ctx, cancel := context.WithTimeout(context.Background(), payoutTimeout)
	defer cancel()

	if s.lock != nil {
		ok, err := s.lock.SetNX(ctx, payoutLockKey, time.Now().UTC().Format(time.RFC3339), payoutTimeout).Result()
		if err != nil {
			s.logger.Warn("payout lock unavailable, running anyway", slog.String("error", err.Error()))
		} else if !ok {
			payoutRuns.WithLabelValues("skipped").Inc()
			s.logger.Info("payout run already in progress elsewhere")
			return
		} else {
			defer s.lock.Del(context.WithoutCancel(ctx), payoutLockKey)
		}
	}

	start := time.Now()
	created, err := s.payouts.GenerateAll(ctx)
	if err != nil {
		payoutRuns.WithLabelValues("error").Inc()
		s.logger.Error("payout run finished with errors",
			slog.Int("created", created),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return
	}

	payoutRuns.WithLabelValues("ok").Inc()
	s.logger.Info("payout run finished",
		slog.Int("created", created),
		slog.Duration("duration", time.Since(start)),
	)
}
