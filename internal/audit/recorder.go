// Package audit records access-control outcomes without holding up the
// request that produced them.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
)

var writeFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "roorq_audit_write_failures_total",
	Help: "Audit events that could not be persisted.",
})

// Recorder writes audit events in the background. Record never blocks and
// never fails the caller.
type Recorder struct {
	repo    repository.AuditRepository
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewRecorder creates a Recorder whose writes are bounded by timeout.
func NewRecorder(repo repository.AuditRepository, timeout time.Duration, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
	}
}

// Record persists e asynchronously. Missing id and timestamp are filled in.
func (r *Recorder) Record(ctx context.Context, e domain.AuditEvent) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	ctx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		if err := r.repo.Insert(writeCtx, &e); err != nil {
			writeFailures.Inc()
			r.logger.WarnContext(ctx, "failed to write audit event",
				slog.String("action", string(e.Action)),
				slog.String("status", string(e.Status)),
				slog.String("reason", e.Reason()),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every pending write has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// List returns the latest audit events.
func (r *Recorder) List(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEvent, error) {
	return r.repo.ListRecent(ctx, filter)
}
