package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/event"
	"github.com/roorq/storefront/internal/repository"
	apperrors "github.com/roorq/storefront/pkg/errors"
)

// PayoutPolicy holds the commission and the smallest net amount the
// scheduled run pays out.
type PayoutPolicy struct {
	CommissionPercent float64
	MinAmount         int64
}

// PayoutService aggregates collected COD orders into vendor payouts.
type PayoutService struct {
	repo     repository.PayoutRepository
	producer *event.Producer
	policy   PayoutPolicy
	logger   *slog.Logger
}

// NewPayoutService creates a new payout service.
func NewPayoutService(repo repository.PayoutRepository, producer *event.Producer, policy PayoutPolicy, logger *slog.Logger) *PayoutService {
	return &PayoutService{
		repo:     repo,
		producer: producer,
		policy:   policy,
		logger:   logger,
	}
}

// PendingEarnings returns the vendor's collected orders not yet in a payout.
func (s *PayoutService) PendingEarnings(ctx context.Context, vendorID string) (*domain.PendingEarnings, error) {
	items, err := s.repo.PendingItems(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("pending payout items: %w", err)
	}
	return domain.NewPendingEarnings(vendorID, items, s.policy.CommissionPercent), nil
}

// CreatePayout creates a pending payout covering every pending item of
// vendorID.
func (s *PayoutService) CreatePayout(ctx context.Context, vendorID string) (*domain.Payout, error) {
	return s.create(ctx, vendorID, 1)
}

func (s *PayoutService) create(ctx context.Context, vendorID string, minAmount int64) (*domain.Payout, error) {
	earnings, err := s.PendingEarnings(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if len(earnings.Items) == 0 {
		return nil, apperrors.InvalidInput("vendor has no collected orders awaiting payout")
	}
	if earnings.NetAmount < minAmount {
		return nil, apperrors.InvalidInput(fmt.Sprintf("net amount %d is below the payout minimum %d", earnings.NetAmount, minAmount))
	}

	now := time.Now().UTC()
	payout := &domain.Payout{
		ID:               uuid.New().String(),
		Reference:        "PO-" + ksuid.New().String(),
		VendorID:         vendorID,
		GrossAmount:      earnings.GrossAmount,
		CommissionAmount: earnings.CommissionAmount,
		NetAmount:        earnings.NetAmount,
		Status:           domain.PayoutPending,
		Items:            earnings.Items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, payout); err != nil {
		return nil, err
	}

	if err := s.producer.PublishPayoutCreated(ctx, payout); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payout.created event",
			slog.String("payout_id", payout.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payout created",
		slog.String("payout_id", payout.ID),
		slog.String("reference", payout.Reference),
		slog.String("vendor_id", vendorID),
		slog.Int64("net_amount", payout.NetAmount),
		slog.Int("items", len(payout.Items)),
	)
	return payout, nil
}

// GenerateAll creates a payout for every vendor whose pending net amount
// reaches the policy minimum. Vendors below the minimum, or racing a manual
// payout, are skipped. Other failures are collected and the run continues.
func (s *PayoutService) GenerateAll(ctx context.Context) (int, error) {
	vendors, err := s.repo.VendorsWithPendingItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list vendors with pending items: %w", err)
	}

	created := 0
	var errs []error
	for _, vendorID := range vendors {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, err := s.create(ctx, vendorID, s.policy.MinAmount)
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrConflict):
			s.logger.DebugContext(ctx, "skipping vendor payout",
				slog.String("vendor_id", vendorID),
				slog.String("reason", err.Error()),
			)
		default:
			errs = append(errs, fmt.Errorf("vendor %s: %w", vendorID, err))
		}
	}

	return created, errors.Join(errs...)
}

// SettlePayout marks a pending payout paid or failed. Paid payouts need the
// bank or UPI transfer reference.
func (s *PayoutService) SettlePayout(ctx context.Context, id, status, paidReference string) (*domain.Payout, error) {
	next, ok := domain.ParsePayoutStatus(strings.ToLower(strings.TrimSpace(status)))
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown payout status %q", status))
	}
	paidReference = strings.TrimSpace(paidReference)
	if next == domain.PayoutPaid && paidReference == "" {
		return nil, apperrors.InvalidInput("paid reference is required")
	}

	payout, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !payout.Status.CanTransitionTo(next) {
		return nil, apperrors.InvalidTransition(string(payout.Status), string(next))
	}

	if err := s.repo.UpdateStatusIf(ctx, id, payout.Status, next, paidReference); err != nil {
		return nil, err
	}

	payout.Status = next
	payout.PaidReference = paidReference
	payout.UpdatedAt = time.Now().UTC()

	s.logger.InfoContext(ctx, "payout settled",
		slog.String("payout_id", id),
		slog.String("status", string(next)),
	)
	return payout, nil
}

// ListPayouts returns payouts matching filter.
func (s *PayoutService) ListPayouts(ctx context.Context, filter repository.PayoutFilter) ([]domain.Payout, int, error) {
	payouts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, total, nil
}
