package service

import (
	"context"
	"fmt"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/repository"
)

// ReferralService reports referral progress.
type ReferralService struct {
	repo   repository.ReferralRepository
	reward int64
}

// NewReferralService creates a referral service paying reward per qualified
// referral.
func NewReferralService(repo repository.ReferralRepository, reward int64) *ReferralService {
	return &ReferralService{repo: repo, reward: reward}
}

// Summary returns the caller's code, referrals and earned reward.
func (s *ReferralService) Summary(ctx context.Context, userID string) (*domain.ReferralSummary, error) {
	code, referred, qualified, err := s.repo.ReferralStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("referral stats: %w", err)
	}
	return &domain.ReferralSummary{
		ReferralCode:   code,
		ReferredCount:  referred,
		QualifiedCount: qualified,
		RewardAmount:   int64(qualified) * s.reward,
	}, nil
}
