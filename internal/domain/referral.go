package domain

// ReferralSummary reports how many users signed up with a caller's code and
// how many of them completed an order.
type ReferralSummary struct {
	ReferralCode   string `json:"referral_code"`
	ReferredCount  int    `json:"referred_count"`
	QualifiedCount int    `json:"qualified_count"`
	RewardAmount   int64  `json:"reward_amount"`
}
