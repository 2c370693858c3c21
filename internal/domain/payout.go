package domain

import (
	"math"
	"time"
)

// PayoutStatus is the settlement state of a payout.
type PayoutStatus string

// Payout statuses.
const (
	PayoutPending PayoutStatus = "pending"
	PayoutPaid    PayoutStatus = "paid"
	PayoutFailed  PayoutStatus = "failed"
)

// ParsePayoutStatus reports whether s names a payout status.
func ParsePayoutStatus(s string) (PayoutStatus, bool) {
	switch p := PayoutStatus(s); p {
	case PayoutPending, PayoutPaid, PayoutFailed:
		return p, true
	}
	return "", false
}

// CanTransitionTo reports whether a payout may move to target. Only pending
// payouts settle.
func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	return s == PayoutPending && (target == PayoutPaid || target == PayoutFailed)
}

// Payout settles a vendor's collected COD orders.
type Payout struct {
	ID               string       `json:"id"`
	Reference        string       `json:"reference"`
	VendorID         string       `json:"vendor_id"`
	GrossAmount      int64        `json:"gross_amount"`
	CommissionAmount int64        `json:"commission_amount"`
	NetAmount        int64        `json:"net_amount"`
	Status           PayoutStatus `json:"status"`
	PaidReference    string       `json:"paid_reference,omitempty"`
	Items            []PayoutItem `json:"items,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// PayoutItem is one order settled by a payout.
type PayoutItem struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

// PendingEarnings are the collected orders of a vendor not yet in a payout.
type PendingEarnings struct {
	VendorID         string       `json:"vendor_id"`
	Items            []PayoutItem `json:"items"`
	GrossAmount      int64        `json:"gross_amount"`
	CommissionAmount int64        `json:"commission_amount"`
	NetAmount        int64        `json:"net_amount"`
}

// Commission returns percent of gross rounded to the nearest paisa.
func Commission(gross int64, percent float64) int64 {
	return int64(math.Round(float64(gross) * percent / 100))
}

// NewPendingEarnings totals items and applies the commission.
func NewPendingEarnings(vendorID string, items []PayoutItem, commissionPercent float64) *PendingEarnings {
	var gross int64
	for _, it := range items {
		gross += it.Amount
	}
	commission := Commission(gross, commissionPercent)
	if items == nil {
		items = []PayoutItem{}
	}
	return &PendingEarnings{
		VendorID:         vendorID,
		Items:            items,
		GrossAmount:      gross,
		CommissionAmount: commission,
		NetAmount:        gross - commission,
	}
}
