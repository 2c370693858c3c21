package domain

import (
	"strings"
	"time"
)

// VendorStatus is the KYC/onboarding state of a vendor account.
type VendorStatus string

// Vendor status constants.
const (
	VendorApproved         VendorStatus = "approved"
	VendorRejected         VendorStatus = "rejected"
	VendorSuspended        VendorStatus = "suspended"
	VendorUnderReview      VendorStatus = "under_review"
	VendorDocumentsPending VendorStatus = "documents_pending"
)

// VendorStatuses returns every vendor status.
func VendorStatuses() []VendorStatus {
	return []VendorStatus{
		VendorApproved,
		VendorRejected,
		VendorSuspended,
		VendorUnderReview,
		VendorDocumentsPending,
	}
}

// ParseVendorStatus reports whether s names a vendor status.
func ParseVendorStatus(s string) (VendorStatus, bool) {
	v := VendorStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range VendorStatuses() {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// IsBlocked reports whether the vendor is locked out of the dashboard.
func (s VendorStatus) IsBlocked() bool {
	return s == VendorSuspended || s == VendorRejected
}

// RequiresReason reports whether an admin must give a reason when moving a
// vendor into s.
func (s VendorStatus) RequiresReason() bool {
	return s.IsBlocked()
}

func (s VendorStatus) String() string {
	return string(s)
}

// VendorProfile is a vendor user row with its store, banking and KYC fields.
type VendorProfile struct {
	UserID            string       `json:"user_id"`
	Email             string       `json:"email"`
	FullName          string       `json:"full_name,omitempty"`
	Status            VendorStatus `json:"vendor_status"`
	StatusReason      string       `json:"vendor_status_reason,omitempty"`
	StoreName         string       `json:"store_name"`
	StoreDescription  string       `json:"store_description,omitempty"`
	StoreLogoURL      string       `json:"store_logo_url,omitempty"`
	BankAccountName   string       `json:"bank_account_name,omitempty"`
	BankAccountNumber string       `json:"bank_account_number,omitempty"`
	BankIFSC          string       `json:"bank_ifsc,omitempty"`
	UPIID             string       `json:"upi_id,omitempty"`
	BusinessName      string       `json:"business_name,omitempty"`
	GSTIN             string       `json:"gstin,omitempty"`
	PAN               string       `json:"pan,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// MaskedAccountNumber returns the bank account number with all but the last
// four digits hidden.
func (p *VendorProfile) MaskedAccountNumber() string {
	n := p.BankAccountNumber
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

// VendorProfileUpdate holds the vendor-editable profile fields. Nil fields are
// left unchanged.
type VendorProfileUpdate struct {
	StoreName         *string
	StoreDescription  *string
	StoreLogoURL      *string
	BankAccountName   *string
	BankAccountNumber *string
	BankIFSC          *string
	UPIID             *string
	BusinessName      *string
	GSTIN             *string
	PAN               *string
}

// IsEmpty reports whether the update changes nothing.
func (u VendorProfileUpdate) IsEmpty() bool {
	return u.StoreName == nil && u.StoreDescription == nil && u.StoreLogoURL == nil &&
		u.BankAccountName == nil && u.BankAccountNumber == nil && u.BankIFSC == nil &&
		u.UPIID == nil && u.BusinessName == nil && u.GSTIN == nil && u.PAN == nil
}
