package repository

import (
	"context"
	"time"

	"github.com/roorq/storefront/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	CustomerID *string
	VendorID   *string
	Status     *domain.Status
	Page       int
	PerPage    int
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts the order and its items and reserves stock for every item
	// in one transaction. Insufficient stock is a Conflict.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the given filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatusIf moves the order to next only while its stored status is
	// still observed. A lost race is a Conflict. Cancelling restores stock.
	UpdateStatusIf(ctx context.Context, id string, observed, next domain.Status, reason string) error

	// StatusTotals returns order count and total per normalized status,
	// optionally for a single vendor.
	StatusTotals(ctx context.Context, vendorID *string) ([]domain.StatusTotal, error)
}

// RoleRepository is the privileged role lookup. It bypasses row-level
// policies and is never reached through a user-scoped query.
type RoleRepository interface {
	LookupRole(ctx context.Context, userID string) (*domain.RoleRecord, error)
}

// VendorFilter defines filter criteria for listing vendors.
type VendorFilter struct {
	Status  *domain.VendorStatus
	Page    int
	PerPage int
}

// VendorRepository persists vendor profiles.
type VendorRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.VendorProfile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.VendorProfileUpdate) error
	List(ctx context.Context, filter VendorFilter) ([]domain.VendorProfile, int, error)
	SetStatus(ctx context.Context, userID string, status domain.VendorStatus, reason string) error

	// MarkDocumentsSubmitted moves a documents_pending vendor to under_review
	// and reports whether it did.
	MarkDocumentsSubmitted(ctx context.Context, userID string) (bool, error)
}

// ReferralRepository reads referral statistics.
type ReferralRepository interface {
	// ReferralStats returns the user's code, how many users signed up with it
	// and how many of those have a delivered or collected order.
	ReferralStats(ctx context.Context, userID string) (code string, referred, qualified int, err error)
}

// ProductRepository persists drops and products.
type ProductRepository interface {
	ListActiveDrops(ctx context.Context, now time.Time) ([]domain.Drop, error)
	GetDropBySlug(ctx context.Context, slug string) (*domain.Drop, error)
	ListByDrop(ctx context.Context, dropID string) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	ListByVendor(ctx context.Context, vendorID string, page, perPage int) ([]domain.Product, int, error)
	Create(ctx context.Context, product *domain.Product) error

	// Update changes a product owned by vendorID and returns the stored row.
	Update(ctx context.Context, id, vendorID string, update domain.ProductUpdate) (*domain.Product, error)
}

// AuditFilter defines filter criteria for listing audit events.
type AuditFilter struct {
	Action *domain.AuditAction
	Status *domain.AuditStatus
	Limit  int
}

// AuditRepository is the append-only audit sink.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
	ListRecent(ctx context.Context, filter AuditFilter) ([]domain.AuditEvent, error)
}

// DocumentRepository persists vendor KYC document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.VendorDocument) error
	ListByVendor(ctx context.Context, vendorID string) ([]domain.VendorDocument, error)
}

// PayoutFilter defines filter criteria for listing payouts.
type PayoutFilter struct {
	VendorID *string
	Status   *domain.PayoutStatus
	Page     int
	PerPage  int
}

// PayoutRepository persists vendor payouts.
type PayoutRepository interface {
	// PendingItems returns the vendor's payment_collected orders that are not
	// part of a pending or paid payout.
	PendingItems(ctx context.Context, vendorID string) ([]domain.PayoutItem, error)

	// VendorsWithPendingItems lists vendors that have PendingItems.
	VendorsWithPendingItems(ctx context.Context) ([]string, error)

	// Create inserts the payout and its items. An item already claimed by
	// another pending or paid payout is a Conflict.
	Create(ctx context.Context, payout *domain.Payout) error

	GetByID(ctx context.Context, id string) (*domain.Payout, error)
	List(ctx context.Context, filter PayoutFilter) ([]domain.Payout, int, error)

	// UpdateStatusIf settles a payout while its status is still observed.
	UpdateStatusIf(ctx context.Context, id string, observed, next domain.PayoutStatus, paidReference string) error
}
