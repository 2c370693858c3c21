package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/event"
	"github.com/roorq/storefront/internal/repository"
	pkgkafka "github.com/roorq/storefront/pkg/kafka"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recordingPublisher captures published events by topic.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func newTestProducer() (*event.Producer, *recordingPublisher) {
	pub := &recordingPublisher{}
	return event.NewProducer(pub, newTestLogger()), pub
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatusIf(ctx context.Context, id string, observed, next domain.Status, reason string) error {
	args := m.Called(ctx, id, observed, next, reason)
	return args.Error(0)
}

func (m *mockOrderRepository) StatusTotals(ctx context.Context, vendorID *string) ([]domain.StatusTotal, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusTotal), args.Error(1)
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) ListActiveDrops(ctx context.Context, now time.Time) ([]domain.Drop, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Drop), args.Error(1)
}

func (m *mockProductRepository) GetDropBySlug(ctx context.Context, slug string) (*domain.Drop, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Drop), args.Error(1)
}

func (m *mockProductRepository) ListByDrop(ctx context.Context, dropID string) ([]domain.Product, error) {
	args := m.Called(ctx, dropID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListByVendor(ctx context.Context, vendorID string, page, perPage int) ([]domain.Product, int, error) {
	args := m.Called(ctx, vendorID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Update(ctx context.Context, id, vendorID string, update domain.ProductUpdate) (*domain.Product, error) {
	args := m.Called(ctx, id, vendorID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// ---------------------------------------------------------------------------
// Vendors and documents
// ---------------------------------------------------------------------------

type mockVendorRepository struct {
	mock.Mock
}

func (m *mockVendorRepository) GetProfile(ctx context.Context, userID string) (*domain.VendorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VendorProfile), args.Error(1)
}

func (m *mockVendorRepository) UpdateProfile(ctx context.Context, userID string, update domain.VendorProfileUpdate) error {
	args := m.Called(ctx, userID, update)
	return args.Error(0)
}

func (m *mockVendorRepository) List(ctx context.Context, filter repository.VendorFilter) ([]domain.VendorProfile, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.VendorProfile), args.Int(1), args.Error(2)
}

func (m *mockVendorRepository) SetStatus(ctx context.Context, userID string, status domain.VendorStatus, reason string) error {
	args := m.Called(ctx, userID, status, reason)
	return args.Error(0)
}

func (m *mockVendorRepository) MarkDocumentsSubmitted(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type mockDocumentRepository struct {
	mock.Mock
}

func (m *mockDocumentRepository) Create(ctx context.Context, doc *domain.VendorDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockDocumentRepository) ListByVendor(ctx context.Context, vendorID string) ([]domain.VendorDocument, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VendorDocument), args.Error(1)
}

type mockRoleInvalidator struct {
	mock.Mock
}

func (m *mockRoleInvalidator) Invalidate(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// ---------------------------------------------------------------------------
// Payouts and referrals
// ---------------------------------------------------------------------------

type mockPayoutRepository struct {
	mock.Mock
}

func (m *mockPayoutRepository) PendingItems(ctx context.Context, vendorID string) ([]domain.PayoutItem, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutItem), args.Error(1)
}

func (m *mockPayoutRepository) VendorsWithPendingItems(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockPayoutRepository) Create(ctx context.Context, payout *domain.Payout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *mockPayoutRepository) GetByID(ctx context.Context, id string) (*domain.Payout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payout), args.Error(1)
}

func (m *mockPayoutRepository) List(ctx context.Context, filter repository.PayoutFilter) ([]domain.Payout, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Payout), args.Int(1), args.Error(2)
}

func (m *mockPayoutRepository) UpdateStatusIf(ctx context.Context, id string, observed, next domain.PayoutStatus, paidReference string) error {
	args := m.Called(ctx, id, observed, next, paidReference)
	return args.Error(0)
}

type mockReferralRepository struct {
	mock.Mock
}

func (m *mockReferralRepository) ReferralStats(ctx context.Context, userID string) (string, int, int, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Int(1), args.Int(2), args.Error(3)
}
