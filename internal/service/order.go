package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/event"
	"github.com/roorq/storefront/internal/repository"
	apperrors "github.com/roorq/storefront/pkg/errors"
)

// MaxItemQuantity caps the quantity of a single order line.
const MaxItemQuantity = 10

var orderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roorq_order_transitions_total",
	Help: "Order status transitions by outcome.",
}, []string{"from", "to", "result"})

// OrderService implements the business logic for order operations.
type OrderService struct {
	orders      repository.OrderRepository
	products    repository.ProductRepository
	producer    *event.Producer
	deliveryFee int64
	logger      *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	producer *event.Producer,
	deliveryFee int64,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:      orders,
		products:    products,
		producer:    producer,
		deliveryFee: deliveryFee,
		logger:      logger,
	}
}

// PlaceOrderItem is one requested order line.
type PlaceOrderItem struct {
	ProductID string
	Quantity  int
}

// PlaceOrderInput holds the parameters for placing a COD order.
type PlaceOrderInput struct {
	Items   []PlaceOrderItem
	Address domain.DeliveryAddress
}

// PlaceOrder prices the requested products, reserves their stock and stores a
// pending COD order for customer.
func (s *OrderService) PlaceOrder(ctx context.Context, customer *domain.Principal, input PlaceOrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	quantities := make(map[string]int, len(input.Items))
	var ids []string
	for _, it := range input.Items {
		if it.Quantity < 1 || it.Quantity > MaxItemQuantity {
			return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between 1 and %d", MaxItemQuantity))
		}
		if _, seen := quantities[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New().String(),
		CustomerID:      customer.ID,
		CustomerEmail:   customer.Email,
		Status:          domain.StatusPending,
		DeliveryFee:     s.deliveryFee,
		PaymentMethod:   domain.PaymentMethodCOD,
		DeliveryAddress: &input.Address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for i, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsActive {
			return nil, apperrors.NotFound("product", id)
		}
		if i == 0 {
			order.VendorID = p.VendorID
		} else if p.VendorID != order.VendorID {
			return nil, apperrors.InvalidInput("all items must be from the same vendor")
		}
		if p.Stock < quantities[id] {
			return nil, apperrors.Conflict(fmt.Sprintf("%s is out of stock", p.Name))
		}

		item := domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: p.ID,
			Name:      p.Name,
			Size:      p.Size,
			Price:     p.Price,
			Quantity:  quantities[id],
		}
		item.Subtotal = item.LineTotal()
		order.SubtotalAmount += item.Subtotal
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = order.SubtotalAmount + order.DeliveryFee

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	if err := s.producer.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("vendor_id", order.VendorID),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

// ListOrders returns orders matching filter with statuses normalized for
// display.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	for i := range orders {
		orders[i].Status = domain.NormalizeStatus(string(orders[i].Status))
	}
	return orders, total, nil
}

// GetOrder returns an order visible to p: admins see every order, vendors
// their own, customers the ones they placed.
func (s *OrderService) GetOrder(ctx context.Context, p *domain.Principal, id string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(p, o) {
		return nil, apperrors.NotFound("order", id)
	}
	o.Status = domain.NormalizeStatus(string(o.Status))
	return o, nil
}

func canView(p *domain.Principal, o *domain.Order) bool {
	switch {
	case p.Role.IsAdmin():
		return true
	case o.CustomerID == p.ID:
		return true
	case p.UserType == domain.UserTypeVendor && o.VendorID != "" && o.VendorID == p.ID:
		return true
	}
	return false
}

// CancelOrder cancels a pending or confirmed order on behalf of its customer.
func (s *OrderService) CancelOrder(ctx context.Context, customer *domain.Principal, id, reason string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customer.ID {
		return nil, apperrors.NotFound("order", id)
	}

	current := domain.NormalizeStatus(string(o.Status))
	if !current.IsCustomerCancellable() {
		return nil, apperrors.InvalidTransition(string(current), string(domain.StatusCancelled))
	}
	return s.transition(ctx, o, string(domain.StatusCancelled), reason)
}

// TransitionAsVendor moves one of vendorID's orders to target.
func (s *OrderService) TransitionAsVendor(ctx context.Context, vendorID, id, target string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.VendorID == "" || o.VendorID != vendorID {
		return nil, apperrors.NotFound("order", id)
	}
	return s.transition(ctx, o, target, "")
}

// TransitionAsAdmin moves any order to target.
func (s *OrderService) TransitionAsAdmin(ctx context.Context, id, target, reason string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, target, reason)
}

// transition validates observed -> target against the status machine and
// writes it only if the stored status is still the observed one.
func (s *OrderService) transition(ctx context.Context, o *domain.Order, target, reason string) (*domain.Order, error) {
	to, err := domain.ParseStatus(target)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", strings.TrimSpace(target)))
	}

	from, err := domain.ParseStatus(string(o.Status))
	if err != nil {
		orderTransitions.WithLabelValues("unknown", string(to), "rejected").Inc()
		return nil, apperrors.InvalidTransition(string(o.Status), string(to))
	}

	if err := domain.ValidateTransition(from, to); err != nil {
		orderTransitions.WithLabelValues(string(from), string(to), "rejected").Inc()
		var te *domain.TransitionError
		if errors.As(err, &te) {
			return nil, apperrors.InvalidTransition(string(te.From), string(te.To))
		}
		return nil, err
	}

	if to != domain.StatusCancelled {
		reason = o.CancelReason
	}
	if err := s.orders.UpdateStatusIf(ctx, o.ID, from, to, reason); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			orderTransitions.WithLabelValues(string(from), string(to), "conflict").Inc()
		}
		return nil, err
	}
	orderTransitions.WithLabelValues(string(from), string(to), "applied").Inc()

	o.Status = to
	o.CancelReason = reason
	o.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishOrderStatusChanged(ctx, o, from, to, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", o.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", o.ID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	return o, nil
}

// Analytics returns order count and total per status, optionally for one
// vendor.
func (s *OrderService) Analytics(ctx context.Context, vendorID *string) ([]domain.StatusTotal, error) {
	totals, err := s.orders.StatusTotals(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("order analytics: %w", err)
	}
	return totals, nil
}
