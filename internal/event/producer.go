package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roorq/storefront/internal/domain"
	pkgkafka "github.com/roorq/storefront/pkg/kafka"
	"github.com/roorq/storefront/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicOrderPlaced         = pkgkafka.Topic("order", "placed")
	TopicOrderStatusChanged  = pkgkafka.Topic("order", "status_changed")
	TopicVendorStatusChanged = pkgkafka.Topic("vendor", "status_changed")
	TopicPayoutCreated       = pkgkafka.Topic("payout", "created")
)

// Aggregate types.
const (
	AggregateTypeOrder  = "order"
	AggregateTypeVendor = "vendor"
	AggregateTypePayout = "payout"
)

// SourceStorefront identifies events published by this service.
const SourceStorefront = "roorq-storefront"

// OrderPlacedData is the payload of an order.placed event.
type OrderPlacedData struct {
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	VendorID      string `json:"vendor_id,omitempty"`
	TotalAmount   int64  `json:"total_amount"`
	ItemCount     int    `json:"item_count"`
	PaymentMethod string `json:"payment_method"`
}

// OrderStatusChangedData is the payload of an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID       string `json:"order_id"`
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	VendorID      string `json:"vendor_id,omitempty"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	Reason        string `json:"reason,omitempty"`
}

// VendorStatusChangedData is the payload of a vendor.status_changed event.
type VendorStatusChangedData struct {
	VendorID  string `json:"vendor_id"`
	Email     string `json:"email"`
	StoreName string `json:"store_name,omitempty"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason,omitempty"`
}

// PayoutCreatedData is the payload of a payout.created event.
type PayoutCreatedData struct {
	PayoutID  string `json:"payout_id"`
	Reference string `json:"reference"`
	VendorID  string `json:"vendor_id"`
	NetAmount int64  `json:"net_amount"`
	ItemCount int    `json:"item_count"`
}

// Publisher writes an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Discard is a Publisher that drops every event. It is used when Kafka is
// disabled.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Producer publishes storefront domain events.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		pub:    pub,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithActor(logger.UserIDFromContext(ctx))

	if err := p.pub.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderPlaced, o.ID, AggregateTypeOrder, OrderPlacedData{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		VendorID:      o.VendorID,
		TotalAmount:   o.TotalAmount,
		ItemCount:     len(o.Items),
		PaymentMethod: o.PaymentMethod,
	})
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *domain.Order, from, to domain.Status, reason string) error {
	return p.publish(ctx, TopicOrderStatusChanged, o.ID, AggregateTypeOrder, OrderStatusChangedData{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		VendorID:      o.VendorID,
		OldStatus:     string(from),
		NewStatus:     string(to),
		Reason:        reason,
	})
}

// PublishVendorStatusChanged publishes a vendor.status_changed event.
func (p *Producer) PublishVendorStatusChanged(ctx context.Context, v *domain.VendorProfile, from domain.VendorStatus) error {
	return p.publish(ctx, TopicVendorStatusChanged, v.UserID, AggregateTypeVendor, VendorStatusChangedData{
		VendorID:  v.UserID,
		Email:     v.Email,
		StoreName: v.StoreName,
		OldStatus: string(from),
		NewStatus: string(v.Status),
		Reason:    v.StatusReason,
	})
}

// PublishPayoutCreated publishes a payout.created event.
func (p *Producer) PublishPayoutCreated(ctx context.Context, po *domain.Payout) error {
	return p.publish(ctx, TopicPayoutCreated, po.ID, AggregateTypePayout, PayoutCreatedData{
		PayoutID:  po.ID,
		Reference: po.Reference,
		VendorID:  po.VendorID,
		NetAmount: po.NetAmount,
		ItemCount: len(po.Items),
	})
}
