package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roorq/storefront/internal/domain"
	"github.com/roorq/storefront/internal/notify"
	pkgkafka "github.com/roorq/storefront/pkg/kafka"
)

// ConsumerGroupID is the default consumer group of the notification consumer.
const ConsumerGroupID = "roorq-notifications"

// Topics returns every topic the notification consumer subscribes to.
func Topics() []string {
	return []string{
		TopicOrderPlaced,
		TopicOrderStatusChanged,
		TopicVendorStatusChanged,
		TopicPayoutCreated,
	}
}

// VendorLookup resolves a vendor's contact details.
type VendorLookup interface {
	GetProfile(ctx context.Context, userID string) (*domain.VendorProfile, error)
}

// ConsumerHandler turns storefront events into emails.
type ConsumerHandler struct {
	sender  notify.Sender
	vendors VendorLookup
	logger  *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(sender notify.Sender, vendors VendorLookup, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		sender:  sender,
		vendors: vendors,
		logger:  logger,
	}
}

// Handle processes an incoming event based on its type. Unknown types are
// skipped.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicOrderPlaced:
		return h.handleOrderPlaced(ctx, event)
	case TopicOrderStatusChanged:
		return h.handleOrderStatusChanged(ctx, event)
	case TopicVendorStatusChanged:
		return h.handleVendorStatusChanged(ctx, event)
	case TopicPayoutCreated:
		return h.handlePayoutCreated(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (h *ConsumerHandler) handleOrderPlaced(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderPlacedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode order.placed: %w", err)
	}
	if data.CustomerEmail == "" {
		return nil
	}
	return h.send(ctx, &notify.Message{
		Kind:    "order_placed",
		To:      data.CustomerEmail,
		Subject: "We received your Roorq order",
		Body: fmt.Sprintf("Order %s for %s is placed. Keep the cash ready at delivery.",
			data.OrderID, FormatAmount(data.TotalAmount)),
	})
}

func (h *ConsumerHandler) handleOrderStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderStatusChangedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode order.status_changed: %w", err)
	}
	if data.CustomerEmail == "" {
		return nil
	}

	body := fmt.Sprintf("Order %s is now %s.", data.OrderID, statusLabel(data.NewStatus))
	if data.Reason != "" {
		body += " Reason: " + data.Reason
	}
	return h.send(ctx, &notify.Message{
		Kind:    "order_status_changed",
		To:      data.CustomerEmail,
		Subject: "Your Roorq order was updated",
		Body:    body,
	})
}

func (h *ConsumerHandler) handleVendorStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data VendorStatusChangedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode vendor.status_changed: %w", err)
	}
	if data.Email == "" {
		return nil
	}

	body := fmt.Sprintf("Your vendor account is now %s.", statusLabel(data.NewStatus))
	if data.Reason != "" {
		body += " Reason: " + data.Reason
	}
	return h.send(ctx, &notify.Message{
		Kind:    "vendor_status_changed",
		To:      data.Email,
		Subject: "Roorq vendor account update",
		Body:    body,
	})
}

func (h *ConsumerHandler) handlePayoutCreated(ctx context.Context, event *pkgkafka.Event) error {
	var data PayoutCreatedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode payout.created: %w", err)
	}

	vendor, err := h.vendors.GetProfile(ctx, data.VendorID)
	if err != nil {
		return fmt.Errorf("look up vendor %s: %w", data.VendorID, err)
	}
	return h.send(ctx, &notify.Message{
		Kind:    "payout_created",
		To:      vendor.Email,
		Subject: "A Roorq payout is on its way",
		Body: fmt.Sprintf("Payout %s of %s covering %d orders has been scheduled.",
			data.Reference, FormatAmount(data.NetAmount), data.ItemCount),
	})
}

func (h *ConsumerHandler) send(ctx context.Context, msg *notify.Message) error {
	if err := h.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s via %s: %w", msg.Kind, h.sender.Name(), err)
	}
	return nil
}

// NewConsumer creates the notification consumer. Event ids are deduplicated
// through store and failing messages go to dlq.
func NewConsumer(brokers []string, groupID string, handler *ConsumerHandler, store pkgkafka.IdempotencyStore, dlq pkgkafka.DeadLetterPublisher, logger *slog.Logger) *pkgkafka.Consumer {
	cfg := pkgkafka.DefaultConsumerConfig(brokers, groupID, Topics()...)
	return pkgkafka.NewConsumer(cfg, pkgkafka.IdempotentHandler(store, handler.Handle, logger), dlq, logger)
}

// FormatAmount renders paise as rupees, e.g. 129800 as "Rs. 1298.00".
func FormatAmount(paise int64) string {
	sign := ""
	if paise < 0 {
		sign, paise = "-", -paise
	}
	return fmt.Sprintf("%sRs. %d.%02d", sign, paise/100, paise%100)
}

func statusLabel(s string) string {
	switch s {
	case string(domain.StatusOutForDelivery):
		return "out for delivery"
	case string(domain.StatusPaymentCollected):
		return "paid"
	case string(domain.VendorUnderReview):
		return "under review"
	case string(domain.VendorDocumentsPending):
		return "waiting for documents"
	default:
		return s
	}
}
