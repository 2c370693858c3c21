package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the lifecycle state of an order.
type Status string

// Order status constants.
const (
	StatusPending          Status = "pending"
	StatusConfirmed        Status = "confirmed"
	StatusOutForDelivery   Status = "out_for_delivery"
	StatusDelivered        Status = "delivered"
	StatusPaymentCollected Status = "payment_collected"
	StatusCancelled        Status = "cancelled"
)

// PaymentMethodCOD is the only payment method accepted.
const PaymentMethodCOD = "cod"

// ErrUnknownStatus is returned by ParseStatus for values outside the
// enumeration.
var ErrUnknownStatus = errors.New("unknown order status")

var statusAliases = map[string]Status{
	"placed":   StatusPending,
	"reserved": StatusPending,
	"packed":   StatusConfirmed,
}

var transitions = map[Status][]Status{
	StatusPending:          {StatusConfirmed, StatusCancelled},
	StatusConfirmed:        {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery:   {StatusDelivered, StatusCancelled},
	StatusDelivered:        {StatusPaymentCollected},
	StatusPaymentCollected: {},
	StatusCancelled:        {},
}

// Statuses returns every canonical status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusConfirmed,
		StatusOutForDelivery,
		StatusDelivered,
		StatusPaymentCollected,
		StatusCancelled,
	}
}

// ParseStatus trims, lower-cases and resolves aliases. Values outside the
// enumeration return ErrUnknownStatus.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := statusAliases[v]; ok {
		return alias, nil
	}
	if _, ok := transitions[Status(v)]; ok {
		return Status(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// NormalizeStatus is the display form of ParseStatus: unknown values become
// pending. NormalizeStatus(NormalizeStatus(s)) == NormalizeStatus(s).
func NormalizeStatus(s string) Status {
	st, err := ParseStatus(s)
	if err != nil {
		return StatusPending
	}
	return st
}

// CanTransitionTo reports whether target is a legal next state.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// StoredForms returns the raw column values that normalize to s, so list
// filters also match rows written with a legacy alias.
func (s Status) StoredForms() []string {
	forms := []string{string(s)}
	for alias, canonical := range statusAliases {
		if canonical == s {
			forms = append(forms, alias)
		}
	}
	sort.Strings(forms[1:])
	return forms
}

// isTerminal reports whether no transition leaves s.
func (s Status) isTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// IsCustomerCancellable reports whether a customer may still cancel.
func (s Status) IsCustomerCancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) String() string {
	return string(s)
}

// TransitionError names the current and the requested state of a rejected
// transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From.isTerminal() {
		return fmt.Sprintf("order is %s and cannot move to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// ValidateTransition returns a *TransitionError when from -> to is not in the
// transition table.
func ValidateTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Order represents a cash-on-delivery campus order. Every order belongs to a
// single vendor.
type Order struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customer_id"`
	CustomerEmail   string           `json:"customer_email,omitempty"`
	VendorID        string           `json:"vendor_id,omitempty"`
	Status          Status           `json:"status"`
	Items           []OrderItem      `json:"items"`
	SubtotalAmount  int64            `json:"subtotal_amount"`
	DeliveryFee     int64            `json:"delivery_fee"`
	TotalAmount     int64            `json:"total_amount"`
	PaymentMethod   string           `json:"payment_method"`
	DeliveryAddress *DeliveryAddress `json:"delivery_address,omitempty"`
	CancelReason    string           `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// DeliveryAddress is an on-campus drop point.
type DeliveryAddress struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Hostel string `json:"hostel"`
	Room   string `json:"room"`
	Notes  string `json:"notes,omitempty"`
}

// StatusTotal aggregates orders sharing one normalized status.
type StatusTotal struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
	Total  int64  `json:"total"`
}
