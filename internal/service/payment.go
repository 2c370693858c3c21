package service

import (
	"context"

	apperrors "github.com/roorq/storefront/pkg/errors"
)

// PaymentService is the online payment entry point. Only cash on delivery is
// accepted, so gateway order creation is not implemented.
type PaymentService struct{}

// NewPaymentService creates a new payment service.
func NewPaymentService() *PaymentService {
	return &PaymentService{}
}

// CreateGatewayOrder always fails with 501.
func (s *PaymentService) CreateGatewayOrder(_ context.Context, _ string) error {
	return apperrors.NotImplemented("online payments are disabled, choose cash on delivery")
}
