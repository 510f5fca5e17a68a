package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

// DeclinedToken makes the mock provider decline; any other token succeeds.
const DeclinedToken = "tok_declined"

// MockPaymentProvider approves everything except DeclinedToken. Used in dev
// and tests where no real gateway is wired.
type MockPaymentProvider struct{}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) Charge(
	ctx context.Context,
	amount decimal.Decimal,
	currency, method, token string) (*domain.PaymentConfirmation, error) {

	if token == DeclinedToken {
		return nil, fmt.Errorf("card declined: %w", domain.ErrPaymentFailed)
	}

	return &domain.PaymentConfirmation{
		ProviderRef: fmt.Sprintf("mock_%s", uuid.New().String()),
		Amount:      amount,
		Currency:    currency,
		PaidAt:      time.Now(),
	}, nil
}
