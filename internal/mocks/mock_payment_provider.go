package mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

type MockPaymentProvider struct {
	ChargeFunc func(ctx context.Context, amount decimal.Decimal, currency, method, token string) (*domain.PaymentConfirmation, error)
}

func (m *MockPaymentProvider) Charge(
	ctx context.Context,
	amount decimal.Decimal,
	currency, method, token string) (*domain.PaymentConfirmation, error) {

	return m.ChargeFunc(ctx, amount, currency, method, token)
}
