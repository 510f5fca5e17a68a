package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentConfirmation is the proof of a successful charge returned by the
// payment provider.
type PaymentConfirmation struct {
	ProviderRef string
	Amount      decimal.Decimal
	Currency    string
	PaidAt      time.Time
}

// PaymentProvider charges a customer before a hold is converted into a
// booking. Implementations must return ErrPaymentFailed (possibly wrapped)
// for declines so that callers can distinguish them from transport faults.
type PaymentProvider interface {
	Charge(ctx context.Context, amount decimal.Decimal, currency, method, token string) (*PaymentConfirmation, error)
}
