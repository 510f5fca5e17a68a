package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

// StripePaymentProvider charges synchronously through a confirmed
// PaymentIntent. Card declines map to ErrPaymentFailed so the booking flow
// can keep the hold alive for a retry.
type StripePaymentProvider struct{}

func NewStripePaymentProvider() *StripePaymentProvider {
	return &StripePaymentProvider{}
}

func (s *StripePaymentProvider) Charge(
	ctx context.Context,
	amount decimal.Decimal,
	currency, method, token string) (*domain.PaymentConfirmation, error) {

	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(amount.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(token),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, fmt.Errorf("%s: %w", stripeErr.Msg, domain.ErrPaymentFailed)
		}

		return nil, err
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("payment intent status %s: %w", intent.Status, domain.ErrPaymentFailed)
	}

	return &domain.PaymentConfirmation{
		ProviderRef: intent.ID,
		Amount:      amount,
		Currency:    currency,
		PaidAt:      time.Now(),
	}, nil
}
