package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/azura/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeAuthority creates card PaymentIntents. The payment is confirmed by the client with the
// returned secret and reported back through the webhook.
type StripeAuthority struct {
	intents intentCreator
}

func NewStripeAuthority(secretKey string) *StripeAuthority {
	sc := client.New(secretKey, nil)
	return &StripeAuthority{intents: sc.PaymentIntents}
}

func (a *StripeAuthority) Authorize(ctx context.Context, charge Charge) (Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(charge.AmountMinor),
		Currency:           stripe.String(charge.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	params.AddMetadata("userId", charge.OwnerID)
	for k, v := range charge.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := a.intents.New(params)
	if err != nil {
		return Authorization{}, classifyStripeError(err)
	}
	return Authorization{Reference: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// classifyStripeError separates rejections of this payment from failures of the authority itself.
func classifyStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err)
	}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, se.Msg)
	case se.Type == stripe.ErrorTypeInvalidRequest && se.HTTPStatusCode < http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, se.Msg)
	default:
		return fmt.Errorf("%w: %s", domain.ErrPaymentUnavailable, se.Msg)
	}
}
