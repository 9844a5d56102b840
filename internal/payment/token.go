package payment

import (
	"context"
	"fmt"

	"github.com/fjod/azura/internal/domain"
	"github.com/google/uuid"
)

// ValidToken is the only token the processor accepts.
const ValidToken = "tok_visa"

// TokenAuthority is a mock card processor: it approves ValidToken and declines anything else.
type TokenAuthority struct{}

func NewTokenAuthority() TokenAuthority {
	return TokenAuthority{}
}

func (TokenAuthority) Authorize(ctx context.Context, charge Charge) (Authorization, error) {
	if err := ctx.Err(); err != nil {
		return Authorization{}, err
	}
	if charge.AmountMinor <= 0 {
		return Authorization{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if charge.Token != ValidToken {
		return Authorization{}, fmt.Errorf("%w: Payment failed: Invalid token", domain.ErrPaymentDeclined)
	}
	return Authorization{Reference: fmt.Sprintf("TXN-%s", uuid.NewString())}, nil
}
