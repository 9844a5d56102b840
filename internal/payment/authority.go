// Package payment talks to payment authorities: the token processor used by direct checkout and
// Stripe for deferred payments and webhooks.
package payment

import "context"

// Charge amounts are in minor currency units.
type Charge struct {
	AmountMinor int64
	Currency    string
	OwnerID     string
	Token       string
	Metadata    map[string]string
}

// Authorization is what the authority hands back on success. ClientSecret is only set by
// authorities that complete payment on the client.
type Authorization struct {
	Reference    string
	ClientSecret string
}

type Authority interface {
	Authorize(ctx context.Context, charge Charge) (Authorization, error)
}
