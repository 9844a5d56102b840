package domain

import (
	"fmt"
	"time"
)

// MaxLineQuantity caps the quantity of a single cart or order line.
const MaxLineQuantity = 10000

// CheckLineQuantity accepts quantities in 1..MaxLineQuantity.
func CheckLineQuantity(quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	}
	if quantity > MaxLineQuantity {
		return fmt.Errorf("%w: quantity must not exceed %d", ErrValidation, MaxLineQuantity)
	}
	return nil
}

// CartLine is one (owner, product) pairing. There is at most one line per pair.
type CartLine struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Cart struct {
	OwnerID string     `json:"owner_id"`
	Lines   []CartLine `json:"lines"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// GuestCartLine is a client-held cart entry merged into the owner's cart on login.
type GuestCartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// LineQuantity is one entry of a bulk quantity update.
type LineQuantity struct {
	LineID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}
