package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusCompleted  OrderStatus = "completed"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusCompleted,
}

// ParseOrderStatus matches s case-insensitively against the canonical set.
func ParseOrderStatus(s string) (OrderStatus, error) {
	candidate := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range orderStatuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: invalid status value %q", ErrValidation, s)
}

func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is a snapshot of a product line at commit time and never changes afterwards.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID               string
	OwnerID          string
	Items            []OrderItem
	Total            decimal.Decimal
	Status           OrderStatus
	PaymentReference string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderTotal sums price × quantity over the snapshot items.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// MinorUnits converts a decimal amount into the smallest currency unit, rounding half away
// from zero. Negative amounts and amounts beyond int64 are rejected.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(decimal.NewFromInt(100)).Round(0)
	if minor.IsNegative() || minor.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: amount %s is out of range", ErrValidation, amount)
	}
	return minor.IntPart(), nil
}
