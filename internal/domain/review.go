package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewEligibleStatuses are the order statuses that count as a purchase for reviewing.
var ReviewEligibleStatuses = []OrderStatus{OrderStatusCompleted, OrderStatusDelivered}

// Review is one owner's rating of a product. There is at most one per (user, product).
type Review struct {
	ID         string
	ProductID  string
	UserID     string
	AuthorName string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}
