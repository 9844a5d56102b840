package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	Category    string
	Stock       int
	ImageURL    string
	Approved    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFilter selects a page of the catalog. Search is a case-insensitive
// substring match on the title.
type ProductFilter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Normalized returns the filter with page and limit defaults applied.
func (f ProductFilter) Normalized() ProductFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	return f
}

func (f ProductFilter) Offset() int64 {
	n := f.Normalized()
	return int64((n.Page - 1) * n.Limit)
}

// ProductUpdate carries a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	Stock       *int
	ImageURL    *string
	Approved    *bool
}
