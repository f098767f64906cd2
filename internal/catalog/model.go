package catalog

import (
	"time"

	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

// Product is a laptop listing. Price is in minor currency units.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Price     int64     `json:"price"`
	StockQty  int       `json:"stock_qty"`
	IsActive  bool      `json:"is_active"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Rating is the mean review score rounded to two decimals. Both fields are
	// maintained by the review workflow and ignored on create and update.
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
}

// IsInStock is the add-to-cart guard. Checkout validates the requested
// quantity instead.
func (p *Product) IsInStock() bool {
	return p.StockQty > 0
}

// AdjustStock applies delta (positive restores, negative consumes) and refuses
// to take stock below zero.
func (p *Product) AdjustStock(delta int) error {
	next := p.StockQty + delta
	if next < 0 {
		return insufficientStock(p.ID, p.Name, p.StockQty, -delta)
	}
	p.StockQty = next
	return nil
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return apperr.New(apperr.KindInvalidInput, "product name is required")
	}
	if p.Price <= 0 {
		return apperr.New(apperr.KindInvalidInput, "product price must be positive, got %d", p.Price)
	}
	if p.StockQty < 0 {
		return apperr.New(apperr.KindInvalidInput, "product stock cannot be negative, got %d", p.StockQty)
	}
	return nil
}

func insufficientStock(id int64, name string, have, want int) error {
	return apperr.New(apperr.KindInsufficientStock,
		"insufficient stock for %q (id %d): %d available, %d requested", name, id, have, want)
}

// ListFilter narrows product listings. Zero Limit means the default page size.
type ListFilter struct {
	Brand           string
	IncludeInactive bool
	Limit           int
	Offset          int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultPageSize
	case f.Limit > maxPageSize:
		return maxPageSize
	default:
		return f.Limit
	}
}
