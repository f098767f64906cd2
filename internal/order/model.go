package order

import (
	"time"

	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

// ShippingSurcharge is added to every order total, in minor currency units.
const ShippingSurcharge int64 = 50000

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipping   Status = "shipping"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusPaid       Status = "paid"
)

func (s Status) String() string {
	return string(s)
}

// adminSettable holds the statuses an administrator may set directly.
// StatusPaid is reached only through a confirmed payment.
var adminSettable = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusShipping:   true,
	StatusDelivered:  true,
	StatusCancelled:  true,
	StatusRefunded:   true,
}

func (s Status) AdminSettable() bool {
	return adminSettable[s]
}

// Cancellable reports whether a customer may still cancel an order in this status.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

type PaymentMethod string

const (
	PaymentOnDelivery PaymentMethod = "delivery"
	PaymentEBanking   PaymentMethod = "e-banking"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentOnDelivery || m == PaymentEBanking
}

// Contact is copied onto the order at creation and never follows later
// profile changes.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type Item struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Subtotal  int64 `json:"subtotal"`
}

type Order struct {
	ID                int64         `json:"id"`
	OwnerID           int64         `json:"owner_id"`
	Status            Status        `json:"status"`
	TotalAmount       int64         `json:"total_amount"`
	ShippingSurcharge int64         `json:"shipping_surcharge"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	Contact           Contact       `json:"contact"`
	Items             []Item        `json:"items"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ItemsTotal sums line subtotals, excluding the surcharge.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal
	}
	return total
}

func (o *Order) ProductIDs() []int64 {
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// ListFilter narrows the administrator order listing. Zero values match everything.
type ListFilter struct {
	Status        Status
	Email         string
	Phone         string
	PaymentMethod PaymentMethod
	From          time.Time
	To            time.Time
	Page          int
	Limit         int

	ownerID int64
}

// Page is a slice of orders plus the total number of matches.
type Page struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// normalizePage clamps page and limit to sane bounds and returns the row offset.
func normalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, (page - 1) * limit
}

func validateContact(c Contact) error {
	switch {
	case c.FirstName == "" || c.LastName == "":
		return apperr.New(apperr.KindInvalidInput, "first and last name are required")
	case c.Email == "":
		return apperr.New(apperr.KindInvalidInput, "email is required")
	case c.Phone == "":
		return apperr.New(apperr.KindInvalidInput, "phone is required")
	case c.Address == "":
		return apperr.New(apperr.KindInvalidInput, "shipping address is required")
	}
	return nil
}
