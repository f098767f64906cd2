package cart

import (
	"time"

	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

// Item is one cart line: a product, a quantity and the unit price snapshot
// taken when the line was last priced.
type Item struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Subtotal  int64 `json:"subtotal"`
}

func (i *Item) computeSubtotal() {
	i.Subtotal = int64(i.Quantity) * i.UnitPrice
}

// Cart is the per-customer aggregate. TotalAmount always equals the sum of
// item subtotals once a mutating method returns.
type Cart struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Items       []Item    `json:"items"`
	TotalAmount int64     `json:"total_amount"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem merges qty into an existing line for productID or appends a new line.
func (c *Cart) AddItem(productID int64, qty int, unitPrice int64) (*Item, error) {
	if qty <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "quantity must be positive, got %d", qty)
	}
	defer c.RecalculateTotal()

	for i := range c.Items {
		item := &c.Items[i]
		if item.ProductID == productID {
			item.Quantity += qty
			item.computeSubtotal()
			return item, nil
		}
	}

	c.Items = append(c.Items, Item{
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
	})
	item := &c.Items[len(c.Items)-1]
	item.computeSubtotal()
	return item, nil
}

// UpdateItemQuantity sets the quantity of a line; zero removes it.
func (c *Cart) UpdateItemQuantity(itemID int64, qty int) error {
	if qty < 0 {
		return apperr.New(apperr.KindInvalidInput, "quantity cannot be negative, got %d", qty)
	}
	if qty == 0 {
		return c.RemoveItem(itemID)
	}

	item := c.findItem(itemID)
	if item == nil {
		return itemNotFound(itemID)
	}
	item.Quantity = qty
	item.computeSubtotal()
	c.RecalculateTotal()
	return nil
}

func (c *Cart) RemoveItem(itemID int64) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.RecalculateTotal()
			return nil
		}
	}
	return itemNotFound(itemID)
}

// RefreshPrices rewrites every line's unit price from prices, keyed by product id.
// Lines whose product is missing from prices keep their snapshot.
func (c *Cart) RefreshPrices(prices map[int64]int64) {
	for i := range c.Items {
		item := &c.Items[i]
		if price, ok := prices[item.ProductID]; ok && price > 0 {
			item.UnitPrice = price
			item.computeSubtotal()
		}
	}
	c.RecalculateTotal()
}

func (c *Cart) RecalculateTotal() {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal
	}
	c.TotalAmount = total
}

func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func (c *Cart) findItem(itemID int64) *Item {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

func itemNotFound(itemID int64) error {
	return apperr.New(apperr.KindNotFound, "cart item %d not found", itemID)
}
