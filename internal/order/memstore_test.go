package order_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/cart"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
)

var errInjected = errors.New("injected storage fault")

// memDB is an in-memory stand-in for the database. Like Postgres it takes row
// locks that are held until the transaction ends, so concurrent units of work
// only serialize where they touch the same cart, order or product. A failed
// transaction replays its undo log. Map access is guarded by mu, which is only
// held for the duration of a single operation.
type memDB struct {
	mu sync.Mutex

	products map[int64]catalog.Product
	carts    map[int64]*cart.Cart
	orders   map[int64]*order.Order
	rows     map[string]*sync.Mutex

	nextOrderID int64
	nextItemID  int64

	// failAdjustOn makes the n-th AdjustStock call of a transaction fail. Zero disables it.
	failAdjustOn int
	commits      int
}

func newMemDB() *memDB {
	return &memDB{
		products: make(map[int64]catalog.Product),
		carts:    make(map[int64]*cart.Cart),
		orders:   make(map[int64]*order.Order),
		rows:     make(map[string]*sync.Mutex),
	}
}

func (d *memDB) addProduct(p catalog.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p.IsActive = true
	d.products[p.ID] = p
}

func (d *memDB) addCart(c *cart.Cart) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range c.Items {
		c.Items[i].CartID = c.ID
		c.Items[i].Subtotal = int64(c.Items[i].Quantity) * c.Items[i].UnitPrice
	}
	c.RecalculateTotal()
	d.carts[c.OwnerID] = c
}

func (d *memDB) stock(id int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.products[id].StockQty
}

func (d *memDB) orderCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.orders)
}

func (d *memDB) cartOf(ownerID int64) *cart.Cart {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.carts[ownerID]
	if !ok {
		return nil
	}
	return cloneCart(c)
}

func (d *memDB) row(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.rows[key]
	if !ok {
		m = &sync.Mutex{}
		d.rows[key] = m
	}
	return m
}

// memTx tracks the row locks and undo steps of one transaction.
type memTx struct {
	d           *memDB
	held        map[string]*sync.Mutex
	undo        []func()
	adjustCalls int
}

// lock blocks until the row is free. Re-locking a held row is a no-op.
func (tx *memTx) lock(key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	m := tx.d.row(key)
	m.Lock()
	tx.held[key] = m
}

// apply runs change under the map mutex and records how to revert it.
func (tx *memTx) apply(change func(), revert func()) {
	tx.d.mu.Lock()
	defer tx.d.mu.Unlock()
	change()
	tx.undo = append(tx.undo, revert)
}

func (tx *memTx) end(failed bool) {
	tx.d.mu.Lock()
	if failed {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	} else {
		tx.d.commits++
	}
	tx.d.mu.Unlock()

	for _, m := range tx.held {
		m.Unlock()
	}
}

func (d *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, s order.Store) error) error {
	tx := &memTx{d: d, held: make(map[string]*sync.Mutex)}
	err := fn(ctx, memStore{tx: tx})
	tx.end(err != nil)
	return err
}

// reader returns the order repository for calls made outside a transaction.
func (d *memDB) reader() order.Repository {
	return memOrders{d: d}
}

func productRow(id int64) string { return fmt.Sprintf("product:%d", id) }
func cartRow(owner int64) string { return fmt.Sprintf("cart:%d", owner) }
func orderRow(id int64) string   { return fmt.Sprintf("order:%d", id) }

type memStore struct {
	tx *memTx
}

func (s memStore) Orders() order.Repository     { return memOrders{d: s.tx.d, tx: s.tx} }
func (s memStore) Carts() order.CartStore       { return memCarts{tx: s.tx} }
func (s memStore) Products() order.ProductStore { return memProducts{tx: s.tx} }

type memCarts struct {
	tx *memTx
}

func (r memCarts) LockByOwner(_ context.Context, ownerID int64) (*cart.Cart, error) {
	r.tx.lock(cartRow(ownerID))
	d := r.tx.d
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.carts[ownerID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "cart for customer %d not found", ownerID)
	}
	return cloneCart(c), nil
}

func (r memCarts) Delete(_ context.Context, cartID int64) error {
	d := r.tx.d
	d.mu.Lock()
	var found *cart.Cart
	for _, c := range d.carts {
		if c.ID == cartID {
			found = c
			break
		}
	}
	d.mu.Unlock()
	if found == nil {
		return apperr.New(apperr.KindNotFound, "cart %d not found", cartID)
	}

	r.tx.lock(cartRow(found.OwnerID))
	r.tx.apply(
		func() { delete(d.carts, found.OwnerID) },
		func() { d.carts[found.OwnerID] = found },
	)
	return nil
}

type memProducts struct {
	tx *memTx
}

// LockForUpdate takes row locks in ascending id order, as the SQL repository does.
func (r memProducts) LockForUpdate(_ context.Context, ids []int64) (map[int64]catalog.Product, error) {
	sorted := slices.Sorted(slices.Values(ids))
	for _, id := range slices.Compact(sorted) {
		r.tx.lock(productRow(id))
	}

	d := r.tx.d
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int64]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := d.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r memProducts) AdjustStock(_ context.Context, id int64, delta int) (int, error) {
	d := r.tx.d
	r.tx.adjustCalls++
	if d.failAdjustOn > 0 && r.tx.adjustCalls == d.failAdjustOn {
		return 0, errInjected
	}

	r.tx.lock(productRow(id))
	d.mu.Lock()
	before, ok := d.products[id]
	d.mu.Unlock()
	if !ok {
		return 0, apperr.New(apperr.KindNotFound, "product %d not found", id)
	}

	after := before
	if err := after.AdjustStock(delta); err != nil {
		return 0, err
	}
	r.tx.apply(
		func() { d.products[id] = after },
		func() { d.products[id] = before },
	)
	return after.StockQty, nil
}

type memOrders struct {
	d  *memDB
	tx *memTx
}

func (r memOrders) Create(_ context.Context, o *order.Order) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	r.d.nextOrderID++
	o.ID = r.d.nextOrderID
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		r.d.nextItemID++
		o.Items[i].ID = r.d.nextItemID
		o.Items[i].OrderID = o.ID
	}
	r.d.orders[o.ID] = cloneOrder(o)
	if r.tx != nil {
		id := o.ID
		r.tx.undo = append(r.tx.undo, func() { delete(r.d.orders, id) })
	}
	return nil
}

func (r memOrders) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	o, ok := r.d.orders[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "order %d not found", id)
	}
	return cloneOrder(o), nil
}

func (r memOrders) LockByID(ctx context.Context, id int64) (*order.Order, error) {
	if r.tx != nil {
		r.tx.lock(orderRow(id))
	}
	return r.GetByID(ctx, id)
}

func (r memOrders) UpdateStatus(_ context.Context, id int64, status order.Status) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	o, ok := r.d.orders[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "order %d not found", id)
	}
	prev, prevAt := o.Status, o.UpdatedAt
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	if r.tx != nil {
		r.tx.undo = append(r.tx.undo, func() { o.Status, o.UpdatedAt = prev, prevAt })
	}
	return nil
}

func (r memOrders) ListByOwner(_ context.Context, ownerID int64, page, limit int) ([]order.Order, int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.page(func(o *order.Order) bool { return o.OwnerID == ownerID }, page, limit)
}

func (r memOrders) List(_ context.Context, filter order.ListFilter) ([]order.Order, int, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return r.page(func(o *order.Order) bool {
		return (filter.Status == "" || o.Status == filter.Status) &&
			(filter.Email == "" || o.Contact.Email == filter.Email) &&
			(filter.PaymentMethod == "" || o.PaymentMethod == filter.PaymentMethod)
	}, filter.Page, filter.Limit)
}

func (r memOrders) Revenue(_ context.Context, _, _ time.Time) (int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var total int64
	for _, o := range r.d.orders {
		if o.Status != order.StatusCancelled {
			total += o.TotalAmount
		}
	}
	return total, nil
}

func (r memOrders) page(match func(o *order.Order) bool, page, limit int) ([]order.Order, int, error) {
	ids := slices.Sorted(maps.Keys(r.d.orders))
	slices.Reverse(ids)

	matched := make([]order.Order, 0)
	for _, id := range ids {
		if o := r.d.orders[id]; match(o) {
			matched = append(matched, *cloneOrder(o))
		}
	}

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	return matched[start:end], len(matched), nil
}

func cloneCart(c *cart.Cart) *cart.Cart {
	out := *c
	out.Items = slices.Clone(c.Items)
	return &out
}

func cloneOrder(o *order.Order) *order.Order {
	out := *o
	out.Items = slices.Clone(o.Items)
	return &out
}
