package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

type Repository interface {
	// Create inserts the order and its items, filling in generated ids and timestamps.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	// LockByID loads the order with its row locked. Must run inside a transaction.
	LockByID(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	ListByOwner(ctx context.Context, ownerID int64, page, limit int) ([]Order, int, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	// Revenue sums totals of non-cancelled orders created in [from, to). Zero bounds are open.
	Revenue(ctx context.Context, from, to time.Time) (int64, error)
}

type postgresRepository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &postgresRepository{db: conn}
}

const orderColumns = `id, owner_id, status, total_amount, shipping_surcharge, payment_method,
	first_name, last_name, email, phone, address, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OwnerID, &o.Status, &o.TotalAmount, &o.ShippingSurcharge, &o.PaymentMethod,
		&o.Contact.FirstName, &o.Contact.LastName, &o.Contact.Email, &o.Contact.Phone, &o.Contact.Address,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Items = []Item{}
	return &o, nil
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO orders (owner_id, status, total_amount, shipping_surcharge, payment_method,
			first_name, last_name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		o.OwnerID, o.Status, o.TotalAmount, o.ShippingSurcharge, o.PaymentMethod,
		o.Contact.FirstName, o.Contact.LastName, o.Contact.Email, o.Contact.Phone, o.Contact.Address,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		err := r.db.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price_at_purchase, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, o.ID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for product %d: %w", item.ProductID, err)
		}
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepository) LockByID(ctx context.Context, id int64) (*Order, error) {
	o, err := r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil && apperr.KindOf(err) == "" {
		return nil, db.Classify(err, "lock order")
	}
	return o, err
}

func (r *postgresRepository) getOne(ctx context.Context, query string, id int64) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "order %d not found", id)
		}
		return nil, fmt.Errorf("repository: failed to select order %d: %w", id, err)
	}

	orders := []Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// attachItems loads the items of every order in one query.
func (r *postgresRepository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	index := make(map[int64]int, len(orders))
	ids := make([]int64, 0, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids = append(ids, o.ID)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price_at_purchase, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		o := &orders[index[item.OrderID]]
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating order items: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("repository: failed to update status of order %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "order %d not found", id)
	}
	return nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID int64, page, limit int) ([]Order, int, error) {
	return r.List(ctx, ListFilter{Page: page, Limit: limit, ownerID: ownerID})
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where, args := filter.where()
	_, limit, offset := normalizePage(filter.Page, filter.Limit)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating orders: %w", err)
	}
	rows.Close()

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *postgresRepository) Revenue(ctx context.Context, from, to time.Time) (int64, error) {
	where, args := ListFilter{From: from, To: to}.where()
	args = append(args, StatusCancelled)
	cond := fmt.Sprintf("status <> $%d", len(args))
	if where == "" {
		where = " WHERE " + cond
	} else {
		where += " AND " + cond
	}

	var revenue int64
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM orders`+where, args...).Scan(&revenue); err != nil {
		return 0, fmt.Errorf("repository: failed to sum revenue: %w", err)
	}
	return revenue, nil
}

// where renders the filter as a WHERE clause with positional arguments.
func (f ListFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ownerID != 0 {
		add("owner_id = $%d", f.ownerID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Email != "" {
		add("email = $%d", f.Email)
	}
	if f.Phone != "" {
		add("phone = $%d", f.Phone)
	}
	if f.PaymentMethod != "" {
		add("payment_method = $%d", f.PaymentMethod)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
