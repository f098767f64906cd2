package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

type Repository interface {
	GetByOwner(ctx context.Context, ownerID int64) (*Cart, error)
	// LockByOwner loads the cart with its row locked. Must run inside a transaction.
	LockByOwner(ctx context.Context, ownerID int64) (*Cart, error)
	// GetOrCreate returns the owner's cart, creating it on first use, with its row locked.
	GetOrCreate(ctx context.Context, ownerID int64) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, cartID int64) error
}

type postgresRepository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &postgresRepository{db: conn}
}

func (r *postgresRepository) GetByOwner(ctx context.Context, ownerID int64) (*Cart, error) {
	return r.load(ctx, `SELECT id, owner_id, total_amount, updated_at FROM carts WHERE owner_id = $1`, ownerID)
}

func (r *postgresRepository) LockByOwner(ctx context.Context, ownerID int64) (*Cart, error) {
	c, err := r.load(ctx, `SELECT id, owner_id, total_amount, updated_at FROM carts WHERE owner_id = $1 FOR UPDATE`, ownerID)
	if err != nil && apperr.KindOf(err) == "" {
		return nil, db.Classify(err, "lock cart")
	}
	return c, err
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, ownerID int64) (*Cart, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO carts (owner_id) VALUES ($1) ON CONFLICT (owner_id) DO NOTHING`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create cart for owner %d: %w", ownerID, err)
	}
	return r.LockByOwner(ctx, ownerID)
}

func (r *postgresRepository) load(ctx context.Context, query string, ownerID int64) (*Cart, error) {
	var c Cart
	err := r.db.QueryRow(ctx, query, ownerID).Scan(&c.ID, &c.OwnerID, &c.TotalAmount, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "cart for customer %d not found", ownerID)
		}
		return nil, fmt.Errorf("repository: failed to select cart for owner %d: %w", ownerID, err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, cart_id, product_id, quantity, unit_price, subtotal
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY id
	`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for cart %d: %w", c.ID, err)
	}
	defer rows.Close()

	c.Items = make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for cart %d: %w", c.ID, err)
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for cart %d: %w", c.ID, err)
	}

	return &c, nil
}

// Save writes the cart total and reconciles its lines: lines no longer in
// c.Items are deleted, new lines are inserted and existing ones updated.
func (r *postgresRepository) Save(ctx context.Context, c *Cart) error {
	keep := make([]int64, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ID != 0 {
			keep = append(keep, item.ID)
		}
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND NOT (id = ANY($2))`, c.ID, keep); err != nil {
		return fmt.Errorf("repository: failed to prune cart items for cart %d: %w", c.ID, err)
	}

	for i := range c.Items {
		item := &c.Items[i]
		item.CartID = c.ID

		if item.ID == 0 {
			err := r.db.QueryRow(ctx, `
				INSERT INTO cart_items (cart_id, product_id, quantity, unit_price, subtotal)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, c.ID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("repository: failed to insert cart item for product %d: %w", item.ProductID, err)
			}
			continue
		}

		_, err := r.db.Exec(ctx, `
			UPDATE cart_items SET quantity = $2, unit_price = $3, subtotal = $4
			WHERE id = $1
		`, item.ID, item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return fmt.Errorf("repository: failed to update cart item %d: %w", item.ID, err)
		}
	}

	err := r.db.QueryRow(ctx, `
		UPDATE carts SET total_amount = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, c.ID, c.TotalAmount).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart %d total: %w", c.ID, err)
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, cartID int64) error {
	// cart_items go with the cart through ON DELETE CASCADE.
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart %d: %w", cartID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "cart %d not found", cartID)
	}
	return nil
}
