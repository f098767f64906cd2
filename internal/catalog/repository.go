package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error

	// LockForUpdate takes row locks in ascending id order. Must run inside a transaction.
	LockForUpdate(ctx context.Context, ids []int64) (map[int64]Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (int, error)
}

type postgresRepository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &postgresRepository{db: conn}
}

const productColumns = `id, name, brand, price, stock_qty, is_active, images, rating::float8, rating_count,
	created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Brand,
		&p.Price,
		&p.StockQty,
		&p.IsActive,
		&p.Images,
		&p.Rating,
		&p.RatingCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "product %d not found", id)
		}
		return nil, fmt.Errorf("repository: failed to select product %d: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	return r.collect(ctx, query, ids)
}

func (r *postgresRepository) LockForUpdate(ctx context.Context, ids []int64) (map[int64]Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	products, err := r.collect(ctx, query, sorted)
	if err != nil {
		return nil, db.Classify(err, "lock products")
	}
	return products, nil
}

func (r *postgresRepository) collect(ctx context.Context, query string, ids []int64) (map[int64]Product, error) {
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products %v: %w", ids, err)
	}
	defer rows.Close()

	products := make(map[int64]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ($1 OR is_active)
		  AND ($2 = '' OR lower(brand) = lower($2))
		ORDER BY id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, filter.IncludeInactive, filter.Brand, filter.limit(), max(filter.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	if p.Images == nil {
		p.Images = []string{}
	}

	query := `
		INSERT INTO products (name, brand, price, stock_qty, is_active, images)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, p.Name, p.Brand, p.Price, p.StockQty, p.IsActive, p.Images).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if cerr := constraintError(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}

	return nil
}

// constraintError maps the products CHECK constraints to invalid_input, or returns nil.
func constraintError(err error) error {
	switch {
	case db.IsCheckViolation(err, "products_price_check"):
		return apperr.Wrap(apperr.KindInvalidInput, err, "price must be positive")
	case db.IsCheckViolation(err, "products_stock_qty_check"):
		return apperr.Wrap(apperr.KindInvalidInput, err, "stock quantity cannot be negative")
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	if p.Images == nil {
		p.Images = []string{}
	}

	query := `
		UPDATE products
		SET name = $2, brand = $3, price = $4, stock_qty = $5, is_active = $6, images = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING rating::float8, rating_count, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Brand, p.Price, p.StockQty, p.IsActive, p.Images).
		Scan(&p.Rating, &p.RatingCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "product %d not found", p.ID)
		}
		if cerr := constraintError(err); cerr != nil {
			return cerr
		}
		return fmt.Errorf("repository: failed to update product %d: %w", p.ID, err)
	}

	return nil
}

func (r *postgresRepository) SetActive(ctx context.Context, id int64, active bool) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE products SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("repository: failed to set product %d active=%t: %w", id, active, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "product %d not found", id)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Wrap(apperr.KindInvalidTransition, err,
				"product %d is referenced by placed orders and cannot be deleted, deactivate it instead", id)
		}
		return fmt.Errorf("repository: failed to delete product %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "product %d not found", id)
	}
	return nil
}

func (r *postgresRepository) AdjustStock(ctx context.Context, id int64, delta int) (int, error) {
	query := `
		UPDATE products
		SET stock_qty = stock_qty + $2, updated_at = NOW()
		WHERE id = $1 AND stock_qty + $2 >= 0
		RETURNING stock_qty
	`

	var newStock int
	err := r.db.QueryRow(ctx, query, id, delta).Scan(&newStock)
	if err == nil {
		return newStock, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, db.Classify(err, fmt.Sprintf("adjust stock of product %d", id))
	}

	// Either the product is gone or the guard refused the decrement.
	p, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	log.Warn().Int64("product_id", id).Int("stock_qty", p.StockQty).Int("delta", delta).Msg("repository: stock adjustment refused")
	return 0, insufficientStock(p.ID, p.Name, p.StockQty, -delta)
}
