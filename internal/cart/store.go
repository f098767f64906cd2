package cart

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

// ProductReader is the slice of the catalog the cart needs for pricing.
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
}

// Store exposes the repositories a cart unit of work touches.
type Store interface {
	Carts() Repository
	Products() ProductReader
}

// Transactor runs fn against a Store bound to one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

type pgTransactor struct {
	runner db.TxRunner
}

func NewTransactor(runner db.TxRunner) Transactor {
	return &pgTransactor{runner: runner}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return t.runner.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

func (s txStore) Carts() Repository       { return NewRepository(s.tx) }
func (s txStore) Products() ProductReader { return catalog.NewRepository(s.tx) }
