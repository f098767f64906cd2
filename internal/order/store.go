package order

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/cart"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

// CartStore is the part of the cart repository an order unit of work needs.
type CartStore interface {
	LockByOwner(ctx context.Context, ownerID int64) (*cart.Cart, error)
	Delete(ctx context.Context, cartID int64) error
}

// ProductStore is the part of the catalog repository that reserves and restores stock.
type ProductStore interface {
	LockForUpdate(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (int, error)
}

type Store interface {
	Orders() Repository
	Carts() CartStore
	Products() ProductStore
}

// Transactor runs fn against a Store bound to one database transaction.
// A non-nil error from fn rolls back every write made through the Store.
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

func (s txStore) Orders() Repository     { return NewRepository(s.tx) }
func (s txStore) Carts() CartStore       { return cart.NewRepository(s.tx) }
func (s txStore) Products() ProductStore { return catalog.NewRepository(s.tx) }
