package payment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
)

// OrderStore is the part of the order repository a payment unit of work needs.
type OrderStore interface {
	LockByID(ctx context.Context, id int64) (*order.Order, error)
	UpdateStatus(ctx context.Context, id int64, status order.Status) error
}

type Store interface {
	Payments() Repository
	Orders() OrderStore
}

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

func (s txStore) Payments() Repository { return NewRepository(s.tx) }
func (s txStore) Orders() OrderStore   { return order.NewRepository(s.tx) }
