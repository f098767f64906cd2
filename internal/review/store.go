package review

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

// ProductLocker is the part of the catalog repository a review unit of work needs.
type ProductLocker interface {
	LockForUpdate(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
}

type Store interface {
	Reviews() Repository
	Products() ProductLocker
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

func (s txStore) Reviews() Repository     { return NewRepository(s.tx) }
func (s txStore) Products() ProductLocker { return catalog.NewRepository(s.tx) }
