package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	// LockByID loads the transaction with its row locked. Must run inside a transaction.
	LockByID(ctx context.Context, id int64) (*Transaction, error)
	MarkSucceeded(ctx context.Context, id int64, gatewayRef string, paidAt time.Time) error
	MarkFailed(ctx context.Context, id int64) error
	ListByOrder(ctx context.Context, orderID int64) ([]Transaction, error)
}

type postgresRepository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &postgresRepository{db: conn}
}

const transactionColumns = `id, order_id, amount, method, status, gateway_ref, created_at, paid_at`

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	if err := row.Scan(&t.ID, &t.OrderID, &t.Amount, &t.Method, &t.Status, &t.GatewayRef, &t.CreatedAt, &t.PaidAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepository) Create(ctx context.Context, t *Transaction) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payment_transactions (order_id, amount, method, status, gateway_ref, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.OrderID, t.Amount, t.Method, t.Status, t.GatewayRef, t.PaidAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Wrap(apperr.KindNotFound, err, "order %d not found", t.OrderID)
		}
		return fmt.Errorf("repository: failed to insert payment transaction for order %d: %w", t.OrderID, err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	return r.getOne(ctx, `SELECT `+transactionColumns+` FROM payment_transactions WHERE id = $1`, id)
}

func (r *postgresRepository) LockByID(ctx context.Context, id int64) (*Transaction, error) {
	t, err := r.getOne(ctx, `SELECT `+transactionColumns+` FROM payment_transactions WHERE id = $1 FOR UPDATE`, id)
	if err != nil && apperr.KindOf(err) == "" {
		return nil, db.Classify(err, "lock payment transaction")
	}
	return t, err
}

func (r *postgresRepository) getOne(ctx context.Context, query string, id int64) (*Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "payment transaction %d not found", id)
		}
		return nil, fmt.Errorf("repository: failed to select payment transaction %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresRepository) MarkSucceeded(ctx context.Context, id int64, gatewayRef string, paidAt time.Time) error {
	return r.setStatus(ctx, `
		UPDATE payment_transactions SET status = $2, gateway_ref = $3, paid_at = $4
		WHERE id = $1
	`, id, StatusSuccess, gatewayRef, paidAt)
}

func (r *postgresRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.setStatus(ctx, `UPDATE payment_transactions SET status = $2 WHERE id = $1`, id, StatusFailed)
}

func (r *postgresRepository) setStatus(ctx context.Context, query string, id int64, args ...any) error {
	cmdTag, err := r.db.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("repository: failed to update payment transaction %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "payment transaction %d not found", id)
	}
	return nil
}

func (r *postgresRepository) ListByOrder(ctx context.Context, orderID int64) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query payment transactions for order %d: %w", orderID, err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan payment transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating payment transactions: %w", err)
	}
	return transactions, nil
}
