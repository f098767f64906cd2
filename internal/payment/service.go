package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
)

// Gateway is told about settled transactions after they commit.
type Gateway interface {
	PaymentConfirmed(ctx context.Context, t Transaction)
	PaymentFailed(ctx context.Context, t Transaction, reason string)
}

type Service interface {
	CreateTransaction(ctx context.Context, orderID int64, method Method) (*Transaction, error)
	ConfirmTransaction(ctx context.Context, transactionID int64, externalRef string) (*Transaction, error)
	FailTransaction(ctx context.Context, transactionID int64, reason string) (*Transaction, error)
	ListForOrder(ctx context.Context, orderID int64) ([]Transaction, error)
}

type service struct {
	repo    Repository
	tx      Transactor
	gateway Gateway
	now     func() time.Time
}

func NewService(repo Repository, tx Transactor, gateway Gateway) Service {
	if gateway == nil {
		gateway = LocalGateway{}
	}
	return &service{repo: repo, tx: tx, gateway: gateway, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) CreateTransaction(ctx context.Context, orderID int64, method Method) (*Transaction, error) {
	if !method.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown payment method %q", method)
	}

	var created *Transaction
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		o, err := st.Orders().LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := checkPayable(o); err != nil {
			return err
		}

		t := newTransaction(o, method, s.now())
		if err := st.Payments().Create(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, wrap(err, map[string]any{"order_id": orderID}, "create payment transaction")
	}

	log.Info().Int64("transaction_id", created.ID).Int64("order_id", orderID).Stringer("status", created.Status).Msg("service: payment transaction created")
	return created, nil
}

// ConfirmTransaction records a successful payment and moves the owning order
// to paid in the same transaction.
func (s *service) ConfirmTransaction(ctx context.Context, transactionID int64, externalRef string) (*Transaction, error) {
	if externalRef == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "external reference is required")
	}

	var confirmed *Transaction
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		t, err := st.Payments().LockByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if t.Status.Final() {
			return apperr.New(apperr.KindInvalidTransition, "payment transaction %d is already %s", transactionID, t.Status)
		}
		o, err := st.Orders().LockByID(ctx, t.OrderID)
		if err != nil {
			return err
		}
		if err := checkPayable(o); err != nil {
			return err
		}

		paidAt := s.now()
		if err := st.Payments().MarkSucceeded(ctx, t.ID, externalRef, paidAt); err != nil {
			return err
		}
		if err := st.Orders().UpdateStatus(ctx, t.OrderID, order.StatusPaid); err != nil {
			return err
		}

		t.Status = StatusSuccess
		t.GatewayRef = &externalRef
		t.PaidAt = &paidAt
		confirmed = t
		return nil
	})
	if err != nil {
		return nil, wrap(err, map[string]any{"transaction_id": transactionID}, "confirm payment transaction")
	}

	log.Info().Int64("transaction_id", transactionID).Int64("order_id", confirmed.OrderID).Msg("service: payment confirmed")
	s.gateway.PaymentConfirmed(ctx, *confirmed)
	return confirmed, nil
}

func (s *service) FailTransaction(ctx context.Context, transactionID int64, reason string) (*Transaction, error) {
	var failed *Transaction
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		t, err := st.Payments().LockByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if t.Status != StatusPending {
			return apperr.New(apperr.KindInvalidTransition, "payment transaction %d is %s, only pending transactions can fail", transactionID, t.Status)
		}
		if err := st.Payments().MarkFailed(ctx, t.ID); err != nil {
			return err
		}
		t.Status = StatusFailed
		failed = t
		return nil
	})
	if err != nil {
		return nil, wrap(err, map[string]any{"transaction_id": transactionID}, "fail payment transaction")
	}

	log.Info().Int64("transaction_id", transactionID).Str("reason", reason).Msg("service: payment failed")
	s.gateway.PaymentFailed(ctx, *failed, reason)
	return failed, nil
}

func (s *service) ListForOrder(ctx context.Context, orderID int64) ([]Transaction, error) {
	transactions, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("service: failed to list payment transactions")
		return nil, fmt.Errorf("service: failed to list payment transactions: %w", err)
	}
	return transactions, nil
}

// checkPayable refuses payments for orders whose stock has already been released.
func checkPayable(o *order.Order) error {
	if o.Status == order.StatusCancelled || o.Status == order.StatusRefunded {
		return apperr.New(apperr.KindInvalidTransition, "order %d cannot be paid in status %s", o.ID, o.Status)
	}
	return nil
}

func wrap(err error, fields map[string]any, op string) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		log.Warn().Err(err).Fields(fields).Msgf("service: %s refused", op)
		return err
	}
	log.Error().Err(err).Fields(fields).Msgf("service: failed to %s", op)
	return fmt.Errorf("service: failed to %s: %w", op, err)
}

// LocalGateway only logs settlements. It is used when no external gateway is wired.
type LocalGateway struct{}

func (LocalGateway) PaymentConfirmed(_ context.Context, t Transaction) {
	log.Debug().Int64("transaction_id", t.ID).Msg("gateway: payment confirmed")
}

func (LocalGateway) PaymentFailed(_ context.Context, t Transaction, reason string) {
	log.Debug().Int64("transaction_id", t.ID).Str("reason", reason).Msg("gateway: payment failed")
}
