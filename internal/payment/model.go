package payment

import (
	"time"

	"github.com/vasiliy-maslov/laptop-store/internal/order"
)

type Method = order.PaymentMethod

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// Final reports whether the transaction can no longer be confirmed or failed.
func (s Status) Final() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Transaction is one payment attempt against an order.
type Transaction struct {
	ID         int64      `json:"id"`
	OrderID    int64      `json:"order_id"`
	Amount     int64      `json:"amount"`
	Method     Method     `json:"method"`
	Status     Status     `json:"status"`
	GatewayRef *string    `json:"gateway_ref,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// newTransaction prices a transaction from its order. Cash on delivery is
// recorded as completed immediately; e-banking waits for the gateway.
func newTransaction(o *order.Order, method Method, now time.Time) *Transaction {
	t := &Transaction{
		OrderID: o.ID,
		Amount:  o.TotalAmount,
		Method:  method,
		Status:  StatusPending,
	}
	if method == order.PaymentOnDelivery {
		t.Status = StatusCompleted
		t.PaidAt = &now
	}
	return t
}
