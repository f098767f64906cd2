package refund

import (
	"strings"
	"time"

	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) String() string {
	return string(s)
}

// ParseDecision accepts exactly "approved" or "rejected".
func ParseDecision(s string) (Status, error) {
	switch Status(s) {
	case StatusApproved, StatusRejected:
		return Status(s), nil
	}
	return "", apperr.New(apperr.KindInvalidInput, "decision must be %q or %q, got %q", StatusApproved, StatusRejected, s)
}

type Ticket struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"order_id"`
	OwnerID       int64      `json:"owner_id"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Reason        string     `json:"reason"`
	Status        Status     `json:"status"`
	AdminComments string     `json:"admin_comments"`
	ResolvedByID  *int64     `json:"resolved_by_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func (t *Ticket) validate() error {
	switch {
	case strings.TrimSpace(t.Email) == "":
		return apperr.New(apperr.KindInvalidInput, "email is required")
	case strings.TrimSpace(t.Phone) == "":
		return apperr.New(apperr.KindInvalidInput, "phone is required")
	case strings.TrimSpace(t.Reason) == "":
		return apperr.New(apperr.KindInvalidInput, "refund reason is required")
	}
	return nil
}

type Page struct {
	Tickets []Ticket `json:"tickets"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Size    int      `json:"size"`
}
