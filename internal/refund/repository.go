package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

const uniqueTicketConstraint = "refund_tickets_email_phone_order_key"

type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id int64) (*Ticket, error)
	// Resolve moves a pending ticket to decision. It fails with invalid_transition
	// when the ticket has already been resolved.
	Resolve(ctx context.Context, id, adminID int64, decision Status, comments string) (*Ticket, error)
	ListPending(ctx context.Context, limit, offset int) ([]Ticket, int, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Ticket, error)
}

type postgresRepository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &postgresRepository{db: conn}
}

const ticketColumns = `id, order_id, owner_id, email, phone, reason, status, admin_comments,
	resolved_by_id, created_at, resolved_at`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.OrderID, &t.OwnerID, &t.Email, &t.Phone, &t.Reason, &t.Status,
		&t.AdminComments, &t.ResolvedByID, &t.CreatedAt, &t.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepository) Create(ctx context.Context, t *Ticket) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO refund_tickets (order_id, owner_id, email, phone, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, t.OrderID, t.OwnerID, t.Email, t.Phone, t.Reason, t.Status).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, uniqueTicketConstraint) {
			return apperr.Wrap(apperr.KindDuplicateTicket, err,
				"a refund ticket for order %d with this email and phone already exists", t.OrderID)
		}
		return fmt.Errorf("repository: failed to insert refund ticket for order %d: %w", t.OrderID, err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM refund_tickets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "refund ticket %d not found", id)
		}
		return nil, fmt.Errorf("repository: failed to select refund ticket %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresRepository) Resolve(ctx context.Context, id, adminID int64, decision Status, comments string) (*Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `
		UPDATE refund_tickets
		SET status = $2, resolved_by_id = $3, admin_comments = $4, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+ticketColumns, id, decision, adminID, comments))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to resolve refund ticket %d: %w", id, err)
	}

	// The guard matched nothing: the ticket is missing or already resolved.
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperr.New(apperr.KindInvalidTransition, "refund ticket %d is already %s", id, current.Status)
}

func (r *postgresRepository) ListPending(ctx context.Context, limit, offset int) ([]Ticket, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM refund_tickets WHERE status = 'pending'`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count pending refund tickets: %w", err)
	}

	tickets, err := r.collect(ctx, `
		SELECT `+ticketColumns+`
		FROM refund_tickets
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]Ticket, error) {
	return r.collect(ctx, `
		SELECT `+ticketColumns+`
		FROM refund_tickets
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`, ownerID)
}

func (r *postgresRepository) collect(ctx context.Context, query string, args ...any) ([]Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query refund tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan refund ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating refund tickets: %w", err)
	}
	return tickets, nil
}
