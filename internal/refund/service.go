package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
)

// OrderReader resolves the order a ticket is filed against.
type OrderReader interface {
	GetByID(ctx context.Context, id int64) (*order.Order, error)
}

type Service interface {
	SubmitTicket(ctx context.Context, ownerID, orderID int64, reason, email, phone string) (*Ticket, error)
	ResolveTicket(ctx context.Context, adminID, ticketID int64, decision, comments string) (*Ticket, error)
	ListPending(ctx context.Context, page, size int) (*Page, error)
	ListForOwner(ctx context.Context, ownerID int64) ([]Ticket, error)
}

type service struct {
	repo   Repository
	orders OrderReader
}

func NewService(repo Repository, orders OrderReader) Service {
	return &service{repo: repo, orders: orders}
}

// SubmitTicket files a refund request for a delivered order owned by ownerID.
func (s *service) SubmitTicket(ctx context.Context, ownerID, orderID int64, reason, email, phone string) (*Ticket, error) {
	t := &Ticket{
		OrderID: orderID,
		OwnerID: ownerID,
		Email:   email,
		Phone:   phone,
		Reason:  reason,
		Status:  StatusPending,
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Int64("order_id", orderID).Msg("service: failed to fetch order for refund ticket")
		return nil, fmt.Errorf("service: failed to submit refund ticket: %w", err)
	}
	if o.OwnerID != ownerID {
		log.Warn().Int64("order_id", orderID).Int64("requester_id", ownerID).Msg("service: refund requested for another customer's order")
		return nil, apperr.New(apperr.KindNotFound, "order %d not found", orderID)
	}
	if o.Status != order.StatusDelivered {
		return nil, apperr.New(apperr.KindInvalidTransition, "order %d is not delivered (status %s)", orderID, o.Status)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, apperr.ErrDuplicateTicket) {
			log.Warn().Int64("order_id", orderID).Msg("service: duplicate refund ticket")
			return nil, err
		}
		log.Error().Err(err).Int64("order_id", orderID).Msg("service: failed to create refund ticket")
		return nil, fmt.Errorf("service: failed to submit refund ticket: %w", err)
	}

	log.Info().Int64("ticket_id", t.ID).Int64("order_id", orderID).Msg("service: refund ticket submitted")
	return t, nil
}

// ResolveTicket records an administrator's decision. Order status is not
// changed here; moving an order to refunded is a separate admin action.
func (s *service) ResolveTicket(ctx context.Context, adminID, ticketID int64, decision, comments string) (*Ticket, error) {
	status, err := ParseDecision(decision)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.Resolve(ctx, ticketID, adminID, status, comments)
	if err != nil {
		if apperr.KindOf(err) != "" {
			log.Warn().Err(err).Int64("ticket_id", ticketID).Msg("service: refund ticket resolution refused")
			return nil, err
		}
		log.Error().Err(err).Int64("ticket_id", ticketID).Msg("service: failed to resolve refund ticket")
		return nil, fmt.Errorf("service: failed to resolve refund ticket: %w", err)
	}

	log.Info().Int64("ticket_id", ticketID).Int64("admin_id", adminID).Stringer("decision", status).Msg("service: refund ticket resolved")
	return t, nil
}

func (s *service) ListPending(ctx context.Context, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tickets, total, err := s.repo.ListPending(ctx, size, (page-1)*size)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list pending refund tickets")
		return nil, fmt.Errorf("service: failed to list pending refund tickets: %w", err)
	}
	return &Page{Tickets: tickets, Total: total, Page: page, Size: size}, nil
}

func (s *service) ListForOwner(ctx context.Context, ownerID int64) ([]Ticket, error) {
	tickets, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		log.Error().Err(err).Int64("owner_id", ownerID).Msg("service: failed to list refund tickets")
		return nil, fmt.Errorf("service: failed to list refund tickets: %w", err)
	}
	return tickets, nil
}
