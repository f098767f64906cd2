package order

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

// Notifier is told about committed order changes. Delivery is fire-and-forget.
type Notifier interface {
	OrderPlaced(ctx context.Context, o Order)
	OrderStatusChanged(ctx context.Context, o Order, from Status)
}

// StockObserver is told which products had their stock moved by a committed unit of work.
type StockObserver interface {
	ProductsChanged(ctx context.Context, ids []int64)
}

type Service interface {
	PlaceOrder(ctx context.Context, ownerID int64, contact Contact, method PaymentMethod) (*Order, error)
	CancelOrder(ctx context.Context, requesterID, orderID int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status Status) (*Order, error)
	GetOrder(ctx context.Context, ownerID, orderID int64) (*Order, error)
	ListOwnerOrders(ctx context.Context, ownerID int64, page, limit int) (*Page, error)
	AdminListOrders(ctx context.Context, filter ListFilter) (*Page, error)
	Revenue(ctx context.Context, from, to time.Time) (int64, error)
}

type service struct {
	repo     Repository
	tx       Transactor
	notifier Notifier
	stock    StockObserver
}

func NewService(repo Repository, tx Transactor, notifier Notifier, stock StockObserver) Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if stock == nil {
		stock = nopStockObserver{}
	}
	return &service{repo: repo, tx: tx, notifier: notifier, stock: stock}
}

// PlaceOrder converts the owner's cart into a pending order. Stock for every
// line is reserved in the same transaction that writes the order and removes
// the cart, so either all of it happens or none of it does.
func (s *service) PlaceOrder(ctx context.Context, ownerID int64, contact Contact, method PaymentMethod) (*Order, error) {
	if !method.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown payment method %q", method)
	}
	if err := validateContact(contact); err != nil {
		return nil, err
	}

	var placed *Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		c, err := st.Carts().LockByOwner(ctx, ownerID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.New(apperr.KindEmptyCart, "cart is empty")
			}
			return err
		}
		if c.IsEmpty() {
			return apperr.New(apperr.KindEmptyCart, "cart is empty")
		}

		products, err := st.Products().LockForUpdate(ctx, c.ProductIDs())
		if err != nil {
			return err
		}

		prices := make(map[int64]int64, len(products))
		for _, item := range c.Items {
			p, ok := products[item.ProductID]
			if !ok || !p.IsActive {
				return apperr.New(apperr.KindNotFound, "product %d in cart is no longer available", item.ProductID)
			}
			prices[p.ID] = p.Price
		}
		c.RefreshPrices(prices)

		o := &Order{
			OwnerID:           ownerID,
			Status:            StatusPending,
			ShippingSurcharge: ShippingSurcharge,
			PaymentMethod:     method,
			Contact:           contact,
			Items:             make([]Item, 0, len(c.Items)),
		}
		for _, line := range c.Items {
			p := products[line.ProductID]
			if err := p.AdjustStock(-line.Quantity); err != nil {
				return err
			}
			o.Items = append(o.Items, Item{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal,
			})
		}
		o.TotalAmount = o.ItemsTotal() + o.ShippingSurcharge

		if err := st.Orders().Create(ctx, o); err != nil {
			return err
		}

		for _, item := range sortedByProduct(o.Items) {
			if _, err := st.Products().AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}

		if err := st.Carts().Delete(ctx, c.ID); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, map[string]any{"owner_id": ownerID}, "place order")
	}

	log.Info().Int64("order_id", placed.ID).Int64("owner_id", ownerID).Int64("total_amount", placed.TotalAmount).Msg("service: order placed")
	s.notifier.OrderPlaced(ctx, *placed)
	s.stock.ProductsChanged(ctx, placed.ProductIDs())
	return placed, nil
}

func (s *service) CancelOrder(ctx context.Context, requesterID, orderID int64) (*Order, error) {
	var (
		cancelled *Order
		from      Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		o, err := st.Orders().LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.OwnerID != requesterID {
			return apperr.New(apperr.KindNotFound, "order %d not found", orderID)
		}
		if !o.Status.Cancellable() {
			return apperr.New(apperr.KindInvalidTransition, "order %d cannot be cancelled in status %s", orderID, o.Status)
		}

		for _, item := range sortedByProduct(o.Items) {
			if _, err := st.Products().AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := st.Orders().UpdateStatus(ctx, o.ID, StatusCancelled); err != nil {
			return err
		}

		from = o.Status
		o.Status = StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, map[string]any{"order_id": orderID, "requester_id": requesterID}, "cancel order")
	}

	log.Info().Int64("order_id", orderID).Stringer("old_status", from).Msg("service: order cancelled")
	s.notifier.OrderStatusChanged(ctx, *cancelled, from)
	s.stock.ProductsChanged(ctx, cancelled.ProductIDs())
	return cancelled, nil
}

// UpdateOrderStatus lets an administrator move an order to any settable
// status. No adjacency rules apply and stock is not touched.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID int64, status Status) (*Order, error) {
	if !status.AdminSettable() {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid order status %q", status)
	}

	var (
		updated *Order
		from    Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		o, err := st.Orders().LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := st.Orders().UpdateStatus(ctx, orderID, status); err != nil {
			return err
		}
		from = o.Status
		o.Status = status
		updated = o
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, map[string]any{"order_id": orderID, "new_status": status}, "update order status")
	}

	log.Info().Int64("order_id", orderID).Stringer("old_status", from).Stringer("new_status", status).Msg("service: order status updated")
	if from != status {
		s.notifier.OrderStatusChanged(ctx, *updated, from)
	}
	return updated, nil
}

func (s *service) GetOrder(ctx context.Context, ownerID, orderID int64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Int64("order_id", orderID).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	if o.OwnerID != ownerID {
		log.Warn().Int64("order_id", orderID).Int64("requester_id", ownerID).Msg("service: order requested by non-owner")
		return nil, apperr.New(apperr.KindNotFound, "order %d not found", orderID)
	}
	return o, nil
}

func (s *service) ListOwnerOrders(ctx context.Context, ownerID int64, page, limit int) (*Page, error) {
	page, limit, _ = normalizePage(page, limit)
	orders, total, err := s.repo.ListByOwner(ctx, ownerID, page, limit)
	if err != nil {
		log.Error().Err(err).Int64("owner_id", ownerID).Msg("service: failed to list owner orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return &Page{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) AdminListOrders(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Status != "" && !filter.Status.AdminSettable() && filter.Status != StatusPaid {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid order status %q", filter.Status)
	}
	if filter.PaymentMethod != "" && !filter.PaymentMethod.Valid() {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown payment method %q", filter.PaymentMethod)
	}
	filter.Page, filter.Limit, _ = normalizePage(filter.Page, filter.Limit)

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return &Page{Orders: orders, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *service) Revenue(ctx context.Context, from, to time.Time) (int64, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return 0, apperr.New(apperr.KindInvalidInput, "revenue range start must be before its end")
	}
	revenue, err := s.repo.Revenue(ctx, from, to)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to compute revenue")
		return 0, fmt.Errorf("service: failed to compute revenue: %w", err)
	}
	return revenue, nil
}

// wrap passes classified errors through; anything else is an infrastructure failure.
func (s *service) wrap(err error, fields map[string]any, op string) error {
	if apperr.KindOf(err) != "" {
		log.Warn().Err(err).Fields(fields).Msgf("service: %s refused", op)
		return err
	}
	log.Error().Err(err).Fields(fields).Msgf("service: failed to %s", op)
	return fmt.Errorf("service: failed to %s: %w", op, err)
}

// sortedByProduct returns items in ascending product id order, the order in
// which stock rows are touched.
func sortedByProduct(items []Item) []Item {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b Item) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return sorted
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(context.Context, Order)                {}
func (nopNotifier) OrderStatusChanged(context.Context, Order, Status) {}

type nopStockObserver struct{}

func (nopStockObserver) ProductsChanged(context.Context, []int64) {}
