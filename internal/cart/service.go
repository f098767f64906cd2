package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

type Service interface {
	// GetCart returns the caller's cart, or an empty one when none exists yet.
	GetCart(ctx context.Context, ownerID int64) (*Cart, error)
	AddItem(ctx context.Context, ownerID, productID int64, qty int) (*Cart, error)
	UpdateItemQuantity(ctx context.Context, ownerID, itemID int64, qty int) (*Cart, error)
	RemoveItem(ctx context.Context, ownerID, itemID int64) (*Cart, error)
	Clear(ctx context.Context, ownerID int64) error
}

type service struct {
	repo Repository
	tx   Transactor
}

// NewService wires reads to repo and mutations through tx.
func NewService(repo Repository, tx Transactor) Service {
	return &service{repo: repo, tx: tx}
}

func (s *service) GetCart(ctx context.Context, ownerID int64) (*Cart, error) {
	c, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &Cart{OwnerID: ownerID, Items: []Item{}}, nil
		}
		log.Error().Err(err).Int64("owner_id", ownerID).Msg("service: failed to get cart")
		return nil, fmt.Errorf("service: failed to get cart: %w", err)
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, ownerID, productID int64, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "quantity must be positive, got %d", qty)
	}

	var result *Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		p, err := st.Products().GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return apperr.New(apperr.KindNotFound, "product %d not found", productID)
		}
		if !p.IsInStock() {
			return apperr.New(apperr.KindOutOfStock, "product %q (id %d) is out of stock", p.Name, p.ID)
		}

		c, err := st.Carts().GetOrCreate(ctx, ownerID)
		if err != nil {
			return err
		}
		if _, err := c.AddItem(productID, qty, p.Price); err != nil {
			return err
		}
		if err := st.Carts().Save(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, ownerID, "add item to cart")
	}

	log.Info().Int64("owner_id", ownerID).Int64("product_id", productID).Int("quantity", qty).Msg("service: item added to cart")
	return result, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, ownerID, itemID int64, qty int) (*Cart, error) {
	return s.mutate(ctx, ownerID, "update cart item", func(c *Cart) error {
		return c.UpdateItemQuantity(itemID, qty)
	})
}

func (s *service) RemoveItem(ctx context.Context, ownerID, itemID int64) (*Cart, error) {
	return s.mutate(ctx, ownerID, "remove cart item", func(c *Cart) error {
		return c.RemoveItem(itemID)
	})
}

func (s *service) Clear(ctx context.Context, ownerID int64) error {
	_, err := s.mutate(ctx, ownerID, "clear cart", func(c *Cart) error {
		c.Items = c.Items[:0]
		c.RecalculateTotal()
		return nil
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

// mutate loads the owner's cart under lock, applies fn and saves the result
// in one transaction.
func (s *service) mutate(ctx context.Context, ownerID int64, op string, fn func(c *Cart) error) (*Cart, error) {
	var result *Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		c, err := st.Carts().LockByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := st.Carts().Save(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	if err != nil {
		return nil, s.wrap(err, ownerID, op)
	}
	return result, nil
}

func (s *service) wrap(err error, ownerID int64, op string) error {
	if apperr.KindOf(err) != "" {
		log.Warn().Err(err).Int64("owner_id", ownerID).Msgf("service: %s refused", op)
		return err
	}
	log.Error().Err(err).Int64("owner_id", ownerID).Msgf("service: failed to %s", op)
	return fmt.Errorf("service: failed to %s: %w", op, err)
}
