package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
)

// ProductObserver is told which products changed once a review has committed.
type ProductObserver interface {
	ProductsChanged(ctx context.Context, ids []int64)
}

// ProductReader confirms a product exists before its reviews are listed.
type ProductReader interface {
	GetByID(ctx context.Context, id int64) (*catalog.Product, error)
}

type Service interface {
	SubmitReview(ctx context.Context, ownerID, productID int64, rating int, comment string) (*Review, Summary, error)
	ListForOwner(ctx context.Context, ownerID int64, page, size int) ([]Review, error)
	ListForProduct(ctx context.Context, productID int64, page, size int) ([]Review, error)
}

type service struct {
	repo     Repository
	tx       Transactor
	products ProductReader
	observer ProductObserver
}

func NewService(repo Repository, tx Transactor, products ProductReader, observer ProductObserver) Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &service{repo: repo, tx: tx, products: products, observer: observer}
}

// SubmitReview stores a review and refreshes the product's rating summary in
// the same transaction. The product row is locked first so concurrent reviews
// of one product recompute the summary one after another.
func (s *service) SubmitReview(ctx context.Context, ownerID, productID int64, rating int, comment string) (*Review, Summary, error) {
	rv := &Review{ProductID: productID, OwnerID: ownerID, Rating: rating, Comment: comment}
	if err := rv.validate(); err != nil {
		return nil, Summary{}, err
	}

	var summary Summary
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st Store) error {
		locked, err := st.Products().LockForUpdate(ctx, []int64{productID})
		if err != nil {
			return err
		}
		if _, ok := locked[productID]; !ok {
			return apperr.New(apperr.KindNotFound, "product %d not found", productID)
		}

		if err := st.Reviews().Create(ctx, rv); err != nil {
			return err
		}
		summary, err = st.Reviews().RefreshSummary(ctx, productID)
		return err
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			log.Warn().Err(err).Int64("product_id", productID).Int64("owner_id", ownerID).Msg("service: review refused")
			return nil, Summary{}, err
		}
		log.Error().Err(err).Int64("product_id", productID).Msg("service: failed to store review")
		return nil, Summary{}, fmt.Errorf("service: failed to submit review: %w", err)
	}

	s.observer.ProductsChanged(ctx, []int64{productID})
	log.Info().Int64("review_id", rv.ID).Int64("product_id", productID).Float64("rating", summary.Rating).Int("rating_count", summary.Count).Msg("service: review submitted")
	return rv, summary, nil
}

func (s *service) ListForOwner(ctx context.Context, ownerID int64, page, size int) ([]Review, error) {
	limit, offset := clampPage(page, size)
	reviews, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		log.Error().Err(err).Int64("owner_id", ownerID).Msg("service: failed to list reviews")
		return nil, fmt.Errorf("service: failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *service) ListForProduct(ctx context.Context, productID int64, page, size int) ([]Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Int64("product_id", productID).Msg("service: failed to look up product for reviews")
		return nil, fmt.Errorf("service: failed to list product reviews: %w", err)
	}

	limit, offset := clampPage(page, size)
	reviews, err := s.repo.ListByProduct(ctx, productID, limit, offset)
	if err != nil {
		log.Error().Err(err).Int64("product_id", productID).Msg("service: failed to list product reviews")
		return nil, fmt.Errorf("service: failed to list product reviews: %w", err)
	}
	return reviews, nil
}

type nopObserver struct{}

func (nopObserver) ProductsChanged(context.Context, []int64) {}
