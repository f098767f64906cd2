package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

// SearchIndexer receives product upserts and deletes. Delivery is fire-and-forget.
type SearchIndexer interface {
	IndexProduct(ctx context.Context, p Product)
	RemoveProduct(ctx context.Context, id int64)
}

// Cache holds product snapshots for public reads. It is never consulted for
// stock decisions.
type Cache interface {
	Get(ctx context.Context, id int64) (*Product, bool)
	Set(ctx context.Context, p Product)
	Invalidate(ctx context.Context, ids ...int64)
}

type Service interface {
	CreateProduct(ctx context.Context, p *Product) (*Product, error)
	UpdateProduct(ctx context.Context, p *Product) (*Product, error)
	DeactivateProduct(ctx context.Context, id int64) error
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)

	// ProductsChanged is called after a committed unit of work changed stock or
	// rating of the given products.
	ProductsChanged(ctx context.Context, ids []int64)
}

type service struct {
	repo    Repository
	indexer SearchIndexer
	cache   Cache
}

func NewService(repo Repository, indexer SearchIndexer, cache Cache) Service {
	if indexer == nil {
		indexer = nopIndexer{}
	}
	if cache == nil {
		cache = nopCache{}
	}
	return &service{repo: repo, indexer: indexer, cache: cache}
}

func (s *service) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = 0
	p.IsActive = true

	if err := s.repo.Create(ctx, p); err != nil {
		log.Error().Err(err).Str("name", p.Name).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	s.indexer.IndexProduct(ctx, *p)
	log.Info().Int64("product_id", p.ID).Msg("service: product created")
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, p *Product) (*Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn().Int64("product_id", p.ID).Msg("service: product not found for update")
			return nil, err
		}
		log.Error().Err(err).Int64("product_id", p.ID).Msg("service: failed to update product in repository")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	s.cache.Invalidate(ctx, p.ID)
	s.indexer.IndexProduct(ctx, *p)
	return p, nil
}

func (s *service) DeactivateProduct(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to deactivate product")
		return fmt.Errorf("service: failed to deactivate product: %w", err)
	}

	s.cache.Invalidate(ctx, id)
	s.indexer.RemoveProduct(ctx, id)
	log.Info().Int64("product_id", id).Msg("service: product deactivated")
	return nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if apperr.KindOf(err) != "" {
			log.Warn().Err(err).Int64("product_id", id).Msg("service: product delete refused")
			return err
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}

	s.cache.Invalidate(ctx, id)
	s.indexer.RemoveProduct(ctx, id)
	log.Info().Int64("product_id", id).Msg("service: product deleted")
	return nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}
	if !p.IsActive {
		return nil, apperr.New(apperr.KindNotFound, "product %d not found", id)
	}

	s.cache.Set(ctx, *p)
	return p, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) ProductsChanged(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}
	s.cache.Invalidate(ctx, ids...)

	products, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Ints64("product_ids", ids).Msg("service: failed to reload products for reindex")
		return
	}
	for _, p := range products {
		s.indexer.IndexProduct(ctx, p)
	}
}

type nopIndexer struct{}

func (nopIndexer) IndexProduct(context.Context, Product) {}
func (nopIndexer) RemoveProduct(context.Context, int64)  {}

type nopCache struct{}

func (nopCache) Get(context.Context, int64) (*Product, bool) { return nil, false }
func (nopCache) Set(context.Context, Product)                {}
func (nopCache) Invalidate(context.Context, ...int64)        {}
