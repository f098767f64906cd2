package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
)

const ratingCheck = "reviews_rating_check"

type Repository interface {
	Create(ctx context.Context, r *Review) error
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]Review, error)
	ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]Review, error)

	// RefreshSummary recomputes the product's rating and rating_count from its
	// reviews and stores them on the product row.
	RefreshSummary(ctx context.Context, productID int64) (Summary, error)
}

type postgresRepository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &postgresRepository{db: conn}
}

const reviewColumns = `id, product_id, owner_id, rating, comment, created_at`

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.ProductID, &r.OwnerID, &r.Rating, &r.Comment, &r.CreatedAt)
	return r, err
}

func (r *postgresRepository) Create(ctx context.Context, rv *Review) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO reviews (product_id, owner_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, rv.ProductID, rv.OwnerID, rv.Rating, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		switch {
		case db.IsForeignKeyViolation(err):
			return apperr.Wrap(apperr.KindNotFound, err, "product %d not found", rv.ProductID)
		case db.IsCheckViolation(err, ratingCheck):
			return apperr.Wrap(apperr.KindInvalidInput, err, "rating must be between %d and %d", MinRating, MaxRating)
		}
		return fmt.Errorf("repository: failed to insert review for product %d: %w", rv.ProductID, err)
	}
	return nil
}

func (r *postgresRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]Review, error) {
	return r.collect(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
}

func (r *postgresRepository) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]Review, error) {
	return r.collect(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, productID, limit, offset)
}

func (r *postgresRepository) RefreshSummary(ctx context.Context, productID int64) (Summary, error) {
	var s Summary
	err := r.db.QueryRow(ctx, `
		UPDATE products p
		SET rating = agg.rating, rating_count = agg.count, updated_at = NOW()
		FROM (
			SELECT COALESCE(ROUND(AVG(rating), 2), 0) AS rating, COUNT(*) AS count
			FROM reviews
			WHERE product_id = $1
		) agg
		WHERE p.id = $1
		RETURNING p.rating::float8, p.rating_count
	`, productID).Scan(&s.Rating, &s.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Summary{}, apperr.New(apperr.KindNotFound, "product %d not found", productID)
		}
		return Summary{}, fmt.Errorf("repository: failed to refresh rating of product %d: %w", productID, err)
	}
	return s, nil
}

func (r *postgresRepository) collect(ctx context.Context, query string, args ...any) ([]Review, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating reviews: %w", err)
	}
	return reviews, nil
}
