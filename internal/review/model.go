package review

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
)

const (
	MinRating = 1
	MaxRating = 5

	maxCommentLength = 2000
)

type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	OwnerID   int64     `json:"owner_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Review) validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return apperr.New(apperr.KindInvalidInput, "rating must be between %d and %d, got %d", MinRating, MaxRating, r.Rating)
	}
	r.Comment = strings.TrimSpace(r.Comment)
	if n := utf8.RuneCountInString(r.Comment); n > maxCommentLength {
		return apperr.New(apperr.KindInvalidInput, "comment is %d characters, at most %d allowed", n, maxCommentLength)
	}
	return nil
}

// Summary is the aggregate stored on the product row.
type Summary struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"rating_count"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPage normalizes a 1-based page and page size.
func clampPage(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return size, (page - 1) * size
}
