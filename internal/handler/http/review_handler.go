package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/laptop-store/internal/review"
)

type SubmitReviewRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"max=2000"`
}

type ReviewResponse struct {
	Review  *review.Review `json:"review"`
	Summary review.Summary `json:"product_rating"`
}

type ReviewHandler struct {
	service  review.Service
	validate *validator.Validate
}

func NewReviewHandler(s review.Service) *ReviewHandler {
	return &ReviewHandler{
		service:  s,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts /reviews. Listing a product's reviews is public,
// submitting and listing one's own reviews need a caller.
func (h *ReviewHandler) RegisterRoutes(router chi.Router) {
	router.Route("/reviews", func(r chi.Router) {
		r.Get("/products/{id}", h.handleListForProduct)

		r.Group(func(r chi.Router) {
			r.Use(RequireCaller)
			r.Post("/", h.handleSubmit)
			r.Get("/", h.handleListOwn)
		})
	})
}

func (h *ReviewHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	rv, summary, err := h.service.SubmitReview(r.Context(), caller.ID, req.ProductID, req.Rating, req.Comment)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to submit review")
		return
	}
	respondWithJSON(w, http.StatusCreated, ReviewResponse{Review: rv, Summary: summary})
}

func (h *ReviewHandler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	page, size, ok := pageParams(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListForOwner(r.Context(), caller.ID, page, size)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) handleListForProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	page, size, ok := pageParams(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListForProduct(r.Context(), id, page, size)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list product reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

func pageParams(w http.ResponseWriter, r *http.Request) (page, size int, ok bool) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	size, err = queryInt(r, "size", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return page, size, true
}
