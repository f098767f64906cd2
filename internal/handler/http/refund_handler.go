package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/laptop-store/internal/refund"
)

type SubmitRefundRequest struct {
	OrderID int64  `json:"order_id" validate:"required,gt=0"`
	Reason  string `json:"reason" validate:"required,max=2000"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,max=32"`
}

// ResolveRefundRequest leaves the decision unconstrained here; the service
// owns the accepted values.
type ResolveRefundRequest struct {
	Decision string `json:"decision" validate:"required"`
	Comments string `json:"comments" validate:"max=2000"`
}

type RefundHandler struct {
	service  refund.Service
	validate *validator.Validate
}

func NewRefundHandler(s refund.Service) *RefundHandler {
	return &RefundHandler{
		service:  s,
		validate: validator.New(),
	}
}

func (h *RefundHandler) RegisterRoutes(router chi.Router) {
	router.Route("/refund-tickets", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleListOwn)
	})
}

func (h *RefundHandler) RegisterAdminRoutes(router chi.Router) {
	router.Route("/refund-tickets", func(r chi.Router) {
		r.Get("/", h.handleListPending)
		r.Patch("/{id}", h.handleResolve)
	})
}

func (h *RefundHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}

	var req SubmitRefundRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	ticket, err := h.service.SubmitTicket(r.Context(), caller.ID, req.OrderID, req.Reason, req.Email, req.Phone)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to submit refund ticket")
		return
	}
	respondWithJSON(w, http.StatusCreated, ticket)
}

func (h *RefundHandler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}

	tickets, err := h.service.ListForOwner(r.Context(), caller.ID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list refund tickets")
		return
	}
	respondWithJSON(w, http.StatusOK, tickets)
}

func (h *RefundHandler) handleListPending(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ListPending(r.Context(), page, size)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list refund tickets")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *RefundHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req ResolveRefundRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	ticket, err := h.service.ResolveTicket(r.Context(), caller.ID, id, req.Decision, req.Comments)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to resolve refund ticket")
		return
	}
	respondWithJSON(w, http.StatusOK, ticket)
}
