package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/laptop-store/internal/payment"
)

type ConfirmPaymentRequest struct {
	GatewayRef string `json:"gateway_ref" validate:"required,max=255"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// PaymentHandler serves the callbacks the e-banking gateway makes once a
// transaction settles. The gateway calls in with a service identity that
// carries the admin role.
type PaymentHandler struct {
	service  payment.Service
	validate *validator.Validate
}

func NewPaymentHandler(s payment.Service) *PaymentHandler {
	return &PaymentHandler{
		service:  s,
		validate: validator.New(),
	}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router) {
	router.Route("/payments/{id}", func(r chi.Router) {
		r.Post("/confirm", h.handleConfirm)
		r.Post("/fail", h.handleFail)
	})
}

func (h *PaymentHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	txn, err := h.service.ConfirmTransaction(r.Context(), id, req.GatewayRef)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to confirm payment")
		return
	}
	respondWithJSON(w, http.StatusOK, txn)
}

func (h *PaymentHandler) handleFail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req FailPaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	txn, err := h.service.FailTransaction(r.Context(), id, req.Reason)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to record payment failure")
		return
	}
	respondWithJSON(w, http.StatusOK, txn)
}
