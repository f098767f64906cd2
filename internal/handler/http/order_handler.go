package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
	"github.com/vasiliy-maslov/laptop-store/internal/payment"
)

type PlaceOrderRequest struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,max=32"`
	Address       string `json:"address" validate:"required,max=500"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=delivery e-banking"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipping delivered cancelled refunded"`
}

type CreatePaymentRequest struct {
	Method string `json:"method" validate:"omitempty,oneof=delivery e-banking"`
}

type RevenueResponse struct {
	Revenue int64  `json:"revenue"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

type OrderHandler struct {
	orders   order.Service
	payments payment.Service
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service, payments payment.Service) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Route("/orders", func(r chi.Router) {
		r.Post("/", h.handlePlaceOrder)
		r.Get("/", h.handleListOrders)
		r.Get("/{id}", h.handleGetOrder)
		r.Patch("/{id}/cancel", h.handleCancelOrder)
		r.Post("/{id}/payments", h.handleCreatePayment)
		r.Get("/{id}/payments", h.handleListPayments)
	})
}

func (h *OrderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/orders", h.handleAdminListOrders)
	router.Patch("/orders/{id}/status", h.handleUpdateStatus)
	router.Get("/revenue", h.handleRevenue)
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	contact := order.Contact{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	}
	placed, err := h.orders.PlaceOrder(r.Context(), caller.ID, contact, order.PaymentMethod(req.PaymentMethod))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to place order")
		return
	}
	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orders.ListOwnerOrders(r.Context(), caller.ID, page, limit)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.orders.GetOrder(r.Context(), caller.ID, id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.orders.CancelOrder(r.Context(), caller.ID, id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to cancel order")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

// handleCreatePayment opens a payment transaction for one of the caller's
// orders. The method defaults to the one chosen at checkout.
func (h *OrderHandler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.orders.GetOrder(r.Context(), caller.ID, id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get order")
		return
	}

	method := o.PaymentMethod
	if req.Method != "" {
		method = payment.Method(req.Method)
	}
	txn, err := h.payments.CreateTransaction(r.Context(), o.ID, method)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create payment")
		return
	}
	respondWithJSON(w, http.StatusCreated, txn)
}

func (h *OrderHandler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.orders.GetOrder(r.Context(), caller.ID, id); err != nil {
		respondWithServiceError(w, r, err, "Failed to get order")
		return
	}
	txns, err := h.payments.ListForOrder(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list payments")
		return
	}
	respondWithJSON(w, http.StatusOK, txns)
}

func (h *OrderHandler) handleAdminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orders.AdminListOrders(r.Context(), order.ListFilter{
		Status:        order.Status(q.Get("status")),
		Email:         q.Get("email"),
		Phone:         q.Get("phone"),
		PaymentMethod: order.PaymentMethod(q.Get("payment_method")),
		From:          from,
		To:            to,
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.orders.UpdateOrderStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update order status")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleRevenue(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	revenue, err := h.orders.Revenue(r.Context(), from, to)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to compute revenue")
		return
	}
	respondWithJSON(w, http.StatusOK, RevenueResponse{
		Revenue: revenue,
		From:    r.URL.Query().Get("from"),
		To:      r.URL.Query().Get("to"),
	})
}
