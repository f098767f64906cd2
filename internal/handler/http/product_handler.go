package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
)

type ProductRequest struct {
	Name     string   `json:"name" validate:"required,max=255"`
	Brand    string   `json:"brand" validate:"required,max=100"`
	Price    int64    `json:"price" validate:"gt=0"`
	StockQty int      `json:"stock_qty" validate:"gte=0"`
	IsActive *bool    `json:"is_active"`
	Images   []string `json:"images" validate:"omitempty,dive,url"`
}

func (req ProductRequest) toProduct() *catalog.Product {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &catalog.Product{
		Name:     req.Name,
		Brand:    req.Brand,
		Price:    req.Price,
		StockQty: req.StockQty,
		IsActive: active,
		Images:   req.Images,
	}
}

type ProductHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewProductHandler(s catalog.Service) *ProductHandler {
	return &ProductHandler{
		service:  s,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the public catalog routes.
func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleListProducts)
		r.Get("/{id}", h.handleGetProduct)
	})
}

// RegisterAdminRoutes mounts product maintenance under an admin-only router.
func (h *ProductHandler) RegisterAdminRoutes(router chi.Router) {
	router.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleAdminListProducts)
		r.Post("/", h.handleCreateProduct)
		r.Put("/{id}", h.handleUpdateProduct)
		r.Delete("/{id}", h.handleDeleteProduct)
	})
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, false)
}

func (h *ProductHandler) handleAdminListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

func (h *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.service.ListProducts(r.Context(), catalog.ListFilter{
		Brand:           r.URL.Query().Get("brand"),
		IncludeInactive: includeInactive,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get product")
		return
	}
	if !p.IsActive {
		respondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), req.toProduct())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	p := req.toProduct()
	p.ID = id
	updated, err := h.service.UpdateProduct(r.Context(), p)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// handleDeleteProduct deactivates by default. ?hard=true removes the row.
func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	hard, _ := strconv.ParseBool(r.URL.Query().Get("hard"))
	var err error
	if hard {
		err = h.service.DeleteProduct(r.Context(), id)
	} else {
		err = h.service.DeactivateProduct(r.Context(), id)
	}
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
