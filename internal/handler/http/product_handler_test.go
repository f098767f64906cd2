package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	handler "github.com/vasiliy-maslov/laptop-store/internal/handler/http"
)

func TestProductHandler_GetProduct(t *testing.T) {
	products := new(MockCatalogService)
	router := newRouter(handler.NewProductHandler(products))
	products.On("GetProduct", mock.Anything, int64(1)).Return(&catalog.Product{ID: 1, Name: "ThinkPad X1", IsActive: true}, nil).Once()
	products.On("GetProduct", mock.Anything, int64(2)).Return(&catalog.Product{ID: 2, Name: "Retired", IsActive: false}, nil).Once()
	products.On("GetProduct", mock.Anything, int64(3)).Return(nil, apperr.New(apperr.KindNotFound, "product 3 not found")).Once()

	rr := serve(router, newRequest(http.MethodGet, "/products/1", "", 7, handler.RoleCustomer))
	require.Equal(t, http.StatusOK, rr.Code)
	var got catalog.Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "ThinkPad X1", got.Name)

	rr = serve(router, newRequest(http.MethodGet, "/products/2", "", 7, handler.RoleCustomer))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(router, newRequest(http.MethodGet, "/products/3", "", 7, handler.RoleCustomer))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	products.AssertExpectations(t)
}

func TestProductHandler_ListProducts(t *testing.T) {
	products := new(MockCatalogService)
	router := newRouter(handler.NewProductHandler(products))
	products.On("ListProducts", mock.Anything, catalog.ListFilter{Brand: "Lenovo", Limit: 5}).Return([]catalog.Product{{ID: 1}}, nil).Once()
	products.On("ListProducts", mock.Anything, catalog.ListFilter{IncludeInactive: true}).Return([]catalog.Product{{ID: 1}, {ID: 2}}, nil).Once()

	rr := serve(router, newRequest(http.MethodGet, "/products?brand=Lenovo&limit=5", "", 7, handler.RoleCustomer))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, newRequest(http.MethodGet, "/admin/products", "", 1, handler.RoleAdmin))
	require.Equal(t, http.StatusOK, rr.Code)
	var got []catalog.Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rr = serve(router, newRequest(http.MethodGet, "/products?limit=ten", "", 7, handler.RoleCustomer))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	products.AssertExpectations(t)
}

func TestProductHandler_CreateProduct(t *testing.T) {
	products := new(MockCatalogService)
	router := newRouter(handler.NewProductHandler(products))
	products.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *catalog.Product) bool {
		return p.Name == "XPS 13" && p.Price == 25000 && p.StockQty == 4 && p.IsActive
	})).Return(&catalog.Product{ID: 9, Name: "XPS 13", Price: 25000, StockQty: 4, IsActive: true}, nil).Once()

	body := `{"name":"XPS 13","brand":"Dell","price":25000,"stock_qty":4}`
	rr := serve(router, newRequest(http.MethodPost, "/admin/products", body, 1, handler.RoleAdmin))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(router, newRequest(http.MethodPost, "/admin/products", `{"name":"XPS 13","brand":"Dell","price":0,"stock_qty":-1}`, 1, handler.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(router, newRequest(http.MethodPost, "/admin/products", body, 7, handler.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	products.AssertExpectations(t)
}

func TestProductHandler_DeleteProduct(t *testing.T) {
	products := new(MockCatalogService)
	router := newRouter(handler.NewProductHandler(products))
	products.On("DeactivateProduct", mock.Anything, int64(4)).Return(nil).Once()
	products.On("DeleteProduct", mock.Anything, int64(5)).Return(nil).Once()

	rr := serve(router, newRequest(http.MethodDelete, "/admin/products/4", "", 1, handler.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(router, newRequest(http.MethodDelete, "/admin/products/5?hard=true", "", 1, handler.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	products.AssertExpectations(t)
}
