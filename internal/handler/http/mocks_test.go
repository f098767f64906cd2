package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/vasiliy-maslov/laptop-store/internal/cart"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	handler "github.com/vasiliy-maslov/laptop-store/internal/handler/http"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
	"github.com/vasiliy-maslov/laptop-store/internal/payment"
	"github.com/vasiliy-maslov/laptop-store/internal/refund"
	"github.com/vasiliy-maslov/laptop-store/internal/review"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, p *catalog.Product) (*catalog.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) DeactivateProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogService) ProductsChanged(ctx context.Context, ids []int64) {
	m.Called(ctx, ids)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) result(args mock.Arguments) (*cart.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, ownerID int64) (*cart.Cart, error) {
	return m.result(m.Called(ctx, ownerID))
}

func (m *MockCartService) AddItem(ctx context.Context, ownerID, productID int64, qty int) (*cart.Cart, error) {
	return m.result(m.Called(ctx, ownerID, productID, qty))
}

func (m *MockCartService) UpdateItemQuantity(ctx context.Context, ownerID, itemID int64, qty int) (*cart.Cart, error) {
	return m.result(m.Called(ctx, ownerID, itemID, qty))
}

func (m *MockCartService) RemoveItem(ctx context.Context, ownerID, itemID int64) (*cart.Cart, error) {
	return m.result(m.Called(ctx, ownerID, itemID))
}

func (m *MockCartService) Clear(ctx context.Context, ownerID int64) error {
	return m.Called(ctx, ownerID).Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) result(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, ownerID int64, contact order.Contact, method order.PaymentMethod) (*order.Order, error) {
	return m.result(m.Called(ctx, ownerID, contact, method))
}

func (m *MockOrderService) CancelOrder(ctx context.Context, requesterID, orderID int64) (*order.Order, error) {
	return m.result(m.Called(ctx, requesterID, orderID))
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status order.Status) (*order.Order, error) {
	return m.result(m.Called(ctx, orderID, status))
}

func (m *MockOrderService) GetOrder(ctx context.Context, ownerID, orderID int64) (*order.Order, error) {
	return m.result(m.Called(ctx, ownerID, orderID))
}

func (m *MockOrderService) ListOwnerOrders(ctx context.Context, ownerID int64, page, limit int) (*order.Page, error) {
	args := m.Called(ctx, ownerID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Page), args.Error(1)
}

func (m *MockOrderService) AdminListOrders(ctx context.Context, filter order.ListFilter) (*order.Page, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Page), args.Error(1)
}

func (m *MockOrderService) Revenue(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) result(args mock.Arguments) (*payment.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *MockPaymentService) CreateTransaction(ctx context.Context, orderID int64, method payment.Method) (*payment.Transaction, error) {
	return m.result(m.Called(ctx, orderID, method))
}

func (m *MockPaymentService) ConfirmTransaction(ctx context.Context, transactionID int64, externalRef string) (*payment.Transaction, error) {
	return m.result(m.Called(ctx, transactionID, externalRef))
}

func (m *MockPaymentService) FailTransaction(ctx context.Context, transactionID int64, reason string) (*payment.Transaction, error) {
	return m.result(m.Called(ctx, transactionID, reason))
}

func (m *MockPaymentService) ListForOrder(ctx context.Context, orderID int64) ([]payment.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Transaction), args.Error(1)
}

type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) SubmitTicket(ctx context.Context, ownerID, orderID int64, reason, email, phone string) (*refund.Ticket, error) {
	args := m.Called(ctx, ownerID, orderID, reason, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Ticket), args.Error(1)
}

func (m *MockRefundService) ResolveTicket(ctx context.Context, adminID, ticketID int64, decision, comments string) (*refund.Ticket, error) {
	args := m.Called(ctx, adminID, ticketID, decision, comments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Ticket), args.Error(1)
}

func (m *MockRefundService) ListPending(ctx context.Context, page, size int) (*refund.Page, error) {
	args := m.Called(ctx, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.Page), args.Error(1)
}

func (m *MockRefundService) ListForOwner(ctx context.Context, ownerID int64) ([]refund.Ticket, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]refund.Ticket), args.Error(1)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) SubmitReview(ctx context.Context, ownerID, productID int64, rating int, comment string) (*review.Review, review.Summary, error) {
	args := m.Called(ctx, ownerID, productID, rating, comment)
	if args.Get(0) == nil {
		return nil, review.Summary{}, args.Error(2)
	}
	return args.Get(0).(*review.Review), args.Get(1).(review.Summary), args.Error(2)
}

func (m *MockReviewService) ListForOwner(ctx context.Context, ownerID int64, page, size int) ([]review.Review, error) {
	args := m.Called(ctx, ownerID, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]review.Review), args.Error(1)
}

func (m *MockReviewService) ListForProduct(ctx context.Context, productID int64, page, size int) ([]review.Review, error) {
	args := m.Called(ctx, productID, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]review.Review), args.Error(1)
}

// registrar is implemented by every handler for its customer or public routes.
type registrar interface {
	RegisterRoutes(router chi.Router)
}

type adminRegistrar interface {
	RegisterAdminRoutes(router chi.Router)
}

// newRouter mounts h the same way the server does: public routes behind
// RequireCaller and admin routes under /admin.
func newRouter(h any) *chi.Mux {
	r := chi.NewRouter()
	if reg, ok := h.(registrar); ok {
		r.Group(func(r chi.Router) {
			r.Use(handler.RequireCaller)
			reg.RegisterRoutes(r)
		})
	}
	if reg, ok := h.(adminRegistrar); ok {
		r.Route("/admin", func(r chi.Router) {
			r.Use(handler.RequireCaller)
			r.Use(handler.RequireAdmin)
			reg.RegisterAdminRoutes(r)
		})
	}
	return r
}

func newRequest(method, target, body string, callerID int64, role string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if callerID > 0 {
		req.Header.Set(handler.HeaderUserID, strconv.FormatInt(callerID, 10))
		req.Header.Set(handler.HeaderUserRole, role)
	}
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
