package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/laptop-store/internal/apperr"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) LockForUpdate(ctx context.Context, ids []int64) (map[int64]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, id int64, delta int) (int, error) {
	args := m.Called(ctx, id, delta)
	return args.Int(0), args.Error(1)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexProduct(ctx context.Context, p catalog.Product) {
	m.Called(ctx, p)
}

func (m *MockIndexer) RemoveProduct(ctx context.Context, id int64) {
	m.Called(ctx, id)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, id int64) (*catalog.Product, bool) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*catalog.Product), args.Bool(1)
}

func (m *MockCache) Set(ctx context.Context, p catalog.Product) {
	m.Called(ctx, p)
}

func (m *MockCache) Invalidate(ctx context.Context, ids ...int64) {
	m.Called(ctx, ids)
}

func TestCatalogService_CreateProduct_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockIndexer := new(MockIndexer)
	svc := catalog.NewService(mockRepo, mockIndexer, nil)

	input := &catalog.Product{Name: "Zenbook 14", Brand: "ASUS", Price: 2500000, StockQty: 4}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*catalog.Product")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*catalog.Product).ID = 42
		}).
		Return(nil).
		Once()
	mockIndexer.On("IndexProduct", mock.Anything, mock.MatchedBy(func(p catalog.Product) bool {
		return p.ID == 42 && p.IsActive
	})).Once()

	created, err := svc.CreateProduct(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.True(t, created.IsActive)
	mockRepo.AssertExpectations(t)
	mockIndexer.AssertExpectations(t)
}

func TestCatalogService_CreateProduct_InvalidPrice(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := catalog.NewService(mockRepo, nil, nil)

	_, err := svc.CreateProduct(context.Background(), &catalog.Product{Name: "Zenbook 14", Price: 0})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_GetProduct_CacheHit(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockCache := new(MockCache)
	svc := catalog.NewService(mockRepo, nil, mockCache)

	cached := &catalog.Product{ID: 7, Name: "XPS 13", Price: 1000, IsActive: true}
	mockCache.On("Get", mock.Anything, int64(7)).Return(cached, true).Once()

	p, err := svc.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Same(t, cached, p)
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestCatalogService_GetProduct_CacheMissStoresSnapshot(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockCache := new(MockCache)
	svc := catalog.NewService(mockRepo, nil, mockCache)

	stored := &catalog.Product{ID: 7, Name: "XPS 13", Price: 1000, StockQty: 2, IsActive: true}
	mockCache.On("Get", mock.Anything, int64(7)).Return(nil, false).Once()
	mockRepo.On("GetByID", mock.Anything, int64(7)).Return(stored, nil).Once()
	mockCache.On("Set", mock.Anything, *stored).Once()

	p, err := svc.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, stored, p)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestCatalogService_GetProduct_InactiveIsHidden(t *testing.T) {
	mockRepo := new(MockProductRepository)
	svc := catalog.NewService(mockRepo, nil, nil)

	mockRepo.On("GetByID", mock.Anything, int64(3)).
		Return(&catalog.Product{ID: 3, Name: "Old", Price: 1, IsActive: false}, nil).
		Once()

	p, err := svc.GetProduct(context.Background(), 3)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Nil(t, p)
}

func TestCatalogService_DeactivateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockIndexer := new(MockIndexer)
	mockCache := new(MockCache)
	svc := catalog.NewService(mockRepo, mockIndexer, mockCache)

	mockRepo.On("SetActive", mock.Anything, int64(5), false).Return(nil).Once()
	mockCache.On("Invalidate", mock.Anything, []int64{5}).Once()
	mockIndexer.On("RemoveProduct", mock.Anything, int64(5)).Once()

	require.NoError(t, svc.DeactivateProduct(context.Background(), 5))
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockIndexer.AssertExpectations(t)
}

func TestCatalogService_DeleteProduct_ReferencedByOrders(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockIndexer := new(MockIndexer)
	svc := catalog.NewService(mockRepo, mockIndexer, nil)

	refused := apperr.New(apperr.KindInvalidTransition, "product 5 is referenced by placed orders and cannot be deleted, deactivate it instead")
	mockRepo.On("Delete", mock.Anything, int64(5)).Return(refused).Once()

	err := svc.DeleteProduct(context.Background(), 5)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	mockIndexer.AssertNotCalled(t, "RemoveProduct", mock.Anything, mock.Anything)
}

func TestCatalogService_ProductsChanged_ReindexesAndInvalidates(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockIndexer := new(MockIndexer)
	mockCache := new(MockCache)
	svc := catalog.NewService(mockRepo, mockIndexer, mockCache)

	ids := []int64{1, 2}
	mockCache.On("Invalidate", mock.Anything, ids).Once()
	mockRepo.On("GetByIDs", mock.Anything, ids).Return(map[int64]catalog.Product{
		1: {ID: 1, Name: "A", Price: 1, StockQty: 3},
		2: {ID: 2, Name: "B", Price: 1, StockQty: 0},
	}, nil).Once()
	mockIndexer.On("IndexProduct", mock.Anything, mock.AnythingOfType("catalog.Product")).Twice()

	svc.ProductsChanged(context.Background(), ids)

	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockIndexer.AssertExpectations(t)
}

func TestCatalogService_ProductsChanged_ReloadFailureIsSwallowed(t *testing.T) {
	mockRepo := new(MockProductRepository)
	mockIndexer := new(MockIndexer)
	svc := catalog.NewService(mockRepo, mockIndexer, nil)

	mockRepo.On("GetByIDs", mock.Anything, []int64{9}).Return(nil, errors.New("connection reset")).Once()

	assert.NotPanics(t, func() { svc.ProductsChanged(context.Background(), []int64{9}) })
	mockIndexer.AssertNotCalled(t, "IndexProduct", mock.Anything, mock.Anything)
}
