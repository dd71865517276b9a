package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"catalog-service/internal/similarity"
)

// MockCatalogRepository is a mock implementation of CatalogRepositoryInterface
type MockCatalogRepository struct {
	mock.Mock
}

var _ repository.CatalogRepositoryInterface = (*MockCatalogRepository)(nil)

func (m *MockCatalogRepository) GetProducts(ctx context.Context, page, limit int) ([]models.Product, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetTotalProducts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogRepository) SearchProducts(ctx context.Context, query string, fields []string) ([]models.Product, error) {
	args := m.Called(ctx, query, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductByIDOrHandle(ctx context.Context, key string) (*models.Product, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductsInCollection(ctx context.Context, handle string, page, limit int, fields []string) ([]models.Product, error) {
	args := m.Called(ctx, handle, page, limit, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetTotalCollectionProducts(ctx context.Context, handle string) (int64, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogRepository) ProductIDsAscending(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCatalogRepository) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalogRepository) SearchCandidateIDs(ctx context.Context, text string, exclude int64, limit int) ([]int64, error) {
	args := m.Called(ctx, text, exclude, limit)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCatalogRepository) RandomCandidateIDs(ctx context.Context, exclude int64, limit int) ([]int64, error) {
	args := m.Called(ctx, exclude, limit)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCatalogRepository) FallbackRelated(ctx context.Context, source *models.Product, limit int) ([]models.ScoredProduct, error) {
	args := m.Called(ctx, source, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScoredProduct), args.Error(1)
}

func (m *MockCatalogRepository) ProductPricesAscending(ctx context.Context) ([]models.ProductPrice, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.ProductPrice), args.Error(1)
}

func (m *MockCatalogRepository) UpdateProductPrice(ctx context.Context, id int64, price float64) error {
	args := m.Called(ctx, id, price)
	return args.Error(0)
}

func (m *MockCatalogRepository) DeleteProduct(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEdgeReader is a mock implementation of similarity.EdgeReader
type MockEdgeReader struct {
	mock.Mock
}

func (m *MockEdgeReader) EdgesBySource(ctx context.Context, sourceID int64, limit int) ([]models.SimilarityEdge, error) {
	args := m.Called(ctx, sourceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SimilarityEdge), args.Error(1)
}

func setupRouter(catalog *MockCatalogRepository, edges *MockEdgeReader) *gin.Engine {
	gin.SetMode(gin.TestMode)

	resolver := similarity.NewResolver(catalog, edges, nil)
	handler := NewProductsHandler(catalog, resolver, 20, 100)

	router := gin.New()
	router.GET("/products", handler.GetProducts)
	router.GET("/products/search", handler.SearchProducts)
	router.GET("/products/:key", handler.GetProduct)
	router.GET("/products/:key/related", handler.GetRelated)
	router.GET("/collections/:handle/products", handler.GetCollectionProducts)
	return router
}

func doRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetProducts_ReturnsPage(t *testing.T) {
	catalog := new(MockCatalogRepository)
	router := setupRouter(catalog, new(MockEdgeReader))

	catalog.On("GetProducts", mock.Anything, 2, 10).Return([]models.Product{
		{ID: 11, Name: "Eleventh"},
	}, nil)
	catalog.On("GetTotalProducts", mock.Anything).Return(int64(25), nil)

	w := doRequest(router, "/products?page=2&limit=10")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.ProductListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, int64(25), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasNext)
	assert.True(t, resp.Pagination.HasPrevious)
}

func TestGetProducts_BogusPagingFallsBackToDefaults(t *testing.T) {
	catalog := new(MockCatalogRepository)
	router := setupRouter(catalog, new(MockEdgeReader))

	catalog.On("GetProducts", mock.Anything, 1, 20).Return([]models.Product{}, nil)
	catalog.On("GetTotalProducts", mock.Anything).Return(int64(0), nil)

	w := doRequest(router, "/products?page=-3&limit=9999")

	assert.Equal(t, http.StatusOK, w.Code)
	catalog.AssertCalled(t, "GetProducts", mock.Anything, 1, 20)
}

func TestGetProduct_ByHandle(t *testing.T) {
	catalog := new(MockCatalogRepository)
	router := setupRouter(catalog, new(MockEdgeReader))

	catalog.On("GetProductByIDOrHandle", mock.Anything, "trail-shoe").
		Return(&models.Product{ID: 1, Name: "Trail Shoe", Handle: "trail-shoe"}, nil)

	w := doRequest(router, "/products/trail-shoe")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.ProductResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Data.ID)
}

func TestGetProduct_NotFound(t *testing.T) {
	catalog := new(MockCatalogRepository)
	router := setupRouter(catalog, new(MockEdgeReader))

	catalog.On("GetProductByIDOrHandle", mock.Anything, "missing").
		Return(nil, gorm.ErrRecordNotFound)

	w := doRequest(router, "/products/missing")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestSearchProducts_RequiresQuery(t *testing.T) {
	catalog := new(MockCatalogRepository)
	router := setupRouter(catalog, new(MockEdgeReader))

	w := doRequest(router, "/products/search")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	catalog.AssertNotCalled(t, "SearchProducts")
}

func TestSearchProducts_PassesFields(t *testing.T) {
	catalog := new(MockCatalogRepository)
	router := setupRouter(catalog, new(MockEdgeReader))

	catalog.On("SearchProducts", mock.Anything, "trail shoe", []string{"id", "name"}).
		Return([]models.Product{{ID: 1}}, nil)

	w := doRequest(router, "/products/search?q=trail+shoe&fields=id,name")

	assert.Equal(t, http.StatusOK, w.Code)
	catalog.AssertExpectations(t)
}

func TestGetRelated_EmptyIsStillOK(t *testing.T) {
	catalog := new(MockCatalogRepository)
	edges := new(MockEdgeReader)
	router := setupRouter(catalog, edges)

	product := &models.Product{ID: 42, Name: "Loner"}
	catalog.On("GetProductByIDOrHandle", mock.Anything, "42").Return(product, nil)
	edges.On("EdgesBySource", mock.Anything, int64(42), 5).Return([]models.SimilarityEdge{}, nil)
	catalog.On("GetProduct", mock.Anything, int64(42)).Return(product, nil)
	catalog.On("FallbackRelated", mock.Anything, product, 15).Return([]models.ScoredProduct{}, nil)

	w := doRequest(router, "/products/42/related")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.RelatedProductsResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Data)
}

func TestGetCollectionProducts(t *testing.T) {
	catalog := new(MockCatalogRepository)
	router := setupRouter(catalog, new(MockEdgeReader))

	catalog.On("GetProductsInCollection", mock.Anything, "sale", 1, 20, []string(nil)).
		Return([]models.Product{{ID: 2}, {ID: 5}}, nil)
	catalog.On("GetTotalCollectionProducts", mock.Anything, "sale").Return(int64(2), nil)

	w := doRequest(router, "/collections/sale/products")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.ProductListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.False(t, resp.Pagination.HasNext)
}
