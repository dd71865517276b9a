package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"catalog-service/internal/similarity"
)

type ProductsHandler struct {
	catalog  repository.CatalogRepositoryInterface
	resolver *similarity.Resolver

	defaultPageSize int
	maxPageSize     int
}

func NewProductsHandler(catalog repository.CatalogRepositoryInterface, resolver *similarity.Resolver, defaultPageSize, maxPageSize int) *ProductsHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &ProductsHandler{
		catalog:         catalog,
		resolver:        resolver,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// GetProducts returns a page of the catalog
// @Summary List products
// @Description Get products with pagination
// @Tags Products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} models.ProductListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /products [get]
func (h *ProductsHandler) GetProducts(c *gin.Context) {
	page, limit := h.pagination(c)

	products, err := h.catalog.GetProducts(c.Request.Context(), page, limit)
	if err != nil {
		fetchFailed(c, err)
		return
	}
	total, err := h.catalog.GetTotalProducts(c.Request.Context())
	if err != nil {
		fetchFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Success:    true,
		Data:       products,
		Pagination: paginationInfo(page, limit, total),
	})
}

// GetProduct returns a single product by id or handle
// @Summary Get product
// @Description Get one product by numeric id or URL handle
// @Tags Products
// @Produce json
// @Param key path string true "Product id or handle"
// @Success 200 {object} models.ProductResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /products/{key} [get]
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProductByIDOrHandle(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "Product not found"},
			})
			return
		}
		fetchFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// SearchProducts performs full-text search over the catalog
// @Summary Search products
// @Description Full-text search over product name, description and category
// @Tags Products
// @Produce json
// @Param q query string true "Search query"
// @Param fields query string false "Comma-separated columns to return"
// @Success 200 {object} models.ProductListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /products/search [get]
func (h *ProductsHandler) SearchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "MISSING_QUERY", Message: "Query parameter 'q' is required"},
		})
		return
	}

	products, err := h.catalog.SearchProducts(c.Request.Context(), query, fieldsParam(c))
	if err != nil {
		fetchFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{Success: true, Data: products})
}

// GetCollectionProducts returns products of a storefront collection
// @Summary List collection products
// @Description Get products in a named collection (all, featured, sale, new, bestsellers, trending)
// @Tags Collections
// @Produce json
// @Param handle path string true "Collection handle"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param fields query string false "Comma-separated columns to return"
// @Success 200 {object} models.ProductListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /collections/{handle}/products [get]
func (h *ProductsHandler) GetCollectionProducts(c *gin.Context) {
	page, limit := h.pagination(c)
	handle := c.Param("handle")

	products, err := h.catalog.GetProductsInCollection(c.Request.Context(), handle, page, limit, fieldsParam(c))
	if err != nil {
		fetchFailed(c, err)
		return
	}
	total, err := h.catalog.GetTotalCollectionProducts(c.Request.Context(), handle)
	if err != nil {
		fetchFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Success:    true,
		Data:       products,
		Pagination: paginationInfo(page, limit, total),
	})
}

// GetRelated returns products related to one product
// @Summary Related products
// @Description Get precomputed related products, with a synchronous scoring fallback
// @Tags Products
// @Produce json
// @Param key path string true "Product id or handle"
// @Param limit query int false "Maximum results" default(5)
// @Success 200 {object} models.RelatedProductsResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /products/{key}/related [get]
func (h *ProductsHandler) GetRelated(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if limit < 1 || limit > h.maxPageSize {
		limit = 5
	}

	product, err := h.catalog.GetProductByIDOrHandle(c.Request.Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error:   models.Error{Code: "NOT_FOUND", Message: "Product not found"},
			})
			return
		}
		fetchFailed(c, err)
		return
	}

	related, err := h.resolver.Related(c.Request.Context(), product.ID, limit)
	if err != nil {
		fetchFailed(c, err)
		return
	}

	// An empty list is a valid answer, not an error.
	c.JSON(http.StatusOK, models.RelatedProductsResponse{Success: true, Data: related})
}

func (h *ProductsHandler) pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > h.maxPageSize {
		limit = h.defaultPageSize
	}
	return page, limit
}

func fieldsParam(c *gin.Context) []string {
	raw := strings.TrimSpace(c.Query("fields"))
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func paginationInfo(page, limit int, total int64) *models.PaginationInfo {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationInfo{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

func fetchFailed(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "FETCH_FAILED",
			Message: "Failed to retrieve products",
			Details: &models.JSON{"error": err.Error()},
		},
	})
}
