package repository

import (
	"context"

	"catalog-service/internal/models"
)

// CatalogRepositoryInterface is the read/query surface consumed by the API
// layer and the similarity engine.
type CatalogRepositoryInterface interface {
	GetProducts(ctx context.Context, page, limit int) ([]models.Product, error)
	GetTotalProducts(ctx context.Context) (int64, error)
	SearchProducts(ctx context.Context, query string, fields []string) ([]models.Product, error)
	GetProductByIDOrHandle(ctx context.Context, key string) (*models.Product, error)
	GetProductsInCollection(ctx context.Context, handle string, page, limit int, fields []string) ([]models.Product, error)
	GetTotalCollectionProducts(ctx context.Context, handle string) (int64, error)

	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ProductIDsAscending(ctx context.Context) ([]int64, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	SearchCandidateIDs(ctx context.Context, text string, exclude int64, limit int) ([]int64, error)
	RandomCandidateIDs(ctx context.Context, exclude int64, limit int) ([]int64, error)
	FallbackRelated(ctx context.Context, source *models.Product, limit int) ([]models.ScoredProduct, error)

	ProductPricesAscending(ctx context.Context) ([]models.ProductPrice, error)
	UpdateProductPrice(ctx context.Context, id int64, price float64) error
	DeleteProduct(ctx context.Context, id int64) error
}

// ImportWriter is the transaction-scoped write surface handed to the bulk
// loader. Both upserts land in the same transaction; an error from either
// aborts the whole import.
type ImportWriter interface {
	UpsertProduct(p *models.Product) error
	UpsertSearchEntry(e *models.ProductSearch) error
}

// ImportRepositoryInterface owns all Product/ProductSearch writes during a
// feed import.
type ImportRepositoryInterface interface {
	RunInTransaction(ctx context.Context, fn func(ImportWriter) error) error
	CreateImportRun(ctx context.Context, run *models.ImportRun) error
}

// SimilarityRepositoryInterface owns the product_similarities table.
type SimilarityRepositoryInterface interface {
	UpsertEdge(ctx context.Context, edge *models.SimilarityEdge) error
	EdgesBySource(ctx context.Context, sourceID int64, limit int) ([]models.SimilarityEdge, error)
}
