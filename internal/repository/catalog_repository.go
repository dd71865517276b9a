package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-service/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL = 5 * time.Minute // Single product cache
)

// searchVectorExpr is the expression the GIN index in config.InitDB is built
// over; queries must use the identical expression to hit the index.
const searchVectorExpr = `to_tsvector('english', COALESCE(product_search.name, '') || ' ' || COALESCE(product_search.description, '') || ' ' || COALESCE(product_search.category, ''))`

// CatalogRepository is the GORM-backed product read/query store.
type CatalogRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB, redis *redis.Client) *CatalogRepository {
	return &CatalogRepository{db: db, redis: redis}
}

// GetProducts retrieves a page of products
func (r *CatalogRepository) GetProducts(ctx context.Context, page, limit int) ([]models.Product, error) {
	var products []models.Product
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&products).Error
	return products, err
}

// GetTotalProducts returns the product count
func (r *CatalogRepository) GetTotalProducts(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error
	return total, err
}

// SearchProducts performs full-text search over the product_search shadow
// table. fields restricts the selected columns (id is always included).
func (r *CatalogRepository) SearchProducts(ctx context.Context, query string, fields []string) ([]models.Product, error) {
	tsQuery := toTSQuery(query)
	if tsQuery == "" {
		return []models.Product{}, nil
	}

	var products []models.Product
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select(selectColumns(fields)+", ts_rank("+searchVectorExpr+", to_tsquery('english', ?)) AS rank", tsQuery).
		Joins("JOIN product_search ON product_search.product_id = products.id").
		Where(searchVectorExpr+" @@ to_tsquery('english', ?)", tsQuery).
		Order("rank DESC").
		Find(&products).Error
	return products, err
}

// GetProductByIDOrHandle resolves a numeric key as an id and anything else as
// a handle, with a short single-product cache in front of the database.
func (r *CatalogRepository) GetProductByIDOrHandle(ctx context.Context, key string) (*models.Product, error) {
	cacheKey := "catalog:product:" + key

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	query := r.db.WithContext(ctx)
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("handle = ?", key)
	}
	if err := query.First(&product).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// GetProductsInCollection returns products for a named storefront collection.
// Unknown handles return an empty list.
func (r *CatalogRepository) GetProductsInCollection(ctx context.Context, handle string, page, limit int, fields []string) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Select(selectColumns(fields))

	paginated := true
	switch handle {
	case "all":
		query = query.Order("id ASC")
	case "featured":
		// Featured list is small, random and non-paginated.
		query = query.Where("tags LIKE ?", "%featured%").Order("RANDOM()")
		limit = 8
		paginated = false
	case "sale":
		query = query.Where("compare_at_price IS NOT NULL AND compare_at_price > price").Order("price ASC")
	case "new":
		query = query.Order("id DESC")
	case "bestsellers":
		query = query.Order("bestseller_score DESC NULLS LAST, id DESC")
	case "trending":
		query = query.Order("price DESC, id DESC")
	default:
		return []models.Product{}, nil
	}

	if paginated {
		query = query.Offset((page - 1) * limit)
	}

	var products []models.Product
	err := query.Limit(limit).Find(&products).Error
	return products, err
}

// GetTotalCollectionProducts counts products in a named collection.
func (r *CatalogRepository) GetTotalCollectionProducts(ctx context.Context, handle string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	switch handle {
	case "all", "new", "bestsellers", "trending":
	case "featured":
		query = query.Where("tags LIKE ?", "%featured%")
	case "sale":
		query = query.Where("compare_at_price IS NOT NULL AND compare_at_price > price")
	default:
		return 0, nil
	}

	var total int64
	err := query.Count(&total).Error
	return total, err
}

// GetProduct retrieves a product by id
func (r *CatalogRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductIDsAscending returns every product id in ascending order, the
// iteration order of the batch similarity rebuild.
func (r *CatalogRepository) ProductIDsAscending(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// ProductsByIDs retrieves products by id in a single query. Missing ids are
// simply absent from the result.
func (r *CatalogRepository) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

// SearchCandidateIDs seeds similarity candidates via full-text relevance over
// the search shadow table, excluding the source product.
func (r *CatalogRepository) SearchCandidateIDs(ctx context.Context, text string, exclude int64, limit int) ([]int64, error) {
	tsQuery := toTSQuery(text)
	if tsQuery == "" {
		return nil, fmt.Errorf("no usable search terms in %q", text)
	}

	var rows []struct {
		ProductID int64
	}
	err := r.db.WithContext(ctx).Model(&models.ProductSearch{}).
		Select("product_id, ts_rank("+searchVectorExpr+", to_tsquery('english', ?)) AS rank", tsQuery).
		Where(searchVectorExpr+" @@ to_tsquery('english', ?)", tsQuery).
		Where("product_id != ?", exclude).
		Order("rank DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ProductID
	}
	return ids, nil
}

// RandomCandidateIDs seeds similarity candidates by uniform random sampling,
// excluding the source product.
func (r *CatalogRepository) RandomCandidateIDs(ctx context.Context, exclude int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id != ?", exclude).
		Order("RANDOM()").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// fallbackRow scans the in-store scoring projection.
type fallbackRow struct {
	models.Product
	Score float64
}

// FallbackRelated scores every other product against the source inside the
// database, using the batch weights for vendor, category, bestseller and
// price proximity. Tag overlap is left to the caller's in-memory re-rank.
func (r *CatalogRepository) FallbackRelated(ctx context.Context, source *models.Product, limit int) ([]models.ScoredProduct, error) {
	var rows []fallbackRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.*,
		       (CASE WHEN ? <> '' AND p.vendor = ? THEN 5.0 ELSE 0.0 END
		      + CASE WHEN ? <> '' AND p.category = ? THEN 4.0 ELSE 0.0 END
		      + COALESCE(p.bestseller_score, 0) / 10.0
		      - CASE WHEN CAST(? AS double precision) = 0 THEN 0.0
		             ELSE ABS(p.price - ?) / ? END) AS score
		FROM products p
		WHERE p.id <> ?
		ORDER BY score DESC
		LIMIT ?`,
		source.Vendor, source.Vendor,
		source.Category, source.Category,
		source.Price, source.Price, source.Price,
		source.ID, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredProduct, len(rows))
	for i, row := range rows {
		scored[i] = models.ScoredProduct{Product: row.Product, Score: row.Score}
	}
	return scored, nil
}

// ProductPricesAscending returns (id, price) for every product in ascending
// price order, the iteration order of the pricing pass.
func (r *CatalogRepository) ProductPricesAscending(ctx context.Context) ([]models.ProductPrice, error) {
	var prices []models.ProductPrice
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("id, price").
		Order("price ASC").
		Scan(&prices).Error
	return prices, err
}

// UpdateProductPrice persists an adjusted price
func (r *CatalogRepository) UpdateProductPrice(ctx context.Context, id int64, price float64) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"price": price, "updated_at": time.Now()}).Error
}

// DeleteProduct removes a product; the search shadow row goes with it via
// the FK cascade.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// toTSQuery turns free text into an OR-of-terms tsquery, stripping characters
// the parser would reject.
func toTSQuery(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '&', '|', '!', '(', ')', ':', '*', '\'', '"':
			return ' '
		}
		return r
	}, text)
	terms := strings.Fields(cleaned)
	return strings.Join(terms, " | ")
}

// selectColumns intersects requested fields with the allowed column set,
// always keeping id. Empty input selects everything. Columns are qualified
// with the products table to stay unambiguous under joins.
func selectColumns(fields []string) string {
	if len(fields) == 0 {
		return "products.*"
	}
	allowed := make(map[string]bool, len(models.AllowedProductFields))
	for _, f := range models.AllowedProductFields {
		allowed[f] = true
	}

	var cols []string
	hasID := false
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if !allowed[f] {
			continue
		}
		if f == "id" {
			hasID = true
		}
		cols = append(cols, "products."+f)
	}
	if len(cols) == 0 {
		return "products.*"
	}
	if !hasID {
		cols = append([]string{"products.id"}, cols...)
	}
	return strings.Join(cols, ", ")
}
