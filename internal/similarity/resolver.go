package similarity

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"catalog-service/internal/models"
)

// fallbackWindowFactor sizes the candidate window the fallback pulls from the
// store before the in-memory tag re-rank trims it back to the limit.
const fallbackWindowFactor = 3

// ProductReader is the slice of the catalog store the resolver needs.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	FallbackRelated(ctx context.Context, source *models.Product, limit int) ([]models.ScoredProduct, error)
}

// EdgeReader is the read surface of the similarity table.
type EdgeReader interface {
	EdgesBySource(ctx context.Context, sourceID int64, limit int) ([]models.SimilarityEdge, error)
}

// Resolver is the request-time related-products read path: precomputed edges
// first, synchronous scoring as the fallback. "Nothing related" is an empty
// list, never an error.
type Resolver struct {
	products ProductReader
	edges    EdgeReader
	log      *logrus.Logger
}

func NewResolver(products ProductReader, edges EdgeReader, log *logrus.Logger) *Resolver {
	if log == nil {
		log = logrus.New()
	}
	return &Resolver{products: products, edges: edges, log: log}
}

// Related returns up to limit products related to productID, best first.
func (r *Resolver) Related(ctx context.Context, productID int64, limit int) ([]models.Product, error) {
	edges, err := r.edges.EdgesBySource(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	if len(edges) > 0 {
		return r.resolveEdges(ctx, edges)
	}
	return r.fallback(ctx, productID, limit)
}

// resolveEdges loads edge targets, preserving edge order. Targets deleted
// since the last rebuild are dangling references, silently dropped.
func (r *Resolver) resolveEdges(ctx context.Context, edges []models.SimilarityEdge) ([]models.Product, error) {
	ids := make([]int64, len(edges))
	for i, e := range edges {
		ids[i] = e.TargetID
	}
	rows, err := r.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	products := make([]models.Product, 0, len(edges))
	for _, e := range edges {
		if p, ok := byID[e.TargetID]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// fallback scores candidates on the fly with the batch weights, then
// re-ranks the window by tag overlap in memory.
func (r *Resolver) fallback(ctx context.Context, productID int64, limit int) ([]models.Product, error) {
	source, err := r.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.Product{}, nil
		}
		return nil, err
	}

	scored, err := r.products.FallbackRelated(ctx, source, limit*fallbackWindowFactor)
	if err != nil {
		return nil, err
	}

	for i := range scored {
		scored[i].Score += tagWeight * float64(TagOverlap(source.Tags, scored[i].Product.Tags))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	products := make([]models.Product, len(scored))
	for i, sc := range scored {
		products[i] = sc.Product
	}

	r.log.WithFields(logrus.Fields{
		"id":      productID,
		"results": len(products),
	}).Debug("Resolved related products via synchronous fallback")

	return products, nil
}
